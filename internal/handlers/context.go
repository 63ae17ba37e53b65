package handlers

import (
	"errors"

	"contextd/internal/engine"
	"contextd/internal/prompt"
	"contextd/internal/similarity"
	"contextd/internal/store"
	"contextd/internal/summarizer"

	"github.com/gofiber/fiber/v2"
)

// ContextHandler exposes the record store and coordinator over HTTP.
type ContextHandler struct {
	store        *store.RecordStore
	coordinator  *engine.Coordinator
	defaultModel summarizer.ModelRef
}

// NewContextHandler creates a new context handler
func NewContextHandler(recordStore *store.RecordStore, coordinator *engine.Coordinator, defaultModel summarizer.ModelRef) *ContextHandler {
	return &ContextHandler{
		store:        recordStore,
		coordinator:  coordinator,
		defaultModel: defaultModel,
	}
}

// Get returns the record for a fingerprint (with usage tracking).
func (h *ContextHandler) Get(c *fiber.Ctx) error {
	fingerprint := c.Params("fingerprint")

	rec, ok := h.store.Get(fingerprint)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "context not found or expired",
		})
	}
	return c.JSON(rec)
}

// Update merges a partial edit into a record's mutable fields.
func (h *ContextHandler) Update(c *fiber.Ctx) error {
	fingerprint := c.Params("fingerprint")

	var update store.FieldUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if !h.store.UpdateFields(fingerprint, update) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "context not found",
		})
	}
	return c.JSON(fiber.Map{"updated": true})
}

// Delete removes a record.
func (h *ContextHandler) Delete(c *fiber.Ctx) error {
	h.store.Remove(c.Params("fingerprint"))
	return c.JSON(fiber.Map{"deleted": true})
}

// Clear drops all records.
func (h *ContextHandler) Clear(c *fiber.Ctx) error {
	h.store.Clear()
	return c.JSON(fiber.Map{"cleared": true})
}

// Stats reports collection statistics.
func (h *ContextHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.store.ListStats())
}

type generateRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"modelId,omitempty"`
}

// Generate runs the full generation path (cache hit, coalescing, external
// call) for a text snapshot. Failures degrade to 204: no context available.
func (h *ContextHandler) Generate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	model := h.defaultModel
	if req.ModelID != "" {
		model = summarizer.ModelRef{ID: req.ModelID}
	}

	rec, err := h.coordinator.GenerateForText(c.Context(), req.Text, model)
	if err != nil {
		if errors.Is(err, engine.ErrInputRejected) || errors.Is(err, engine.ErrDisabled) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		// GenerationFault, cooldown, rate limit: no context available.
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(rec)
}

type enhanceRequest struct {
	Prompt      string `json:"prompt"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Text        string `json:"text,omitempty"`
	Custom      bool   `json:"custom,omitempty"`
}

// Enhance merges stored context into an action prompt. Always succeeds: an
// absent or unsuitable record returns the prompt unchanged.
func (h *ContextHandler) Enhance(c *fiber.Ctx) error {
	var req enhanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	rec := h.lookupRecord(req)

	enhanced := ""
	if req.Custom {
		enhanced = prompt.EnhanceCustom(req.Prompt, rec)
	} else {
		enhanced = prompt.Enhance(req.Prompt, rec)
	}

	return c.JSON(fiber.Map{
		"prompt":   enhanced,
		"enhanced": enhanced != req.Prompt,
	})
}

// lookupRecord resolves the record by explicit fingerprint first, then by
// fingerprinting the supplied text. Reads here are genuine usages, so the
// tracking side effect of Get is wanted.
func (h *ContextHandler) lookupRecord(req enhanceRequest) *store.ContextRecord {
	fingerprint := req.Fingerprint
	if fingerprint == "" && req.Text != "" {
		fingerprint = similarity.Fingerprint(req.Text)
	}
	if fingerprint == "" {
		return nil
	}

	rec, ok := h.store.Get(fingerprint)
	if !ok {
		return nil
	}
	return rec
}
