package handlers

import (
	"contextd/internal/prompt"
	"contextd/internal/similarity"
	"contextd/internal/store"
	"contextd/internal/summarizer"

	"github.com/gofiber/fiber/v2"
)

// ProviderHandler exposes the model provider: listing available models and
// running an enhanced prompt through the routing layer.
type ProviderHandler struct {
	store        *store.RecordStore
	client       *summarizer.Client
	defaultModel summarizer.ModelRef
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(recordStore *store.RecordStore, client *summarizer.Client, defaultModel summarizer.ModelRef) *ProviderHandler {
	return &ProviderHandler{
		store:        recordStore,
		client:       client,
		defaultModel: defaultModel,
	}
}

// Models lists the provider's available model IDs.
func (h *ProviderHandler) Models(c *fiber.Ctx) error {
	ids, err := h.client.ListModels(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "failed to list models",
		})
	}
	return c.JSON(fiber.Map{"models": ids})
}

type runRequest struct {
	Text        string `json:"text"`
	Prompt      string `json:"prompt"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ModelID     string `json:"modelId,omitempty"`
	Custom      bool   `json:"custom,omitempty"`
}

// Run enhances the prompt with any stored context for the text, then routes
// it to the model with fallback handling.
func (h *ProviderHandler) Run(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Text == "" || req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text and prompt are required",
		})
	}

	model := h.defaultModel
	if req.ModelID != "" {
		model = summarizer.ModelRef{ID: req.ModelID}
	}

	fingerprint := req.Fingerprint
	if fingerprint == "" {
		fingerprint = similarity.Fingerprint(req.Text)
	}

	finalPrompt := req.Prompt
	if rec, ok := h.store.Get(fingerprint); ok {
		if req.Custom {
			finalPrompt = prompt.EnhanceCustom(req.Prompt, rec)
		} else {
			finalPrompt = prompt.Enhance(req.Prompt, rec)
		}
	}

	result, err := h.client.SendToModel(c.Context(), req.Text, finalPrompt, model)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "model request failed",
		})
	}

	return c.JSON(fiber.Map{
		"result":       result.ResultText,
		"actualModel":  result.ActualModel.ID,
		"usedFallback": result.UsedFallback,
		"enhanced":     finalPrompt != req.Prompt,
	})
}
