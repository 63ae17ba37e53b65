package handlers

import (
	"time"

	"contextd/internal/engine"
	"contextd/internal/jobs"
	"contextd/internal/store"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store       *store.RecordStore
	coordinator *engine.Coordinator
	cleanup     *jobs.StoreCleanupJob
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(recordStore *store.RecordStore, coordinator *engine.Coordinator, cleanup *jobs.StoreCleanupJob) *HealthHandler {
	return &HealthHandler{store: recordStore, coordinator: coordinator, cleanup: cleanup}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	lastCleanup := ""
	if t := h.cleanup.LastRun(); !t.IsZero() {
		lastCleanup = t.Format(time.RFC3339)
	}

	return c.JSON(fiber.Map{
		"status":      "healthy",
		"records":     h.store.Count(),
		"inflight":    h.coordinator.InflightCount(),
		"lastCleanup": lastCleanup,
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
