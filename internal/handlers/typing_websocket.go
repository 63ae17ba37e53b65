package handlers

import (
	"log"
	"log/slog"
	"sync"

	"contextd/internal/engine"
	"contextd/internal/logging"
	"contextd/internal/services"
	"contextd/internal/store"
	"contextd/internal/summarizer"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// typingEvent is a text-changed trigger from a live editor surface. Events
// for the same documentId collapse inside the coordinator's debounce window.
type typingEvent struct {
	Type       string `json:"type"`
	DocumentID string `json:"documentId"`
	Current    string `json:"current"`
	Previous   string `json:"previous"`
	ModelID    string `json:"modelId,omitempty"`
}

// contextUpdate is pushed back when a debounced trigger produced a record.
type contextUpdate struct {
	Type       string               `json:"type"`
	DocumentID string               `json:"documentId"`
	Record     *store.ContextRecord `json:"record"`
}

// TypingHandler feeds live-typing events into the debounced coordinator and
// pushes resulting context records back over the same connection.
type TypingHandler struct {
	coordinator  *engine.Coordinator
	defaultModel summarizer.ModelRef
	metrics      *services.Metrics
}

// NewTypingHandler creates a new typing handler
func NewTypingHandler(coordinator *engine.Coordinator, defaultModel summarizer.ModelRef, metrics *services.Metrics) *TypingHandler {
	return &TypingHandler{
		coordinator:  coordinator,
		defaultModel: defaultModel,
		metrics:      metrics,
	}
}

// Handle runs the read loop for one editor connection.
func (h *TypingHandler) Handle(conn *websocket.Conn) {
	connID := uuid.NewString()
	clog := logging.WithConnection(slog.Default(), connID)
	h.metrics.RecordTypingConnect()
	log.Printf("🔌 [TYPING] Connection %s opened", connID)

	// The coordinator fires updates from its own goroutine; serialize writes.
	var writeMu sync.Mutex
	defer func() {
		h.metrics.RecordTypingDisconnect()
		log.Printf("🔌 [TYPING] Connection %s closed", connID)
	}()

	for {
		var event typingEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️  [TYPING] Connection %s read error: %v", connID, err)
			}
			return
		}

		if event.Type != "text_changed" || event.DocumentID == "" {
			continue
		}
		clog.Debug("text changed", "document_id", event.DocumentID, "chars", len(event.Current))

		model := h.defaultModel
		if event.ModelID != "" {
			model = summarizer.ModelRef{ID: event.ModelID}
		}

		docID := event.DocumentID
		h.coordinator.ScheduleCheck(docID, event.Current, event.Previous, model, func(rec *store.ContextRecord) {
			writeMu.Lock()
			defer writeMu.Unlock()

			if err := conn.WriteJSON(contextUpdate{
				Type:       "context_updated",
				DocumentID: docID,
				Record:     rec,
			}); err != nil {
				log.Printf("⚠️  [TYPING] Connection %s write error: %v", connID, err)
			}
		})
	}
}
