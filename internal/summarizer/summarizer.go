// Package summarizer defines the external collaborator contracts the engine
// consumes — summary generation and model routing — plus the response
// parsing shared by their implementations. The engine never talks to a model
// provider directly; it only sees these interfaces.
package summarizer

import (
	"context"
	"errors"
)

// Collaborator errors.
var (
	ErrEmptyResponse = errors.New("summarizer: empty model response")
	ErrNoModel       = errors.New("summarizer: no model supplied")
)

// ModelRef identifies a model at a provider. ID is the only field the engine
// relies on; the rest is routing detail.
type ModelRef struct {
	ID       string `json:"id"`
	Provider string `json:"provider,omitempty"`
	Name     string `json:"name,omitempty"`
}

// SummaryResult is the structured output of a summarization call: a bounded
// natural-language description of the text's tone, intent, and purpose.
type SummaryResult struct {
	SummaryText  string   `json:"summary"`
	Tone         string   `json:"tone"`
	Intent       string   `json:"intent"`
	TopArguments []string `json:"topArguments,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
}

// Summarizer produces a semantic summary of a text snapshot.
type Summarizer interface {
	GenerateSummary(ctx context.Context, text string, model ModelRef) (*SummaryResult, error)
}

// RouteResult reports the outcome of a routed model call, including whether
// a fallback model served it.
type RouteResult struct {
	ResultText   string   `json:"resultText"`
	ActualModel  ModelRef `json:"actualModel"`
	UsedFallback bool     `json:"usedFallback"`
}

// ModelRouter sends an arbitrary prompt over a text to a model, with the
// provider's own fallback logic behind it.
type ModelRouter interface {
	SendToModel(ctx context.Context, text, prompt string, model ModelRef) (*RouteResult, error)
}
