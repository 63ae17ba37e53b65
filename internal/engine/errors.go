package engine

import "errors"

// Coordinator failure taxonomy. Every one of these degrades to "no context
// available" at the caller: they exist for logs and metrics, never for UI.
var (
	// ErrDisabled: the engine is switched off by configuration.
	ErrDisabled = errors.New("engine: context generation disabled")
	// ErrInputRejected: empty, too-short, or model-less input.
	ErrInputRejected = errors.New("engine: input rejected")
	// ErrGenerationFailed: the external summarizer errored or its response
	// was unusable after heuristic fallback.
	ErrGenerationFailed = errors.New("engine: generation failed")
	// ErrCoolingDown: a recent failure for the same content is still inside
	// the cooldown window.
	ErrCoolingDown = errors.New("engine: generation cooling down after recent failure")
	// ErrRateLimited: the external-call rate limiter refused a slot.
	ErrRateLimited = errors.New("engine: generation rate limited")
)
