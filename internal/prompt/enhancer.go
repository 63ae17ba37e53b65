// Package prompt merges stored context records into editing-action prompts.
// It performs no I/O and cannot fail: unsuitable or absent context leaves
// the prompt untouched.
package prompt

import (
	"fmt"
	"strings"

	"contextd/internal/store"
)

const (
	// GenericTone and GenericIntent are the placeholder values the heuristic
	// extraction falls back to; a record carrying both says nothing useful.
	GenericTone   = "neutral"
	GenericIntent = "general"

	// Summaries shorter than this carry too little signal to inject.
	minUsableSummary = 20
)

// Usable reports whether the record passes the suitability check for prompt
// enhancement.
func Usable(rec *store.ContextRecord) bool {
	if rec == nil {
		return false
	}
	if len(strings.TrimSpace(rec.SummaryText)) < minUsableSummary {
		return false
	}
	if isGenericTone(rec.Tone) && isGenericIntent(rec.Intent) {
		return false
	}
	return true
}

// Enhance appends a delimited background-context block to an action prompt.
// Returns the prompt unchanged when the record is absent or unsuitable.
func Enhance(actionPrompt string, rec *store.ContextRecord) string {
	if !Usable(rec) {
		return actionPrompt
	}

	var sb strings.Builder
	sb.WriteString(actionPrompt)
	sb.WriteString("\n\n--- BACKGROUND CONTEXT ---\n")
	sb.WriteString(strings.TrimSpace(rec.SummaryText))
	sb.WriteString("\n")

	if !isGenericTone(rec.Tone) {
		fmt.Fprintf(&sb, "Tone: %s\n", rec.Tone)
	}
	if !isGenericIntent(rec.Intent) {
		fmt.Fprintf(&sb, "Intent: %s\n", rec.Intent)
	}
	if len(rec.TopArguments) > 0 {
		fmt.Fprintf(&sb, "Key points: %s\n", strings.Join(rec.TopArguments, "; "))
	}

	sb.WriteString("Stay consistent with this background context.\n")
	sb.WriteString("--- END BACKGROUND CONTEXT ---")
	return sb.String()
}

// EnhanceCustom applies a lighter-touch suffix for user-authored prompts, so
// the injected context never overrides the user's own instructions.
func EnhanceCustom(customPrompt string, rec *store.ContextRecord) string {
	if !Usable(rec) {
		return customPrompt
	}

	traits := []string{strings.TrimSpace(rec.SummaryText)}
	if !isGenericTone(rec.Tone) {
		traits = append(traits, "tone: "+rec.Tone)
	}
	if !isGenericIntent(rec.Intent) {
		traits = append(traits, "intent: "+rec.Intent)
	}

	return fmt.Sprintf("%s\n\nNote: this text has characteristics: %s.", customPrompt, strings.Join(traits, "; "))
}

func isGenericTone(tone string) bool {
	tone = strings.ToLower(strings.TrimSpace(tone))
	return tone == "" || tone == GenericTone
}

func isGenericIntent(intent string) bool {
	intent = strings.ToLower(strings.TrimSpace(intent))
	return intent == "" || intent == GenericIntent
}
