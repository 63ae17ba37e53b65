package summarizer

import (
	"strings"
	"testing"
)

func TestParseResponse_StructuredJSON(t *testing.T) {
	raw := `{"summary": "A formal essay arguing for stricter deadlines.", "tone": "Formal", "intent": "persuade", "topArguments": ["deadlines focus work"], "confidence": 0.9}`

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SummaryText != "A formal essay arguing for stricter deadlines." {
		t.Errorf("Summary mismatch: %q", res.SummaryText)
	}
	if res.Tone != "formal" {
		t.Errorf("Tone should be lowercased, got %q", res.Tone)
	}
	if res.Intent != "persuade" {
		t.Errorf("Intent mismatch: %q", res.Intent)
	}
	if res.Confidence != 0.9 {
		t.Errorf("Confidence mismatch: %v", res.Confidence)
	}
}

func TestParseResponse_CodeFencedJSON(t *testing.T) {
	raw := "```json\n{\"summary\": \"A casual note about weekend plans.\", \"tone\": \"casual\", \"intent\": \"inform\"}\n```"

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SummaryText != "A casual note about weekend plans." {
		t.Errorf("Fenced JSON not parsed: %q", res.SummaryText)
	}
	if res.Tone != "casual" {
		t.Errorf("Tone mismatch: %q", res.Tone)
	}
}

func TestParseResponse_LeadingProse(t *testing.T) {
	raw := `Sure! Here is the analysis you asked for:
{"summary": "Technical documentation for a caching layer.", "tone": "technical", "intent": "instruct"}`

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Tone != "technical" {
		t.Errorf("Expected structured parse despite leading prose, got tone=%q", res.Tone)
	}
}

func TestParseResponse_DefaultsForMissingFields(t *testing.T) {
	raw := `{"summary": "A summary with no tone or intent fields supplied."}`

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Tone != "neutral" {
		t.Errorf("Expected default tone, got %q", res.Tone)
	}
	if res.Intent != "general" {
		t.Errorf("Expected default intent, got %q", res.Intent)
	}
}

func TestParseResponse_CapsFields(t *testing.T) {
	long := strings.Repeat("x", 2000)
	raw := `{"summary": "` + long + `", "tone": "formal", "intent": "inform", "topArguments": ["a", "b", "c", "d", "e"]}`

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.SummaryText) != 1000 {
		t.Errorf("Summary should be clamped to 1000 chars, got %d", len(res.SummaryText))
	}
	if len(res.TopArguments) != 3 {
		t.Errorf("TopArguments should be capped at 3, got %d", len(res.TopArguments))
	}
}

func TestParseResponse_HeuristicFallback(t *testing.T) {
	raw := "This text reads as quite formal and appears to be a cover letter addressed to a hiring manager."

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, res.SummaryText) {
		t.Errorf("Heuristic summary should be a prefix of the raw text: %q", res.SummaryText)
	}
	if res.Tone != "formal" {
		t.Errorf("Expected keyword-matched tone, got %q", res.Tone)
	}
	if res.Intent != "general" {
		t.Errorf("Heuristic extraction uses the generic intent, got %q", res.Intent)
	}
	if res.Confidence != 0.3 {
		t.Errorf("Heuristic results carry low confidence, got %v", res.Confidence)
	}
}

func TestParseResponse_HeuristicClampsLongProse(t *testing.T) {
	raw := strings.Repeat("The document discusses many things at great length. ", 20)

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len([]rune(res.SummaryText)) > 300 {
		t.Errorf("Heuristic summary exceeds 300 chars: %d", len([]rune(res.SummaryText)))
	}
}

func TestParseResponse_TooShortStructuredFallsBack(t *testing.T) {
	// A valid JSON object whose summary is too short to trust is handed to
	// the heuristic path, which summarizes the raw response itself.
	raw := `{"summary": "short", "tone": "casual", "intent": "inform"}`

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Confidence != 0.3 {
		t.Errorf("Expected heuristic fallback, got confidence %v", res.Confidence)
	}
}

func TestParseResponse_EmptyInput(t *testing.T) {
	if _, err := ParseResponse(""); err == nil {
		t.Error("Empty input should fail both parse paths")
	}
	if _, err := ParseResponse("   \n  "); err == nil {
		t.Error("Whitespace-only input should fail both parse paths")
	}
}

func TestGuessTone_NoSignal(t *testing.T) {
	if got := guessTone("nothing in here matches a keyword"); got != "neutral" {
		t.Errorf("Expected neutral default, got %q", got)
	}
}
