package prompt

import (
	"strings"
	"testing"

	"contextd/internal/store"
)

func usableRecord() *store.ContextRecord {
	return &store.ContextRecord{
		Fingerprint:  "fp-1",
		SummaryText:  "A persuasive essay arguing that remote work improves focus.",
		Tone:         "persuasive",
		Intent:       "persuade",
		TopArguments: []string{"fewer interruptions", "deep work blocks"},
	}
}

func TestUsable(t *testing.T) {
	cases := []struct {
		name string
		rec  *store.ContextRecord
		want bool
	}{
		{"nil record", nil, false},
		{"full record", usableRecord(), true},
		{
			"summary too short",
			&store.ContextRecord{SummaryText: "tiny", Tone: "formal", Intent: "inform"},
			false,
		},
		{
			"generic tone and intent",
			&store.ContextRecord{SummaryText: "A reasonably long summary of some document.", Tone: "neutral", Intent: "general"},
			false,
		},
		{
			"generic tone but specific intent",
			&store.ContextRecord{SummaryText: "A reasonably long summary of some document.", Tone: "neutral", Intent: "persuade"},
			true,
		},
		{
			"empty tone and intent",
			&store.ContextRecord{SummaryText: "A reasonably long summary of some document."},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Usable(tc.rec); got != tc.want {
				t.Errorf("Usable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnhance(t *testing.T) {
	action := "Rewrite the following paragraph to be more concise."
	got := Enhance(action, usableRecord())

	if !strings.HasPrefix(got, action) {
		t.Error("Enhanced prompt must keep the action prompt first")
	}
	if !strings.Contains(got, "--- BACKGROUND CONTEXT ---") || !strings.Contains(got, "--- END BACKGROUND CONTEXT ---") {
		t.Error("Context block must be delimited")
	}
	if !strings.Contains(got, "Tone: persuasive") {
		t.Error("Tone line missing")
	}
	if !strings.Contains(got, "Intent: persuade") {
		t.Error("Intent line missing")
	}
	if !strings.Contains(got, "Key points: fewer interruptions; deep work blocks") {
		t.Error("Key points line missing")
	}
}

func TestEnhance_SkipsGenericLines(t *testing.T) {
	rec := usableRecord()
	rec.Tone = "neutral"
	rec.TopArguments = nil

	got := Enhance("Fix grammar.", rec)

	if strings.Contains(got, "Tone:") {
		t.Error("Generic tone should not produce a Tone line")
	}
	if strings.Contains(got, "Key points:") {
		t.Error("Empty arguments should not produce a Key points line")
	}
	if !strings.Contains(got, "Intent: persuade") {
		t.Error("Specific intent line missing")
	}
}

func TestEnhance_UnusableRecordUnchanged(t *testing.T) {
	action := "Summarize this."
	if got := Enhance(action, nil); got != action {
		t.Errorf("Nil record should leave prompt unchanged, got %q", got)
	}

	generic := &store.ContextRecord{SummaryText: "A long enough but entirely generic summary.", Tone: "neutral", Intent: "general"}
	if got := Enhance(action, generic); got != action {
		t.Errorf("Generic record should leave prompt unchanged, got %q", got)
	}
}

func TestEnhanceCustom(t *testing.T) {
	custom := "Make it rhyme."
	got := EnhanceCustom(custom, usableRecord())

	if !strings.HasPrefix(got, custom) {
		t.Error("Custom prompt must come first")
	}
	if !strings.Contains(got, "Note: this text has characteristics:") {
		t.Error("Expected light-touch note suffix")
	}
	if !strings.Contains(got, "tone: persuasive") || !strings.Contains(got, "intent: persuade") {
		t.Errorf("Traits missing from note: %q", got)
	}
	if strings.Contains(got, "--- BACKGROUND CONTEXT ---") {
		t.Error("Custom enhancement must not use the delimited block")
	}
}

func TestEnhanceCustom_UnusableRecordUnchanged(t *testing.T) {
	custom := "Make it rhyme."
	if got := EnhanceCustom(custom, nil); got != custom {
		t.Errorf("Nil record should leave prompt unchanged, got %q", got)
	}
}
