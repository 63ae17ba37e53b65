package summarizer

import (
	"encoding/json"
	"errors"
	"strings"
)

// Bounds applied to parsed results.
const (
	maxSummaryLength   = 1000
	heuristicSummaryN  = 300
	defaultTone        = "neutral"
	defaultIntent      = "general"
	minStructuredChars = 10
)

var errUnparsable = errors.New("summarizer: response not parsable as structured summary")

// ParseResponse extracts a SummaryResult from a raw model response. It first
// attempts structured JSON (tolerating markdown code fences), then falls
// back to heuristic extraction. Returns an error only when both fail.
func ParseResponse(raw string) (*SummaryResult, error) {
	if res, err := parseStructured(raw); err == nil {
		return res, nil
	}
	return HeuristicExtract(raw)
}

// parseStructured decodes a JSON object with summary/tone/intent fields.
func parseStructured(raw string) (*SummaryResult, error) {
	payload := stripCodeFences(strings.TrimSpace(raw))

	// Tolerate leading prose before the JSON object.
	if idx := strings.IndexByte(payload, '{'); idx > 0 {
		payload = payload[idx:]
	}
	if end := strings.LastIndexByte(payload, '}'); end >= 0 {
		payload = payload[:end+1]
	}

	var res SummaryResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, errUnparsable
	}
	if len(strings.TrimSpace(res.SummaryText)) < minStructuredChars {
		return nil, errUnparsable
	}

	res.SummaryText = clampRunes(strings.TrimSpace(res.SummaryText), maxSummaryLength)
	if res.Tone = strings.ToLower(strings.TrimSpace(res.Tone)); res.Tone == "" {
		res.Tone = defaultTone
	}
	if res.Intent = strings.ToLower(strings.TrimSpace(res.Intent)); res.Intent == "" {
		res.Intent = defaultIntent
	}
	if len(res.TopArguments) > 3 {
		res.TopArguments = res.TopArguments[:3]
	}
	return &res, nil
}

// HeuristicExtract salvages a usable result from an unstructured response:
// a prefix of the raw text as the summary, keyword-matched tone, and the
// generic intent placeholder.
func HeuristicExtract(raw string) (*SummaryResult, error) {
	text := strings.TrimSpace(stripCodeFences(raw))
	if text == "" {
		return nil, errUnparsable
	}

	return &SummaryResult{
		SummaryText: clampRunes(text, heuristicSummaryN),
		Tone:        guessTone(text),
		Intent:      defaultIntent,
		Confidence:  0.3,
	}, nil
}

// toneKeywords maps signal words in a response to tone categories, checked
// in order so stronger signals win.
var toneKeywords = []struct {
	keyword string
	tone    string
}{
	{"formal", "formal"},
	{"academic", "academic"},
	{"technical", "technical"},
	{"professional", "professional"},
	{"casual", "casual"},
	{"conversational", "casual"},
	{"friendly", "friendly"},
	{"humorous", "humorous"},
	{"funny", "humorous"},
	{"persuasive", "persuasive"},
	{"narrative", "narrative"},
	{"emotional", "emotional"},
	{"serious", "serious"},
}

func guessTone(text string) string {
	lowered := strings.ToLower(text)
	for _, tk := range toneKeywords {
		if strings.Contains(lowered, tk.keyword) {
			return tk.tone
		}
	}
	return defaultTone
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
