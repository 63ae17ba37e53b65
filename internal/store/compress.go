package store

import (
	"math"
	"strings"
	"time"
)

// Compact form constants. Summary truncation is lossy and permanent: the
// decompressed record keeps the shortened summary.
const (
	compactVersion     = 1
	maxCompactSummary  = 300
	maxUnknownCodeLen  = 8
	maxCompactModelID  = 40
	maxTopArguments    = 3
	fingerprintPrefixN = 8
	ellipsis           = "…"
)

// CompactRecord is the persisted representation of a ContextRecord:
// dictionary-coded tone/intent, boundary-truncated summary, minimal model
// identifier, millisecond timestamps.
type CompactRecord struct {
	Version           int      `json:"v"`
	FingerprintPrefix string   `json:"fp"`
	Summary           string   `json:"s"`
	ToneCode          string   `json:"t"`
	IntentCode        string   `json:"i"`
	TopArguments      []string `json:"a,omitempty"`
	ModelID           string   `json:"m"`
	CreatedAtMillis   int64    `json:"c"`
	LastUsedAtMillis  int64    `json:"u"`
	UsageCount        int      `json:"n"`
	Confidence        float64  `json:"cf"`
	TextLength        int      `json:"l"`
	TruncatedSource   bool     `json:"ts,omitempty"`
}

// Tone and intent dictionaries map common categorical values to 1-2
// character codes. Unknown values pass through as literal truncated strings.
var toneCodes = map[string]string{
	"formal":       "f",
	"casual":       "c",
	"professional": "p",
	"friendly":     "fr",
	"academic":     "ac",
	"persuasive":   "pv",
	"narrative":    "na",
	"technical":    "te",
	"humorous":     "h",
	"serious":      "se",
	"emotional":    "em",
	"neutral":      "x",
}

var intentCodes = map[string]string{
	"inform":    "i",
	"persuade":  "p",
	"entertain": "e",
	"instruct":  "in",
	"describe":  "d",
	"narrate":   "na",
	"analyze":   "an",
	"summarize": "s",
	"express":   "ex",
	"general":   "g",
}

var (
	toneNames   = invert(toneCodes)
	intentNames = invert(intentCodes)
)

func invert(codes map[string]string) map[string]string {
	names := make(map[string]string, len(codes))
	for name, code := range codes {
		names[code] = name
	}
	return names
}

// Compress converts a full record to its compact persisted form.
func Compress(rec *ContextRecord) CompactRecord {
	args := rec.TopArguments
	if len(args) > maxTopArguments {
		args = args[:maxTopArguments]
	}

	return CompactRecord{
		Version:           compactVersion,
		FingerprintPrefix: prefix(rec.Fingerprint, fingerprintPrefixN),
		Summary:           TruncateAtBoundary(rec.SummaryText, maxCompactSummary),
		ToneCode:          encodeValue(rec.Tone, toneCodes),
		IntentCode:        encodeValue(rec.Intent, intentCodes),
		TopArguments:      args,
		ModelID:           minimalModelID(rec.SourceModelID),
		CreatedAtMillis:   rec.CreatedAt.UnixMilli(),
		LastUsedAtMillis:  rec.LastUsedAt.UnixMilli(),
		UsageCount:        rec.UsageCount,
		Confidence:        math.Round(rec.Confidence*100) / 100,
		TextLength:        rec.TextLength,
		TruncatedSource:   rec.TruncatedSource,
	}
}

// Decompress reconstructs a full record from its compact form. The full
// fingerprint comes from the enclosing map key; the lossy summary truncation
// is accepted as permanent.
func Decompress(fingerprint string, c CompactRecord) *ContextRecord {
	return &ContextRecord{
		Fingerprint:     fingerprint,
		SummaryText:     c.Summary,
		Tone:            decodeValue(c.ToneCode, toneNames),
		Intent:          decodeValue(c.IntentCode, intentNames),
		TopArguments:    c.TopArguments,
		SourceModelID:   c.ModelID,
		Confidence:      c.Confidence,
		CreatedAt:       time.UnixMilli(c.CreatedAtMillis),
		LastUsedAt:      time.UnixMilli(c.LastUsedAtMillis),
		UsageCount:      c.UsageCount,
		TextLength:      c.TextLength,
		TruncatedSource: c.TruncatedSource,
	}
}

func encodeValue(value string, codes map[string]string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if code, ok := codes[normalized]; ok {
		return code
	}
	return prefix(normalized, maxUnknownCodeLen)
}

func decodeValue(code string, names map[string]string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// minimalModelID keeps only the final path segment of a model identifier and
// bounds its length.
func minimalModelID(modelID string) string {
	if idx := strings.LastIndexByte(modelID, '/'); idx >= 0 {
		modelID = modelID[idx+1:]
	}
	return prefix(modelID, maxCompactModelID)
}

// TruncateAtBoundary shortens text to at most max runes, preferring a
// sentence boundary, then a word boundary, never cutting mid-word, and marks
// the cut with an ellipsis.
func TruncateAtBoundary(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	// Leave room for the ellipsis marker.
	cut := string(runes[:max-1])

	if idx := lastSentenceEnd(cut); idx > max/2 {
		return cut[:idx] + ellipsis
	}
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		return cut[:idx] + ellipsis
	}
	return cut + ellipsis
}

func lastSentenceEnd(s string) int {
	end := -1
	for _, p := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(s, p); idx+1 > end {
			end = idx + 1
		}
	}
	return end
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
