// Package store implements the bounded, durable Context Record Store: a
// fingerprint-keyed collection of AI-generated text summaries with TTL
// validity, recency+frequency eviction, and a compact persisted form.
package store

import "time"

// ContextRecord is the unit of cached knowledge about a piece of text.
// Fingerprint and CreatedAt never change after creation; only LastUsedAt,
// UsageCount, and (on explicit user edit) SummaryText/Tone/Intent may mutate.
type ContextRecord struct {
	Fingerprint   string    `json:"fingerprint"`
	SummaryText   string    `json:"summaryText"`
	Tone          string    `json:"tone"`
	Intent        string    `json:"intent"`
	TopArguments  []string  `json:"topArguments,omitempty"`
	SourceModelID string    `json:"sourceModelId"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUsedAt    time.Time `json:"lastUsedAt"`
	UsageCount    int       `json:"usageCount"`
	// TextLength is the length of the original, possibly pre-truncation text
	// the record summarizes.
	TextLength int `json:"textLength"`
	// TruncatedSource marks summaries generated from a shortened view of an
	// oversized input.
	TruncatedSource bool `json:"truncatedSource,omitempty"`
}

// Valid reports whether the record is still within its TTL at the given time.
func (r *ContextRecord) Valid(now time.Time, expiry time.Duration) bool {
	return now.Sub(r.CreatedAt) < expiry
}

// clone returns a copy safe to hand to callers.
func (r *ContextRecord) clone() *ContextRecord {
	out := *r
	if r.TopArguments != nil {
		out.TopArguments = append([]string(nil), r.TopArguments...)
	}
	return &out
}

// Metadata describes the record collection as a whole. It is created on
// first store access, updated on every mutating operation, and persisted
// alongside the records.
type Metadata struct {
	TotalRecords       int   `json:"totalRecords"`
	EstimatedSizeBytes int64 `json:"estimatedSizeBytes"`
	LastCleanupAt      int64 `json:"lastCleanupAt"`
}

// Stats is the shape returned by ListStats.
type Stats struct {
	Total              int   `json:"total"`
	Valid              int   `json:"valid"`
	Expired            int   `json:"expired"`
	EstimatedSizeBytes int64 `json:"estimatedSizeBytes"`
}

// FieldUpdate carries a partial update for a record's mutable fields. Nil
// pointers leave the field untouched.
type FieldUpdate struct {
	SummaryText *string `json:"summaryText,omitempty"`
	Tone        *string `json:"tone,omitempty"`
	Intent      *string `json:"intent,omitempty"`
}
