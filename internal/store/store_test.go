package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testRecord(fingerprint string, created time.Time) *ContextRecord {
	return &ContextRecord{
		Fingerprint:   fingerprint,
		SummaryText:   "A reflective essay about the passage of time and memory.",
		Tone:          "formal",
		Intent:        "describe",
		SourceModelID: "test-model",
		Confidence:    0.9,
		CreatedAt:     created,
		LastUsedAt:    created,
		TextLength:    420,
	}
}

func TestRecordStore_PutAndGet(t *testing.T) {
	s := NewRecordStore(NewMemoryKV(), Options{})

	now := time.Now()
	s.Put(testRecord("fp-1", now))

	rec, ok := s.Get("fp-1")
	if !ok {
		t.Fatal("Expected record to be present")
	}
	if rec.UsageCount != 1 {
		t.Errorf("Get should increment usage count, got %d", rec.UsageCount)
	}
	if rec.LastUsedAt.Before(rec.CreatedAt) {
		t.Error("LastUsedAt must never precede CreatedAt")
	}

	// The returned record is a copy: mutating it must not touch the store.
	rec.SummaryText = "mutated"
	again, _ := s.Get("fp-1")
	if again.SummaryText == "mutated" {
		t.Error("Get must return a copy, not the stored record")
	}
	if again.UsageCount != 2 {
		t.Errorf("Expected usage count 2 after second read, got %d", again.UsageCount)
	}
}

func TestRecordStore_PutIdempotent(t *testing.T) {
	s := NewRecordStore(NewMemoryKV(), Options{})

	rec := testRecord("fp-1", time.Now())
	s.Put(rec)
	s.Put(rec)

	if s.Count() != 1 {
		t.Errorf("Identical puts should leave one record, got %d", s.Count())
	}
}

func TestRecordStore_TTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	s := NewRecordStore(NewMemoryKV(), Options{
		ExpiryDuration: time.Hour,
		Clock:          func() time.Time { return clock() },
	})

	s.Put(testRecord("fp-old", now))

	// Advance past the TTL: logically absent, physically still present.
	now = now.Add(2 * time.Hour)

	if _, ok := s.Get("fp-old"); ok {
		t.Error("Expired record should be reported absent")
	}
	if s.Count() != 1 {
		t.Errorf("Expired record should remain physically present, count=%d", s.Count())
	}

	stats := s.ListStats()
	if stats.Expired != 1 || stats.Valid != 0 {
		t.Errorf("Expected 1 expired / 0 valid, got %+v", stats)
	}

	// Cleanup reclaims the slot.
	if removed := s.CleanupExpired(); removed != 1 {
		t.Errorf("Expected cleanup to remove 1 record, removed %d", removed)
	}
	if s.Count() != 0 {
		t.Errorf("Expected empty store after cleanup, count=%d", s.Count())
	}
}

func TestRecordStore_CeilingInvariant(t *testing.T) {
	s := NewRecordStore(NewMemoryKV(), Options{MaxRecords: 5})

	base := time.Now()
	for i := 0; i < 20; i++ {
		s.Put(testRecord(fmt.Sprintf("fp-%d", i), base.Add(time.Duration(i)*time.Second)))
		if count := s.Count(); count > 5 {
			t.Fatalf("Ceiling violated after put %d: count=%d", i, count)
		}
	}
}

func TestRecordStore_EvictionOrder(t *testing.T) {
	s := NewRecordStore(NewMemoryKV(), Options{MaxRecords: 3})

	base := time.Now()

	// Distinct (lastUsedAt, usageCount) pairs; ascending order decides.
	records := []struct {
		fingerprint string
		lastUsed    time.Time
		usage       int
	}{
		{"fp-oldest", base.Add(-5 * time.Hour), 50},
		{"fp-old-tie-low", base.Add(-4 * time.Hour), 1},
		{"fp-old-tie-high", base.Add(-4 * time.Hour), 9},
		{"fp-recent", base.Add(-1 * time.Hour), 0},
		{"fp-newest", base, 2},
	}
	for _, r := range records {
		rec := testRecord(r.fingerprint, r.lastUsed.Add(-time.Minute))
		rec.LastUsedAt = r.lastUsed
		rec.UsageCount = r.usage
		s.Put(rec)
	}

	if s.Count() != 3 {
		t.Fatalf("Expected 3 records after eviction, got %d", s.Count())
	}

	// Oldest-accessed goes first; the tie breaks against the least-used.
	for _, gone := range []string{"fp-oldest", "fp-old-tie-low"} {
		if _, ok := s.Peek(gone); ok {
			t.Errorf("Record %s should have been evicted", gone)
		}
	}
	for _, kept := range []string{"fp-old-tie-high", "fp-recent", "fp-newest"} {
		if _, ok := s.Peek(kept); !ok {
			t.Errorf("Record %s should have been retained", kept)
		}
	}
}

func TestRecordStore_EmergencyEviction(t *testing.T) {
	kv := NewMemoryKV()
	s := NewRecordStore(kv, Options{MaxRecords: 100})

	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Put(testRecord(fmt.Sprintf("fp-%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	// Next persist hits a capacity fault once; the retry must succeed after
	// the store halves itself, and the caller never sees the failure.
	kv.FailPuts(ErrCapacityExceeded, 1)
	s.Put(testRecord("fp-final", base.Add(time.Hour)))

	count := s.Count()
	if count == 0 || count > 6 {
		t.Errorf("Expected halved store (<=6 records), got %d", count)
	}

	// The most-favored record (newest) survives the halving.
	if _, ok := s.Peek("fp-final"); !ok {
		t.Error("Most recently used record should survive emergency eviction")
	}
}

func TestRecordStore_PersistedStateFault(t *testing.T) {
	kv := NewMemoryKV()
	// Persist failures beyond capacity are absorbed entirely.
	kv.FailPuts(fmt.Errorf("disk detached"), -1)

	s := NewRecordStore(kv, Options{})
	s.Put(testRecord("fp-1", time.Now()))

	if _, ok := s.Get("fp-1"); !ok {
		t.Error("In-memory state should survive a persistence fault")
	}
}

func TestRecordStore_ReloadAcrossInstances(t *testing.T) {
	kv := NewMemoryKV()

	s1 := NewRecordStore(kv, Options{})
	s1.Put(testRecord("fp-persisted", time.Now()))

	s2 := NewRecordStore(kv, Options{})
	rec, ok := s2.Peek("fp-persisted")
	if !ok {
		t.Fatal("Expected record to survive a reload")
	}
	if rec.Tone != "formal" || rec.Intent != "describe" {
		t.Errorf("Dictionary-coded fields should decode on load, got tone=%q intent=%q", rec.Tone, rec.Intent)
	}
}

func TestRecordStore_CorruptedStateDiscarded(t *testing.T) {
	kv := NewMemoryKV()
	kv.Put(context.Background(), DefaultStorageKey, []byte("{not valid json"))

	s := NewRecordStore(kv, Options{})
	if s.Count() != 0 {
		t.Errorf("Corrupted persisted state should be discarded, count=%d", s.Count())
	}
}

func TestRecordStore_SchemaMismatchDiscarded(t *testing.T) {
	kv := NewMemoryKV()

	s1 := NewRecordStore(kv, Options{})
	s1.Put(testRecord("fp-1", time.Now()))

	// Rewrite the persisted file under an unknown schema version.
	data, err := kv.Get(context.Background(), DefaultStorageKey)
	if err != nil {
		t.Fatalf("Expected persisted data: %v", err)
	}
	tampered := []byte(`{"schemaVersion":"999",` + string(data[len(`{"schemaVersion":"1",`):]))
	kv.Put(context.Background(), DefaultStorageKey, tampered)

	s2 := NewRecordStore(kv, Options{})
	if s2.Count() != 0 {
		t.Errorf("Schema-mismatched state should be discarded wholesale, count=%d", s2.Count())
	}
}

func TestRecordStore_UpdateFields(t *testing.T) {
	s := NewRecordStore(NewMemoryKV(), Options{})
	s.Put(testRecord("fp-1", time.Now()))

	newSummary := "An edited summary the user wrote by hand."
	newTone := "casual"
	if !s.UpdateFields("fp-1", FieldUpdate{SummaryText: &newSummary, Tone: &newTone}) {
		t.Fatal("Expected update to apply")
	}

	rec, _ := s.Peek("fp-1")
	if rec.SummaryText != newSummary {
		t.Errorf("Summary not updated: %q", rec.SummaryText)
	}
	if rec.Tone != "casual" {
		t.Errorf("Tone not updated: %q", rec.Tone)
	}
	if rec.Intent != "describe" {
		t.Errorf("Untouched field changed: %q", rec.Intent)
	}

	if s.UpdateFields("fp-missing", FieldUpdate{SummaryText: &newSummary}) {
		t.Error("Update of absent fingerprint should be a no-op")
	}
}
