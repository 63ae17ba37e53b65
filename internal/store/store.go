package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"
)

// SchemaVersion of the persisted store file. A mismatch on load invalidates
// the entire store; there is no partial migration.
const SchemaVersion = "1"

// Defaults for the store configuration.
const (
	DefaultMaxRecords     = 100
	DefaultExpiryDuration = 7 * 24 * time.Hour
	DefaultStorageKey     = "contextd:records"
)

// Options configures a RecordStore.
type Options struct {
	MaxRecords     int
	ExpiryDuration time.Duration
	StorageKey     string
	// OnEvict is called with the number of records dropped by an eviction
	// pass (regular or emergency). Used to feed metrics.
	OnEvict func(count int)
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// storeFile is the persisted schema: version + compact records + metadata.
type storeFile struct {
	SchemaVersion string                   `json:"schemaVersion"`
	Records       map[string]CompactRecord `json:"records"`
	Metadata      Metadata                 `json:"metadata"`
}

// RecordStore owns the physical record collection. It is the only component
// permitted to mutate persisted records, and it enforces the MaxRecords
// ceiling. All operations degrade gracefully: a storage fault never reaches
// the caller.
type RecordStore struct {
	mu      sync.Mutex
	kv      DurableKV
	records map[string]*ContextRecord
	meta    Metadata
	opts    Options
	clock   func() time.Time
}

// NewRecordStore creates a store backed by kv and loads any persisted state.
// Corrupted or version-mismatched persisted data is discarded wholesale and
// the store starts empty.
func NewRecordStore(kv DurableKV, opts Options) *RecordStore {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.ExpiryDuration <= 0 {
		opts.ExpiryDuration = DefaultExpiryDuration
	}
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &RecordStore{
		kv:      kv,
		records: make(map[string]*ContextRecord),
		opts:    opts,
		clock:   clock,
	}
	s.load()
	return s
}

// load reads the persisted store file. Any fault re-initializes empty.
func (s *RecordStore) load() {
	data, err := s.kv.Get(context.Background(), s.opts.StorageKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("⚠️  [CONTEXT-STORE] Failed to read persisted records: %v (starting empty)", err)
		}
		return
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Printf("⚠️  [CONTEXT-STORE] Corrupted persisted records, discarding: %v", err)
		return
	}
	if file.SchemaVersion != SchemaVersion {
		log.Printf("⚠️  [CONTEXT-STORE] Schema version mismatch (%q != %q), discarding persisted records",
			file.SchemaVersion, SchemaVersion)
		return
	}

	for fingerprint, compact := range file.Records {
		s.records[fingerprint] = Decompress(fingerprint, compact)
	}
	s.meta = file.Metadata
	log.Printf("📦 [CONTEXT-STORE] Loaded %d context records", len(s.records))
}

// Get returns a copy of the record for the fingerprint if present and within
// its TTL, updating LastUsedAt and UsageCount as an observable side effect.
// Expired records are reported as absent even though they remain physically
// present until the next cleanup or eviction pass.
func (s *RecordStore) Get(fingerprint string) (*ContextRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fingerprint]
	if !ok {
		return nil, false
	}

	now := s.clock()
	if !rec.Valid(now, s.opts.ExpiryDuration) {
		return nil, false
	}

	rec.LastUsedAt = now
	rec.UsageCount++
	s.persistLocked()

	return rec.clone(), true
}

// Peek returns the record without the usage-tracking side effect. Expired
// records are still reported absent.
func (s *RecordStore) Peek(fingerprint string) (*ContextRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fingerprint]
	if !ok || !rec.Valid(s.clock(), s.opts.ExpiryDuration) {
		return nil, false
	}
	return rec.clone(), true
}

// Put inserts or replaces the record at its fingerprint, evicting down to
// the MaxRecords ceiling afterwards. Idempotent for identical input. Storage
// faults are absorbed (emergency eviction plus a single retry, then no-op).
func (s *RecordStore) Put(rec *ContextRecord) {
	if rec == nil || rec.Fingerprint == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Fingerprint] = rec.clone()
	s.evictLocked(s.opts.MaxRecords)
	s.persistLocked()
}

// Remove deletes the record for the fingerprint, if any.
func (s *RecordStore) Remove(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[fingerprint]; !ok {
		return
	}
	delete(s.records, fingerprint)
	s.persistLocked()
}

// Clear drops every record.
func (s *RecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*ContextRecord)
	s.persistLocked()
}

// UpdateFields merges a partial update into an existing record's mutable
// fields and refreshes LastUsedAt. No-op if the fingerprint is absent.
func (s *RecordStore) UpdateFields(fingerprint string, update FieldUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fingerprint]
	if !ok {
		return false
	}

	if update.SummaryText != nil {
		rec.SummaryText = *update.SummaryText
	}
	if update.Tone != nil {
		rec.Tone = *update.Tone
	}
	if update.Intent != nil {
		rec.Intent = *update.Intent
	}
	rec.LastUsedAt = s.clock()
	s.persistLocked()
	return true
}

// Count returns the number of physically present records.
func (s *RecordStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ListStats reports collection-level statistics.
func (s *RecordStore) ListStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	stats := Stats{Total: len(s.records)}
	for _, rec := range s.records {
		if rec.Valid(now, s.opts.ExpiryDuration) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	stats.EstimatedSizeBytes = s.meta.EstimatedSizeBytes
	return stats
}

// CleanupExpired purges records past their TTL and refreshes the cleanup
// timestamp. Returns the number of records removed.
func (s *RecordStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for fingerprint, rec := range s.records {
		if !rec.Valid(now, s.opts.ExpiryDuration) {
			delete(s.records, fingerprint)
			removed++
		}
	}

	s.meta.LastCleanupAt = now.UnixMilli()
	s.persistLocked()

	if removed > 0 {
		log.Printf("🧹 [CONTEXT-STORE] Purged %d expired context records, %d remain", removed, len(s.records))
	}
	return removed
}

// evictLocked drops the least-favored records until at most target remain.
// Ordering is ascending by (LastUsedAt, UsageCount): oldest-accessed first,
// ties broken by least-used. A recency+frequency hybrid rather than strict
// LRU, so a record that is both old and unused goes first.
func (s *RecordStore) evictLocked(target int) {
	if len(s.records) <= target {
		return
	}

	type entry struct {
		fingerprint string
		rec         *ContextRecord
	}
	entries := make([]entry, 0, len(s.records))
	for fingerprint, rec := range s.records {
		entries = append(entries, entry{fingerprint, rec})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].rec, entries[j].rec
		if !a.LastUsedAt.Equal(b.LastUsedAt) {
			return a.LastUsedAt.Before(b.LastUsedAt)
		}
		return a.UsageCount < b.UsageCount
	})

	drop := len(entries) - target
	for _, e := range entries[:drop] {
		delete(s.records, e.fingerprint)
	}

	log.Printf("🗑️  [CONTEXT-STORE] Evicted %d context records (ceiling %d)", drop, target)
	if s.opts.OnEvict != nil {
		s.opts.OnEvict(drop)
	}
}

// persistLocked writes the compact store file. On a capacity fault it halves
// the collection (keeping the most-favored half) and retries exactly once;
// if the retry also fails the write is a logged no-op.
func (s *RecordStore) persistLocked() {
	if err := s.writeLocked(); err == nil {
		return
	} else if !errors.Is(err, ErrCapacityExceeded) {
		log.Printf("⚠️  [CONTEXT-STORE] Failed to persist records: %v (keeping in-memory state)", err)
		return
	}

	log.Printf("⚠️  [CONTEXT-STORE] Storage capacity exceeded, halving %d records and retrying", len(s.records))
	s.evictLocked(len(s.records) / 2)

	if err := s.writeLocked(); err != nil {
		log.Printf("⚠️  [CONTEXT-STORE] Persist retry failed: %v (write skipped)", err)
	}
}

func (s *RecordStore) writeLocked() error {
	compact := make(map[string]CompactRecord, len(s.records))
	for fingerprint, rec := range s.records {
		compact[fingerprint] = Compress(rec)
	}

	s.meta.TotalRecords = len(compact)

	file := storeFile{
		SchemaVersion: SchemaVersion,
		Records:       compact,
		Metadata:      s.meta,
	}
	data, err := json.Marshal(file)
	if err != nil {
		return err
	}

	s.meta.EstimatedSizeBytes = int64(len(data))
	file.Metadata = s.meta
	if data, err = json.Marshal(file); err != nil {
		return err
	}

	return s.kv.Put(context.Background(), s.opts.StorageKey, data)
}
