// Package jobs holds the engine's periodic maintenance jobs.
package jobs

import (
	"context"
	"log"
	"time"

	"contextd/internal/store"
)

// Job is the contract every scheduled job implements.
type Job interface {
	Run(ctx context.Context) error
}

// StoreCleanupJob purges expired context records so TTL-invalid entries stop
// occupying the record ceiling. Expiry is already enforced logically on
// every read; this pass reclaims the physical slots.
type StoreCleanupJob struct {
	store   *store.RecordStore
	lastRun time.Time
}

// NewStoreCleanupJob creates the cleanup job over the record store.
func NewStoreCleanupJob(recordStore *store.RecordStore) *StoreCleanupJob {
	return &StoreCleanupJob{store: recordStore}
}

// Run purges expired records and logs the outcome.
func (j *StoreCleanupJob) Run(_ context.Context) error {
	j.lastRun = time.Now()

	removed := j.store.CleanupExpired()
	if removed == 0 {
		return nil
	}

	stats := j.store.ListStats()
	log.Printf("🧹 [CLEANUP] Removed %d expired records (%d valid remain, ~%d bytes persisted)",
		removed, stats.Valid, stats.EstimatedSizeBytes)
	return nil
}

// LastRun reports when the job last executed (zero before the first run).
func (j *StoreCleanupJob) LastRun() time.Time {
	return j.lastRun
}
