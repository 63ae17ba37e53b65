// Package engine implements the Generation Coordinator: it decides whether
// a text change warrants regenerating its semantic summary, deduplicates
// concurrent generation requests per content fingerprint, debounces
// live-typing triggers, and writes successful results to the record store.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"contextd/internal/logging"
	"contextd/internal/services"
	"contextd/internal/similarity"
	"contextd/internal/store"
	"contextd/internal/summarizer"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Config is the immutable-per-session engine configuration. Thresholds and
// the debounce window can be hot-reloaded through ApplyThresholds.
type Config struct {
	Enabled      bool
	AutoGenerate bool

	// UpdateThreshold: below this similarity, regeneration triggers.
	UpdateThreshold float64
	// CacheThreshold: at or above this similarity, the cached record is
	// trusted outright and only touched to keep it warm.
	CacheThreshold float64

	MinInputLength int
	MaxInputLength int

	DebounceWindow  time.Duration
	GenerateTimeout time.Duration
	// CooldownWindow suppresses re-attempts for a (fingerprint, model) pair
	// after a failed generation.
	CooldownWindow time.Duration

	// Rate limit on external summarizer launches.
	RateLimit rate.Limit
	RateBurst int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		AutoGenerate:    true,
		UpdateThreshold: 0.8,
		CacheThreshold:  0.95,
		MinInputLength:  50,
		MaxInputLength:  10000,
		DebounceWindow:  2 * time.Second,
		GenerateTimeout: 30 * time.Second,
		CooldownWindow:  30 * time.Second,
		RateLimit:       rate.Limit(1),
		RateBurst:       3,
	}
}

// inflightCall is one in-progress generation. Late arrivals for the same
// (fingerprint, model) pair wait on done and read the shared result instead
// of launching a duplicate external call.
type inflightCall struct {
	done chan struct{}
	rec  *store.ContextRecord
	err  error
}

// UpdateFunc receives newly generated records. Failures inside the callback
// are isolated and logged; they never abort coordinator bookkeeping.
type UpdateFunc func(rec *store.ContextRecord)

// Coordinator owns the regeneration decision. It holds no persistent state
// beyond the transient in-flight map, which can be dropped on restart
// without correctness loss.
type Coordinator struct {
	mu       sync.Mutex
	cfg      Config
	store    *store.RecordStore
	summ     summarizer.Summarizer
	inflight map[string]*inflightCall
	// observers holds the latest onUpdate callback per debounce key; the
	// debouncer carries only text snapshots.
	observers map[string]UpdateFunc
	cooldown  *cache.Cache
	limiter   *rate.Limiter
	debounce  *debouncer
	metrics   *services.Metrics
}

// NewCoordinator wires the coordinator to its store and summarizer. metrics
// may be nil (all recording is nil-safe).
func NewCoordinator(recordStore *store.RecordStore, summ summarizer.Summarizer, cfg Config, metrics *services.Metrics) *Coordinator {
	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = DefaultConfig().CooldownWindow
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultConfig().GenerateTimeout
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultConfig().DebounceWindow
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultConfig().RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultConfig().RateBurst
	}

	c := &Coordinator{
		cfg:       cfg,
		store:     recordStore,
		summ:      summ,
		inflight:  make(map[string]*inflightCall),
		observers: make(map[string]UpdateFunc),
		cooldown:  cache.New(cfg.CooldownWindow, cfg.CooldownWindow),
		limiter:   rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		metrics:   metrics,
	}
	c.debounce = newDebouncer(cfg.DebounceWindow, c.fireDebounced, metrics.RecordDebounceCollapse)
	return c
}

// Config returns a copy of the current configuration.
func (c *Coordinator) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// ApplyThresholds hot-reloads the tunable decision parameters.
func (c *Coordinator) ApplyThresholds(updateThreshold, cacheThreshold float64, debounceWindow time.Duration) {
	c.mu.Lock()
	if updateThreshold > 0 && updateThreshold <= 1 {
		c.cfg.UpdateThreshold = updateThreshold
	}
	if cacheThreshold > 0 && cacheThreshold <= 1 {
		c.cfg.CacheThreshold = cacheThreshold
	}
	if debounceWindow > 0 {
		c.cfg.DebounceWindow = debounceWindow
	}
	c.mu.Unlock()

	if debounceWindow > 0 {
		c.debounce.setWindow(debounceWindow)
	}
	log.Printf("📋 [COORDINATOR] Thresholds applied (update=%.2f cache=%.2f debounce=%v)",
		updateThreshold, cacheThreshold, debounceWindow)
}

// CheckAndUpdate compares the two snapshots and regenerates the summary for
// currentText when the change is significant enough. It never returns an
// error: every failure degrades to "no context available".
func (c *Coordinator) CheckAndUpdate(ctx context.Context, currentText, previousText string, model summarizer.ModelRef, onUpdate UpdateFunc) {
	if currentText == previousText {
		return
	}

	cfg := c.Config()
	sim := similarity.JaccardSimilarity(currentText, previousText)

	if sim >= cfg.CacheThreshold {
		// Near-identical: trust whatever is cached and keep it warm.
		c.store.Get(similarity.Fingerprint(currentText))
		return
	}
	if sim >= cfg.UpdateThreshold {
		// Changed, but not enough to re-summarize.
		return
	}

	rec, err := c.GenerateForText(ctx, currentText, model)
	if err != nil || rec == nil {
		return
	}
	notify(onUpdate, rec)
}

// ScheduleCheck is the live-typing entry point: triggers for the same key
// within one debounce window collapse into a single trailing CheckAndUpdate
// carrying the latest snapshot.
func (c *Coordinator) ScheduleCheck(key, currentText, previousText string, model summarizer.ModelRef, onUpdate UpdateFunc) {
	c.mu.Lock()
	enabled := c.cfg.Enabled && c.cfg.AutoGenerate
	if enabled && onUpdate != nil {
		c.observers[key] = onUpdate
	}
	c.mu.Unlock()
	if !enabled {
		return
	}

	c.debounce.trigger(key, snapshot{current: currentText, previous: previousText, modelID: model.ID})
}

// fireDebounced is the trailing edge of the debounce window: it consumes the
// latest observer registered for the key and runs the similarity check on
// the final snapshot. The observer entry is released here; the next
// ScheduleCheck re-registers it, so the map stays bounded by the number of
// currently armed windows.
func (c *Coordinator) fireDebounced(key string, snap snapshot) {
	c.mu.Lock()
	onUpdate := c.observers[key]
	delete(c.observers, key)
	timeout := c.cfg.GenerateTimeout
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.CheckAndUpdate(ctx, snap.current, snap.previous, summarizer.ModelRef{ID: snap.modelID}, onUpdate)
}

// GenerateForText produces (or fetches) the context record for the text.
// Absent results come back as (nil, err) with a taxonomy error; the caller
// always has a safe default.
func (c *Coordinator) GenerateForText(ctx context.Context, text string, model summarizer.ModelRef) (*store.ContextRecord, error) {
	cfg := c.Config()

	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	// Length gates are measured in characters, matching the truncation
	// budget; multibyte text must not trip them on byte count.
	textChars := utf8.RuneCountInString(text)
	if text == "" || textChars < cfg.MinInputLength {
		return nil, ErrInputRejected
	}
	if model.ID == "" {
		return nil, ErrInputRejected
	}

	// The fingerprint is always computed over the original, untruncated
	// text so future lookups for the same document hit the cache even when
	// generation used a shortened view.
	originalLength := textChars
	genText := text
	truncated := false
	if textChars > cfg.MaxInputLength {
		genText = TruncateForGeneration(text, cfg.MaxInputLength)
		truncated = true
	}

	fingerprint := similarity.Fingerprint(text)

	if rec, ok := c.store.Get(fingerprint); ok {
		c.metrics.RecordCacheHit()
		return rec, nil
	}
	c.metrics.RecordCacheMiss()

	cooldownKey := fingerprint + "|" + model.ID
	if _, cooling := c.cooldown.Get(cooldownKey); cooling {
		return nil, ErrCoolingDown
	}

	rec, err := c.coalesce(ctx, cooldownKey, func() (*store.ContextRecord, error) {
		return c.generate(ctx, genText, fingerprint, originalLength, truncated, model)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// coalesce runs work once per key; concurrent callers for the same key wait
// for and share the first caller's result.
func (c *Coordinator) coalesce(ctx context.Context, key string, work func() (*store.ContextRecord, error)) (*store.ContextRecord, error) {
	c.mu.Lock()
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		c.metrics.RecordCoalescedJoin()
		select {
		case <-call.done:
			return call.rec, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.rec, call.err = work()

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(call.done)

	return call.rec, call.err
}

// generate performs one external summarizer call and persists the result.
func (c *Coordinator) generate(ctx context.Context, genText, fingerprint string, originalLength int, truncated bool, model summarizer.ModelRef) (*store.ContextRecord, error) {
	cfg := c.Config()
	cooldownKey := fingerprint + "|" + model.ID

	if !c.limiter.Allow() {
		c.metrics.RecordGenerationError("rate_limited")
		return nil, ErrRateLimited
	}

	generationID := uuid.NewString()
	c.metrics.RecordGeneration()
	logging.WithGeneration(generationID, fingerprint, model.ID).
		Debug("generation launched", "chars", utf8.RuneCountInString(genText), "truncated", truncated)

	genCtx, cancel := context.WithTimeout(ctx, cfg.GenerateTimeout)
	defer cancel()

	started := time.Now()
	result, err := c.summ.GenerateSummary(genCtx, genText, model)
	c.metrics.RecordGenerationLatency(time.Since(started).Seconds())

	if err != nil {
		c.cooldown.Set(cooldownKey, struct{}{}, cache.DefaultExpiration)
		c.metrics.RecordGenerationError("summarizer")
		log.Printf("⚠️  [COORDINATOR] Generation %s failed for %s: %v", generationID, fingerprint, err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if result == nil || result.SummaryText == "" {
		c.cooldown.Set(cooldownKey, struct{}{}, cache.DefaultExpiration)
		c.metrics.RecordGenerationError("empty_result")
		return nil, ErrGenerationFailed
	}

	summaryText := result.SummaryText
	if truncated {
		summaryText += " [summary derived from truncated input]"
	}

	now := time.Now()
	rec := &store.ContextRecord{
		Fingerprint:     fingerprint,
		SummaryText:     summaryText,
		Tone:            result.Tone,
		Intent:          result.Intent,
		TopArguments:    result.TopArguments,
		SourceModelID:   model.ID,
		Confidence:      result.Confidence,
		CreatedAt:       now,
		LastUsedAt:      now,
		UsageCount:      0,
		TextLength:      originalLength,
		TruncatedSource: truncated,
	}

	c.store.Put(rec)
	log.Printf("✅ [COORDINATOR] Generation %s cached context for %s (%d chars, tone=%s)",
		generationID, fingerprint, originalLength, rec.Tone)
	return rec, nil
}

// InflightCount reports the number of generations currently in flight.
func (c *Coordinator) InflightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Shutdown cancels pending debounce triggers and releases their observers.
// In-flight generations finish on their own contexts.
func (c *Coordinator) Shutdown() {
	c.debounce.flushAll()

	c.mu.Lock()
	c.observers = make(map[string]UpdateFunc)
	c.mu.Unlock()
}

// notify invokes the observer behind a recover guard: a panicking callback
// must not abort coordinator bookkeeping.
func notify(onUpdate UpdateFunc, rec *store.ContextRecord) {
	if onUpdate == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  [COORDINATOR] onUpdate callback panicked: %v", r)
		}
	}()
	onUpdate(rec)
}
