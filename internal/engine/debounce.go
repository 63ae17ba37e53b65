package engine

import (
	"sync"
	"time"
)

// snapshot is the latest (current, previous) text pair observed for a
// debounce key, plus the model to generate with.
type snapshot struct {
	current  string
	previous string
	modelID  string
}

// debouncer collapses bursts of triggers into a single trailing invocation
// per key: of N triggers inside one window, exactly one fires, carrying the
// most recent snapshot. Keys are caller-chosen (one per document/editor).
type debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pendingTrigger
	fire    func(key string, snap snapshot)
	// onCollapse is called for every trigger absorbed by an already-armed
	// window. Metrics hook.
	onCollapse func()
}

type pendingTrigger struct {
	timer *time.Timer
	snap  snapshot
}

func newDebouncer(window time.Duration, fire func(key string, snap snapshot), onCollapse func()) *debouncer {
	return &debouncer{
		window:     window,
		pending:    make(map[string]*pendingTrigger),
		fire:       fire,
		onCollapse: onCollapse,
	}
}

// trigger records the latest snapshot for key and arms a fresh trailing
// timer. A new timer per trigger instead of Reset: a Reset can re-arm a
// timer whose callback has already fired and is waiting on the lock, which
// would fire the key a second time one window later. The callback checks it
// is still the registered trigger for its key and abandons stale wakeups.
func (d *debouncer) trigger(key string, snap snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
		if d.onCollapse != nil {
			d.onCollapse()
		}
	}

	p := &pendingTrigger{snap: snap}
	p.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.pending[key] != p {
			// Superseded by a newer trigger while waiting on the lock.
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		snap := p.snap
		d.mu.Unlock()

		d.fire(key, snap)
	})
	d.pending[key] = p
}

// setWindow changes the debounce window for triggers armed from now on.
func (d *debouncer) setWindow(window time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.window = window
}

// flushAll cancels all pending triggers without firing them.
func (d *debouncer) flushAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
