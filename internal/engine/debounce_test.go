package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDebouncer_SingleFirePerWindow(t *testing.T) {
	var mu sync.Mutex
	var fires []snapshot
	d := newDebouncer(30*time.Millisecond, func(_ string, snap snapshot) {
		mu.Lock()
		fires = append(fires, snap)
		mu.Unlock()
	}, nil)

	d.trigger("doc", snapshot{current: "rev-1"})
	d.trigger("doc", snapshot{current: "rev-2"})
	d.trigger("doc", snapshot{current: "rev-3"})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fires) != 1 {
		t.Fatalf("Expected exactly one fire for a burst, got %d", len(fires))
	}
	if fires[0].current != "rev-3" {
		t.Errorf("Fire should carry the latest snapshot, got %q", fires[0].current)
	}
}

// Retriggering right at window expiry lands triggers in the gap between the
// timer firing and its callback acquiring the lock. A snapshot may fire once
// or be superseded, but never fire twice, and the final snapshot always wins.
func TestDebouncer_RetriggerAtWindowEdge(t *testing.T) {
	var mu sync.Mutex
	var fires []snapshot
	d := newDebouncer(5*time.Millisecond, func(_ string, snap snapshot) {
		mu.Lock()
		fires = append(fires, snap)
		mu.Unlock()
	}, nil)

	const rounds = 40
	for i := 0; i < rounds; i++ {
		d.trigger("doc", snapshot{current: fmt.Sprintf("rev-%d", i)})
		time.Sleep(4 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(fires) == 0 {
		t.Fatal("Expected at least one fire")
	}
	if got := fires[len(fires)-1].current; got != fmt.Sprintf("rev-%d", rounds-1) {
		t.Errorf("Last fire should carry the final snapshot, got %q", got)
	}

	seen := make(map[string]bool, len(fires))
	for _, snap := range fires {
		if seen[snap.current] {
			t.Errorf("Snapshot %q fired twice (stale timer wakeup)", snap.current)
		}
		seen[snap.current] = true
	}

	d.mu.Lock()
	leaked := len(d.pending)
	d.mu.Unlock()
	if leaked != 0 {
		t.Errorf("Pending entries leaked after quiescence: %d", leaked)
	}
}

func TestDebouncer_FlushAllCancels(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	d := newDebouncer(20*time.Millisecond, func(string, snapshot) {
		mu.Lock()
		fired++
		mu.Unlock()
	}, nil)

	d.trigger("doc-1", snapshot{current: "a"})
	d.trigger("doc-2", snapshot{current: "b"})
	d.flushAll()

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != 0 {
		t.Errorf("Flushed triggers must not fire, got %d fires", fired)
	}
}

func TestDebouncer_CollapseCallback(t *testing.T) {
	collapsed := 0
	d := newDebouncer(time.Hour, func(string, snapshot) {}, func() { collapsed++ })

	d.trigger("doc", snapshot{current: "a"})
	d.trigger("doc", snapshot{current: "b"})
	d.trigger("doc", snapshot{current: "c"})
	defer d.flushAll()

	if collapsed != 2 {
		t.Errorf("Expected 2 collapsed triggers, got %d", collapsed)
	}
}
