package watcher

import (
	"sync"
	"time"
)

// pathState is the per-path debounce bookkeeping.
type pathState struct {
	createdAt    time.Time // zero unless the path entered via a create event
	lastAccepted time.Time
	lastSeen     time.Time
}

// debouncer coalesces filesystem event bursts. A create opens a grace
// window during which follow-up writes to the same path are suppressed
// (files are typically written in many syscalls). Independently, a per-path
// cooldown bounds how often repeated modifications re-enter the queue.
// The clock is injectable so tests control time exactly.
type debouncer struct {
	grace    time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu    sync.Mutex
	paths map[string]*pathState
}

func newDebouncer(grace, cooldown time.Duration) *debouncer {
	return &debouncer{
		grace:    grace,
		cooldown: cooldown,
		now:      time.Now,
		paths:    make(map[string]*pathState),
	}
}

// observe records one create or write event and reports whether it should
// be accepted into the pipeline.
func (d *debouncer) observe(path string, created bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	st, seen := d.paths[path]
	if !seen {
		st = &pathState{}
		if created {
			st.createdAt = now
		}
		st.lastAccepted = now
		st.lastSeen = now
		d.paths[path] = st
		return true
	}

	st.lastSeen = now
	if !st.createdAt.IsZero() && now.Sub(st.createdAt) < d.grace {
		return false
	}
	if now.Sub(st.lastAccepted) < d.cooldown {
		return false
	}

	st.lastAccepted = now
	if created {
		st.createdAt = now
	} else {
		st.createdAt = time.Time{}
	}
	return true
}

// forget drops the state for a path, typically after a delete event.
func (d *debouncer) forget(path string) {
	d.mu.Lock()
	delete(d.paths, path)
	d.mu.Unlock()
}

// sweep prunes entries idle for longer than the horizon so the state map
// stays proportional to recent activity, not collection size. Returns the
// number of entries pruned.
func (d *debouncer) sweep() int {
	horizon := 10 * d.grace
	if 10*d.cooldown > horizon {
		horizon = 10 * d.cooldown
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	pruned := 0
	for path, st := range d.paths {
		if now.Sub(st.lastSeen) > horizon {
			delete(d.paths, path)
			pruned++
		}
	}
	return pruned
}

// size returns the number of tracked paths.
func (d *debouncer) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.paths)
}
