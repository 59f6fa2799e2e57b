// Package analysis implements the concurrent photo analysis pipeline: a
// deduplicated work queue drained by a fixed pool of workers, each owning a
// private face detection handle, feeding results into the datastore and the
// derived artifact cache.
package analysis

import (
	"time"

	"github.com/facetone/facetone-go/internal/errors"
)

// Common errors returned by pool operations
var (
	ErrPoolStopped = errors.NewStd("analysis pool has been stopped")
	ErrNilFactory  = errors.NewStd("detector factory must not be nil")
)

// ItemState represents the lifecycle of one queued photo.
type ItemState int

const (
	// StateQueued indicates the photo is waiting for a worker
	StateQueued ItemState = iota
	// StateRunning indicates a worker is analyzing the photo
	StateRunning
	// StateCompleted indicates analysis finished and was persisted
	StateCompleted
	// StateFailed indicates the detection capability could not process the photo
	StateFailed
	// StateSkipped indicates the photo needed no work (gone or unchanged)
	StateSkipped
)

// String returns a string representation of the item state
func (s ItemState) String() string {
	switch s {
	case StateQueued:
		return "Queued"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// item is one queued photo with its tracking metadata.
type item struct {
	id         string // correlation ID for logs
	path       string
	enqueuedAt time.Time
}

// QueueStatus is a point-in-time snapshot of the queue for observers.
// Enqueues are never refused; depth is a backpressure signal only.
type QueueStatus struct {
	Depth   int // photos waiting
	Running int // photos being analyzed
}

// SessionCounters accumulate outcomes for one logical session (a scan run
// or a watch period). They are explicit return values scoped to the call,
// never shared mutable state.
type SessionCounters struct {
	Completed int
	Failed    int
	Skipped   int
}

// add merges a single outcome into the counters.
func (c *SessionCounters) add(state ItemState) {
	switch state {
	case StateCompleted:
		c.Completed++
	case StateFailed:
		c.Failed++
	case StateSkipped:
		c.Skipped++
	}
}
