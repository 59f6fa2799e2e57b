// Package events provides an asynchronous event bus for decoupling pipeline
// diagnostics from their observers, preventing blocking operations on the
// analysis and watcher hot paths.
package events

import (
	"time"
)

// DiagnosticEvent is a pipeline diagnostic that can be processed asynchronously.
type DiagnosticEvent interface {
	// GetComponent returns the component that generated the event
	GetComponent() string

	// GetKind returns the event kind for routing
	GetKind() string

	// GetTimestamp returns when the event occurred
	GetTimestamp() time.Time

	// GetMetadata returns additional context data
	GetMetadata() map[string]any
}

// EventConsumer represents a consumer that processes diagnostic events
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single diagnostic event
	ProcessEvent(event DiagnosticEvent) error
}

// BusStats contains runtime statistics for monitoring
type BusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
	FastPathHits    uint64 // Number of times fast path was taken (no consumers)
}

// DownsampleEvent reports a point-cloud reduction so observers can reason
// about fidelity loss.
type DownsampleEvent struct {
	Path          string    // photo the point cloud belongs to
	OriginalCount int       // points before sampling
	SampledCount  int       // points after sampling
	Method        string    // sampling method identifier
	Timestamp     time.Time // when the reduction happened
}

// GetComponent returns the originating component.
func (e *DownsampleEvent) GetComponent() string { return "pointcloud" }

// GetKind returns the event kind.
func (e *DownsampleEvent) GetKind() string { return "downsample" }

// GetTimestamp returns when the event occurred.
func (e *DownsampleEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetMetadata returns the reduction details.
func (e *DownsampleEvent) GetMetadata() map[string]any {
	return map[string]any{
		"path":           e.Path,
		"original_count": e.OriginalCount,
		"sampled_count":  e.SampledCount,
		"method":         e.Method,
	}
}

// QueueDepthEvent reports the analysis queue backlog so an observer (UI)
// can display progress. Enqueues are never refused; depth is a signal only.
type QueueDepthEvent struct {
	Depth     int       // currently queued items
	Running   int       // items being processed
	Timestamp time.Time // when the snapshot was taken
}

// GetComponent returns the originating component.
func (e *QueueDepthEvent) GetComponent() string { return "analysis" }

// GetKind returns the event kind.
func (e *QueueDepthEvent) GetKind() string { return "queue-depth" }

// GetTimestamp returns when the event occurred.
func (e *QueueDepthEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetMetadata returns the queue snapshot.
func (e *QueueDepthEvent) GetMetadata() map[string]any {
	return map[string]any{
		"depth":   e.Depth,
		"running": e.Running,
	}
}
