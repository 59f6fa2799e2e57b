package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facetone/facetone-go/internal/artifactcache"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/datastore"
	"github.com/facetone/facetone-go/internal/events"
	"github.com/facetone/facetone-go/internal/facedetect"
	"github.com/facetone/facetone-go/internal/logging"
	"github.com/facetone/facetone-go/internal/observability/metrics"
	"github.com/facetone/facetone-go/internal/pointcloud"
	"github.com/facetone/facetone-go/internal/region"
)

// Pool drains a deduplicated photo queue with a fixed number of workers.
// Each worker lazily creates and exclusively owns one Detector handle, so
// the non-goroutine-safe capability is never shared. Enqueue never refuses
// work; queue depth is surfaced as a signal instead.
type Pool struct {
	settings  *conf.Settings
	store     datastore.Interface
	cache     *artifactcache.Cache
	factory   facedetect.Factory
	sampler   *pointcloud.Sampler
	extractor *region.Extractor
	metrics   *metrics.PipelineMetrics
	bus       *events.EventBus
	logger    *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*item
	tracked map[string]ItemState // Queued and Running entries only
	running int
	stopped bool
	started bool

	onStatus func(QueueStatus)
	onDone   func(path string, state ItemState)

	wg sync.WaitGroup
}

// New creates an analysis pool. Nothing runs until Start is called.
func New(settings *conf.Settings, store datastore.Interface, cache *artifactcache.Cache,
	factory facedetect.Factory, m *metrics.PipelineMetrics, bus *events.EventBus) (*Pool, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	p := &Pool{
		settings:  settings,
		store:     store,
		cache:     cache,
		factory:   factory,
		sampler:   pointcloud.NewSampler(settings.Analysis.PointCloudCap, bus, m),
		extractor: region.NewExtractor(),
		metrics:   m,
		bus:       bus,
		logger:    logging.ForService("analysis"),
		tracked:   make(map[string]ItemState),
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

// SetStatusListener registers a callback invoked (under no lock ordering
// guarantees) whenever queue depth or running count changes. Must be set
// before Start.
func (p *Pool) SetStatusListener(fn func(QueueStatus)) {
	p.onStatus = fn
}

// SetCompletionListener registers a callback invoked once per item when it
// reaches a terminal state. Must be set before Start.
func (p *Pool) SetCompletionListener(fn func(path string, state ItemState)) {
	p.onDone = fn
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	workers := p.settings.Analysis.Workers
	if workers < 1 {
		workers = 1
	}
	p.mu.Unlock()

	p.logger.Info("starting analysis workers", "workers", workers)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Enqueue adds a photo path to the queue. It is idempotent for paths that
// are already queued or running and returns whether the path was newly
// accepted. Paths in a terminal state are always re-enqueueable.
func (p *Pool) Enqueue(path string) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	if state, ok := p.tracked[path]; ok && (state == StateQueued || state == StateRunning) {
		p.mu.Unlock()
		p.logger.Debug("enqueue deduplicated", "path", path, "state", state.String())
		return false
	}
	p.tracked[path] = StateQueued
	p.pending = append(p.pending, &item{
		id:         uuid.New().String(),
		path:       path,
		enqueuedAt: time.Now(),
	})
	p.publishStatusLocked()
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// Status returns the current queue depth and running count.
func (p *Pool) Status() QueueStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return QueueStatus{Depth: len(p.pending), Running: p.running}
}

// Shutdown stops the pool: no further items are dequeued, in-flight items
// run to completion, and the call waits for the workers (or the context)
// before returning. Items still pending stay unprocessed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	remaining := len(p.pending)
	p.mu.Unlock()
	p.cond.Broadcast()

	if remaining > 0 {
		p.logger.Info("shutting down with pending items", "pending", remaining)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker is one pool goroutine. The Detector handle is created on the first
// item rather than up front so a pool that never sees work never pays for
// the capability, and closed when the worker exits.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	var detector facedetect.Detector
	defer func() {
		if detector != nil {
			if err := detector.Close(); err != nil {
				p.logger.Warn("closing detector", "worker", id, "error", err)
			}
		}
	}()

	for {
		it := p.next()
		if it == nil {
			return
		}

		if detector == nil {
			d, err := p.factory.NewDetector()
			if err != nil {
				p.logger.Error("creating detector", "worker", id, "photo", it.path, "error", err)
				p.finish(it, StateFailed)
				continue
			}
			detector = d
		}

		state := p.runItem(detector, it)
		p.finish(it, state)
	}
}

// next blocks until an item is available or the pool stops.
func (p *Pool) next() *item {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) == 0 && !p.stopped {
		p.cond.Wait()
	}
	if p.stopped {
		return nil
	}
	it := p.pending[0]
	p.pending = p.pending[1:]
	p.tracked[it.path] = StateRunning
	p.running++
	p.publishStatusLocked()
	return it
}

// runItem executes the analysis pipeline for one item with panic isolation:
// a panicking capability or codec poisons only its own item.
func (p *Pool) runItem(detector facedetect.Detector, it *item) (state ItemState) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("analysis panicked", "photo", it.path, "job", it.id, "panic", r)
			state = StateFailed
		}
	}()

	start := time.Now()
	state, err := p.analyze(detector, it)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	}
	switch state {
	case StateCompleted:
		p.logger.Info("photo analyzed", "photo", it.path, "job", it.id, "elapsed_ms", elapsed.Milliseconds())
	case StateSkipped:
		p.logger.Debug("photo skipped", "photo", it.path, "job", it.id)
	case StateFailed:
		p.logger.Error("analysis failed", "photo", it.path, "job", it.id, "error", err)
	}
	return state
}

// finish moves an item to its terminal state and notifies observers. The
// tracked entry is removed so the path becomes re-enqueueable.
func (p *Pool) finish(it *item, state ItemState) {
	p.mu.Lock()
	delete(p.tracked, it.path)
	p.running--
	p.publishStatusLocked()
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.AnalysisOutcomes.WithLabelValues(state.String()).Inc()
	}
	if p.onDone != nil {
		p.onDone(it.path, state)
	}
}

// publishStatusLocked pushes the queue signal to every observer. Callers
// must hold p.mu.
func (p *Pool) publishStatusLocked() {
	depth := len(p.pending)
	running := p.running
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(depth))
		p.metrics.QueueRunning.Set(float64(running))
	}
	if p.bus != nil {
		p.bus.Publish(&events.QueueDepthEvent{
			Depth:     depth,
			Running:   running,
			Timestamp: time.Now(),
		})
	}
	if p.onStatus != nil {
		go p.onStatus(QueueStatus{Depth: depth, Running: running})
	}
}
