package analysis

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/facetone/facetone-go/internal/artifactcache"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/datastore"
	"github.com/facetone/facetone-go/internal/errors"
	"github.com/facetone/facetone-go/internal/events"
	"github.com/facetone/facetone-go/internal/facedetect"
	"github.com/facetone/facetone-go/internal/logging"
	"github.com/facetone/facetone-go/internal/observability/metrics"
	"github.com/facetone/facetone-go/internal/watcher"
)

// evictionInterval is how often the artifact cache retention sweep runs in
// watch mode.
const evictionInterval = time.Hour

// shutdownTimeout bounds how long Shutdown waits for in-flight analyses.
const shutdownTimeout = 30 * time.Second

// Runtime bundles the wired pipeline components behind the scan and watch
// entry points.
type Runtime struct {
	Settings *conf.Settings
	Store    datastore.Interface
	Cache    *artifactcache.Cache
	Metrics  *metrics.PipelineMetrics
	Registry *prometheus.Registry
	Bus      *events.EventBus
	Pool     *Pool
}

// NewRuntime opens the datastore and wires the metrics, event bus, artifact
// cache and worker pool together. The pool is not started.
func NewRuntime(settings *conf.Settings, factory facedetect.Factory) (*Runtime, error) {
	store := datastore.New(settings)
	if store == nil {
		return nil, errors.Newf("no database output enabled, set output.sqlite or output.mysql").
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(registry)

	bus, err := events.Initialize(nil, logging.ForService("events"))
	if err != nil {
		return nil, err
	}
	bus.Start()

	cache := artifactcache.New(store, settings.Cache.MemoryTTL, m, logging.ForService("artifactcache"))

	pool, err := New(settings, store, cache, factory, m, bus)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Settings: settings,
		Store:    store,
		Cache:    cache,
		Metrics:  m,
		Registry: registry,
		Bus:      bus,
		Pool:     pool,
	}, nil
}

// Close shuts down the pool, the event bus and the datastore.
func (rt *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.Pool.Shutdown(ctx); err != nil {
		logging.Warn("pool shutdown timed out", "error", err)
	}
	rt.Bus.Stop()
	if err := rt.Store.Close(); err != nil {
		logging.Warn("closing datastore", "error", err)
	}
}

// Scan analyzes the configured collection root once and returns the session
// counters. It blocks until every enqueued photo reaches a terminal state
// or the context is canceled.
func Scan(ctx context.Context, settings *conf.Settings, factory facedetect.Factory) (SessionCounters, error) {
	var counters SessionCounters

	rt, err := NewRuntime(settings, factory)
	if err != nil {
		return counters, err
	}
	defer rt.Close()

	var mu sync.Mutex
	finished := 0
	target := -1 // unknown until the walk completes
	done := make(chan struct{})
	closeDone := sync.OnceFunc(func() { close(done) })

	rt.Pool.SetCompletionListener(func(path string, state ItemState) {
		mu.Lock()
		counters.add(state)
		finished++
		if target >= 0 && finished >= target {
			closeDone()
		}
		mu.Unlock()
	})
	rt.Pool.Start()

	w := watcher.New(settings, rt.Pool, rt.Store, rt.Cache, rt.Metrics)
	enqueued, err := w.Scan(ctx)
	if err != nil {
		return counters, err
	}

	mu.Lock()
	target = enqueued
	if finished >= target {
		closeDone()
	}
	mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return counters, ctx.Err()
	}

	logging.Info("scan session finished",
		"enqueued", enqueued,
		"completed", counters.Completed,
		"failed", counters.Failed,
		"skipped", counters.Skipped)
	return counters, nil
}

// Watch runs the continuous pipeline: an initial scan seeds the queue, then
// filesystem events keep it current while the retention sweep keeps the
// artifact cache bounded. It blocks until the context is canceled.
func Watch(ctx context.Context, settings *conf.Settings, factory facedetect.Factory) error {
	rt, err := NewRuntime(settings, factory)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Pool.Start()

	if settings.Telemetry.Enabled {
		go serveMetrics(ctx, settings.Telemetry.Listen, rt.Registry)
	}

	w := watcher.New(settings, rt.Pool, rt.Store, rt.Cache, rt.Metrics)
	if _, err := w.Scan(ctx); err != nil {
		return err
	}

	go evictionLoop(ctx, rt.Cache, settings.Cache.Retention)

	err = w.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// evictionLoop periodically evicts artifacts outside the retention window.
func evictionLoop(ctx context.Context, cache *artifactcache.Cache, retention time.Duration) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cache.EvictOlderThan(retention); err != nil {
				logging.Warn("artifact eviction failed", "error", err)
			}
		}
	}
}

// serveMetrics exposes the pipeline's prometheus registry over HTTP until
// the context is canceled.
func serveMetrics(ctx context.Context, listen string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("telemetry endpoint listening", "listen", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Warn("telemetry endpoint failed", "error", err)
	}
}

// Stats prints the aggregate view for all analyzed photos under a prefix.
func Stats(settings *conf.Settings, pathPrefix string) (datastore.CollectionStats, error) {
	store := datastore.New(settings)
	if store == nil {
		return datastore.CollectionStats{}, fmt.Errorf("no database output enabled")
	}
	if err := store.Open(); err != nil {
		return datastore.CollectionStats{}, err
	}
	defer func() { _ = store.Close() }()

	return store.CollectionStats(pathPrefix)
}
