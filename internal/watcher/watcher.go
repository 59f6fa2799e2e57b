// Package watcher observes the photo collection: an initial recursive scan
// seeds the analysis queue, then fsnotify events keep it current. Event
// bursts are debounced and every path decision runs through the same
// filename filter as the scan.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/facetone/facetone-go/internal/artifactcache"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/datastore"
	"github.com/facetone/facetone-go/internal/errors"
	"github.com/facetone/facetone-go/internal/logging"
	"github.com/facetone/facetone-go/internal/observability/metrics"
)

// sweepInterval is how often stale debounce state is pruned.
const sweepInterval = 5 * time.Minute

// Enqueuer accepts photo paths for analysis. It must never block; the pool
// satisfies this by deduplicating instead of refusing.
type Enqueuer interface {
	Enqueue(path string) bool
}

// Watcher ties the collection root to the analysis queue.
type Watcher struct {
	settings *conf.Settings
	enqueue  Enqueuer
	store    datastore.Interface
	cache    *artifactcache.Cache
	metrics  *metrics.PipelineMetrics
	logger   *slog.Logger

	filter   *Filter
	debounce *debouncer
}

// New creates a watcher for the configured collection root.
func New(settings *conf.Settings, enqueue Enqueuer, store datastore.Interface,
	cache *artifactcache.Cache, m *metrics.PipelineMetrics) *Watcher {
	return &Watcher{
		settings: settings,
		enqueue:  enqueue,
		store:    store,
		cache:    cache,
		metrics:  m,
		logger:   logging.ForService("watcher"),
		filter:   NewFilter(settings.Watcher.Ignore),
		debounce: newDebouncer(settings.Watcher.Grace, settings.Watcher.Cooldown),
	}
}

// Scan walks the collection root once and enqueues every accepted photo.
// It returns the number of photos enqueued. The walk honors the same
// filename filter as the live event path and stops early on context
// cancellation.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	root := w.settings.Input.Path
	enqueued := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("scan entry error", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && !w.settings.Input.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !w.filter.Accept(path) {
			return nil
		}
		if w.enqueue.Enqueue(path) {
			enqueued++
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return enqueued, errors.New(err).
			Component("watcher").
			Category(errors.CategoryFileIO).
			Context("root", root).
			Build()
	}

	w.logger.Info("scan complete", "root", root, "enqueued", enqueued)
	return enqueued, ctx.Err()
}

// Watch runs the live event loop until the context is canceled. The initial
// scan is the caller's decision; Watch only reacts to changes.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(err).
			Component("watcher").
			Category(errors.CategoryWatcher).
			Build()
	}
	defer fsw.Close()

	if err := w.addDirectories(fsw); err != nil {
		return err
	}

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	w.logger.Info("watching collection", "root", w.settings.Input.Path,
		"recursive", w.settings.Input.Recursive,
		"grace", w.settings.Watcher.Grace.String(),
		"cooldown", w.settings.Watcher.Cooldown.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-sweep.C:
			if pruned := w.debounce.sweep(); pruned > 0 {
				w.logger.Debug("pruned debounce state", "pruned", pruned, "tracked", w.debounce.size())
			}
		}
	}
}

// addDirectories registers the root (and, when recursive, every existing
// subdirectory) with the fsnotify watcher.
func (w *Watcher) addDirectories(fsw *fsnotify.Watcher) error {
	root := w.settings.Input.Path
	if !w.settings.Input.Recursive {
		if err := fsw.Add(root); err != nil {
			return errors.New(err).
				Component("watcher").
				Category(errors.CategoryWatcher).
				Context("root", root).
				Build()
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// handleEvent routes one filesystem event through filtering, debouncing and
// the matching pipeline action.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		// New directories must be added to the watch set before their
		// contents generate events we would otherwise miss.
		if w.settings.Input.Recursive {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := fsw.Add(event.Name); err != nil {
					w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
				}
				return
			}
		}
		w.observePhoto(event.Name, true)

	case event.Op.Has(fsnotify.Write):
		w.observePhoto(event.Name, false)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.handleDelete(event.Name)
	}
}

// observePhoto applies the filter and the debouncer to a create or write
// event, enqueueing the path when accepted.
func (w *Watcher) observePhoto(path string, created bool) {
	if !w.filter.Accept(path) {
		return
	}
	if !w.debounce.observe(path, created) {
		if w.metrics != nil {
			w.metrics.WatcherSuppressed.Inc()
		}
		w.logger.Debug("event suppressed", "path", path, "created", created)
		return
	}

	eventType := "write"
	if created {
		eventType = "create"
	}
	if w.metrics != nil {
		w.metrics.WatcherAccepted.WithLabelValues(eventType).Inc()
	}
	w.enqueue.Enqueue(path)
}

// handleDelete reacts to a removed photo: cached artifacts are always
// invalidated and the photo is marked removed; the analysis result follows
// the configured retention policy.
func (w *Watcher) handleDelete(path string) {
	if !w.filter.Accept(path) {
		return
	}
	w.debounce.forget(path)

	if w.metrics != nil {
		w.metrics.WatcherAccepted.WithLabelValues("delete").Inc()
	}
	if err := w.cache.Invalidate(path); err != nil {
		w.logger.Warn("invalidating artifacts failed", "path", path, "error", err)
	}
	if err := w.store.MarkPhotoRemoved(path); err != nil {
		w.logger.Warn("marking photo removed failed", "path", path, "error", err)
	}
	if w.settings.Retention.OnDelete == conf.PurgeOnDelete {
		if err := w.store.DeleteResult(path); err != nil {
			w.logger.Warn("purging result failed", "path", path, "error", err)
		}
	}

	w.logger.Info("photo removed", "path", path, "policy", string(w.settings.Retention.OnDelete))
}
