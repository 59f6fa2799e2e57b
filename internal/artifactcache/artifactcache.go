// Package artifactcache persists and retrieves derived artifacts (thumbnails
// and serialized point clouds) keyed by photo path. Validity is never
// inferred from presence: every read compares the stored modification-time
// snapshot against the file's current modification time, and only equality
// counts; a reverted file can carry an older mtime than a stale entry.
package artifactcache

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/facetone/facetone-go/internal/datastore"
	"github.com/facetone/facetone-go/internal/errors"
	"github.com/facetone/facetone-go/internal/observability/metrics"
)

// Artifact is a cached derived payload with its generation snapshot.
type Artifact struct {
	Path          string
	Kind          string
	SourceModTime time.Time
	Payload       []byte
	Width         int
	Height        int
}

// Cache layers an in-memory hot cache over the datastore-persisted
// artifacts. Concurrent use from multiple workers is safe; conflicting
// writes to the same key are serialized by the datastore and resolve
// last-writer-wins.
type Cache struct {
	store   datastore.Interface
	memory  *gocache.Cache
	metrics *metrics.PipelineMetrics
	logger  *slog.Logger
}

// New creates an artifact cache. memoryTTL bounds how long the hot layer
// keeps entries; persisted artifacts live until eviction or invalidation.
func New(store datastore.Interface, memoryTTL time.Duration, m *metrics.PipelineMetrics, logger *slog.Logger) *Cache {
	return &Cache{
		store:   store,
		memory:  gocache.New(memoryTTL, 2*memoryTTL),
		metrics: m,
		logger:  logger,
	}
}

func memoryKey(path, kind string) string {
	return path + "\x00" + kind
}

// Get returns the cached artifact for path and kind, but only when its
// stored mtime snapshot equals currentModTime. A stale entry is treated
// identically to a miss; regeneration replaces it via Put.
func (c *Cache) Get(path, kind string, currentModTime time.Time) (*Artifact, bool) {
	if cached, ok := c.memory.Get(memoryKey(path, kind)); ok {
		artifact := cached.(*Artifact)
		if artifact.SourceModTime.Equal(currentModTime) {
			c.countHit()
			c.touch(path, kind)
			return artifact, true
		}
		c.memory.Delete(memoryKey(path, kind))
	}

	stored, err := c.store.GetArtifact(path, kind)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("artifact lookup failed", "path", path, "kind", kind, "error", err)
		}
		c.countMiss()
		return nil, false
	}
	if stored == nil {
		c.countMiss()
		return nil, false
	}
	if !stored.SourceModTime.Equal(currentModTime) {
		if c.metrics != nil {
			c.metrics.CacheStale.Inc()
		}
		return nil, false
	}

	artifact := &Artifact{
		Path:          stored.Path,
		Kind:          stored.Kind,
		SourceModTime: stored.SourceModTime,
		Payload:       stored.Payload,
		Width:         stored.Width,
		Height:        stored.Height,
	}
	c.memory.SetDefault(memoryKey(path, kind), artifact)
	c.countHit()
	c.touch(path, kind)
	return artifact, true
}

// Put upserts the artifact for its path and kind, replacing any prior entry.
func (c *Cache) Put(artifact *Artifact) error {
	now := time.Now()
	err := c.store.SaveArtifact(&datastore.CachedArtifact{
		Path:          artifact.Path,
		Kind:          artifact.Kind,
		SourceModTime: artifact.SourceModTime,
		Payload:       artifact.Payload,
		Width:         artifact.Width,
		Height:        artifact.Height,
		CreatedAt:     now,
		LastAccessed:  now,
	})
	if err != nil {
		return errors.New(err).
			Component("artifactcache").
			Category(errors.CategoryImageCache).
			Context("path", artifact.Path).
			Context("kind", artifact.Kind).
			Build()
	}
	c.memory.SetDefault(memoryKey(artifact.Path, artifact.Kind), artifact)
	return nil
}

// Touch updates last-access time for LRU accounting without altering the
// payload.
func (c *Cache) Touch(path, kind string) {
	c.touch(path, kind)
}

func (c *Cache) touch(path, kind string) {
	if err := c.store.TouchArtifact(path, kind, time.Now()); err != nil && c.logger != nil {
		c.logger.Debug("artifact touch failed", "path", path, "kind", kind, "error", err)
	}
}

// Invalidate removes all artifacts for a path, typically after the source
// file was deleted or rewritten.
func (c *Cache) Invalidate(path string) error {
	c.memory.Delete(memoryKey(path, datastore.ArtifactThumbnail))
	c.memory.Delete(memoryKey(path, datastore.ArtifactPointCloud))
	if err := c.store.DeleteArtifacts(path); err != nil {
		return errors.New(err).
			Component("artifactcache").
			Category(errors.CategoryImageCache).
			Context("path", path).
			Build()
	}
	return nil
}

// EvictOlderThan removes artifacts not accessed within the retention window
// and reports how many were evicted. The hot layer expires on its own TTL.
func (c *Cache) EvictOlderThan(retention time.Duration) (int64, error) {
	evicted, err := c.store.DeleteArtifactsNotAccessedSince(time.Now().Add(-retention))
	if err != nil {
		return 0, errors.New(err).
			Component("artifactcache").
			Category(errors.CategoryImageCache).
			Context("retention", retention.String()).
			Build()
	}
	if evicted > 0 && c.logger != nil {
		c.logger.Info("evicted unused artifacts", "count", evicted, "retention", retention.String())
	}
	return evicted, nil
}

// Clear removes every cached artifact.
func (c *Cache) Clear() error {
	c.memory.Flush()
	if err := c.store.ClearArtifacts(); err != nil {
		return errors.New(err).
			Component("artifactcache").
			Category(errors.CategoryImageCache).
			Build()
	}
	return nil
}

// Measure runs an artifact generator, records its cost (elapsed time and
// payload size) and returns the payload. The cache reports cost and leaves
// the caching-worthwhile judgment to the caller.
func (c *Cache) Measure(kind string, generate func() ([]byte, error)) ([]byte, time.Duration, error) {
	start := time.Now()
	payload, err := generate()
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}
	if c.metrics != nil {
		c.metrics.ObserveArtifact(kind, elapsed, len(payload))
	}
	return payload, elapsed, nil
}

func (c *Cache) countHit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *Cache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}
