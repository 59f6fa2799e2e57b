package analysis

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/facetone/facetone-go/internal/artifactcache"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/datastore"
	"github.com/facetone/facetone-go/internal/facedetect"
)

func TestMain(m *testing.M) {
	// The go-cache janitor goroutine lives until its finalizer runs.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

// countingFactory tracks how many detector handles were created and lets
// tests swap the detection behavior even for already-created handles.
type countingFactory struct {
	created atomic.Int32
	mu      sync.Mutex
	detect  func(img image.Image) (facedetect.Detection, error)
}

func (f *countingFactory) NewDetector() (facedetect.Detector, error) {
	f.created.Add(1)
	return &stubDetector{factory: f}, nil
}

func (f *countingFactory) setDetect(fn func(img image.Image) (facedetect.Detection, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detect = fn
}

func (f *countingFactory) currentDetect() func(img image.Image) (facedetect.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detect
}

// stubDetector is a controllable capability handle.
type stubDetector struct {
	factory *countingFactory
	closed  atomic.Bool
}

func (d *stubDetector) Detect(img image.Image) (facedetect.Detection, error) {
	if fn := d.factory.currentDetect(); fn != nil {
		return fn(img)
	}
	b := img.Bounds()
	return facedetect.Detection{
		Found: true,
		FaceBoundary: []image.Point{
			{X: 0, Y: 0}, {X: b.Dx() - 1, Y: 0},
			{X: b.Dx() - 1, Y: b.Dy() - 1}, {X: 0, Y: b.Dy() - 1},
		},
	}, nil
}

func (d *stubDetector) Close() error {
	d.closed.Store(true)
	return nil
}

// memStore is an in-memory datastore for pool tests.
type memStore struct {
	mu        sync.Mutex
	photos    map[string]*datastore.Photo
	results   map[string]*datastore.AnalysisResult
	artifacts map[string]*datastore.CachedArtifact
}

func newMemStore() *memStore {
	return &memStore{
		photos:    make(map[string]*datastore.Photo),
		results:   make(map[string]*datastore.AnalysisResult),
		artifacts: make(map[string]*datastore.CachedArtifact),
	}
}

func (s *memStore) Open() error  { return nil }
func (s *memStore) Close() error { return nil }

func (s *memStore) SavePhoto(photo *datastore.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *photo
	s.photos[photo.Path] = &copied
	return nil
}

func (s *memStore) GetPhoto(path string) (*datastore.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.photos[path]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *memStore) MarkPhotoRemoved(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.photos[path]; ok {
		p.Removed = true
	}
	return nil
}

func (s *memStore) SaveResult(result *datastore.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results[result.Path] = &copied
	return nil
}

func (s *memStore) GetResult(path string) (*datastore.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[path]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (s *memStore) DeleteResult(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, path)
	return nil
}

func (s *memStore) CollectionStats(pathPrefix string) (datastore.CollectionStats, error) {
	return datastore.CollectionStats{}, nil
}

func (s *memStore) GetArtifact(path, kind string) (*datastore.CachedArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.artifacts[path+"/"+kind]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (s *memStore) SaveArtifact(artifact *datastore.CachedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *artifact
	s.artifacts[artifact.Path+"/"+artifact.Kind] = &copied
	return nil
}

func (s *memStore) TouchArtifact(path, kind string, accessedAt time.Time) error { return nil }

func (s *memStore) DeleteArtifacts(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, path+"/"+datastore.ArtifactThumbnail)
	delete(s.artifacts, path+"/"+datastore.ArtifactPointCloud)
	return nil
}

func (s *memStore) DeleteArtifactsNotAccessedSince(cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *memStore) ClearArtifacts() error { return nil }

func (s *memStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// writePhoto creates a small decodable PNG and returns its path.
func writePhoto(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

type poolFixture struct {
	pool    *Pool
	store   *memStore
	factory *countingFactory
	dir     string
}

func newPoolFixture(t *testing.T, workers int) *poolFixture {
	t.Helper()
	settings := conf.TestSettings()
	settings.Analysis.Workers = workers

	store := newMemStore()
	factory := &countingFactory{}
	cache := artifactcache.New(store, time.Minute, nil, nil)

	pool, err := New(settings, store, cache, factory, nil, nil)
	require.NoError(t, err)

	return &poolFixture{
		pool:    pool,
		store:   store,
		factory: factory,
		dir:     t.TempDir(),
	}
}

func (f *poolFixture) shutdown(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.pool.Shutdown(ctx))
}

// waitFor polls until the condition holds or the timeout expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNewRequiresFactory(t *testing.T) {
	_, err := New(conf.TestSettings(), newMemStore(), nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilFactory)
}

func TestEnqueueIsIdempotentWhileTracked(t *testing.T) {
	f := newPoolFixture(t, 1)
	path := writePhoto(t, f.dir, "a.png")

	// Not started yet, so the item stays queued.
	assert.True(t, f.pool.Enqueue(path))
	assert.False(t, f.pool.Enqueue(path), "queued path must deduplicate")
	assert.False(t, f.pool.Enqueue(path))
	assert.Equal(t, 1, f.pool.Status().Depth)

	states := make(chan ItemState, 4)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()
	<-states

	// Terminal items are re-enqueueable.
	assert.True(t, f.pool.Enqueue(path))
	f.shutdown(t)
}

func TestAnalysisPersistsResult(t *testing.T) {
	f := newPoolFixture(t, 2)
	path := writePhoto(t, f.dir, "a.png")

	states := make(chan ItemState, 1)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()
	require.True(t, f.pool.Enqueue(path))

	state := <-states
	assert.Equal(t, StateCompleted, state)

	result, err := f.store.GetResult(path)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Greater(t, result.PixelCount, 0)
	assert.NotEmpty(t, result.PointCloud)
	assert.NotEmpty(t, result.Distribution)

	photo, err := f.store.GetPhoto(path)
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.False(t, photo.Removed)

	thumb, err := f.store.GetArtifact(path, datastore.ArtifactThumbnail)
	require.NoError(t, err)
	assert.NotNil(t, thumb, "thumbnail artifact cached after analysis")

	f.shutdown(t)
}

func TestUnchangedPhotoSkipped(t *testing.T) {
	f := newPoolFixture(t, 1)
	path := writePhoto(t, f.dir, "a.png")

	states := make(chan ItemState, 2)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()

	f.pool.Enqueue(path)
	assert.Equal(t, StateCompleted, <-states)

	// Same mtime, result present: a rescan must not redo the work.
	f.pool.Enqueue(path)
	assert.Equal(t, StateSkipped, <-states)

	f.shutdown(t)
}

func TestMissingFileSkipped(t *testing.T) {
	f := newPoolFixture(t, 1)

	states := make(chan ItemState, 1)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()

	f.pool.Enqueue(filepath.Join(f.dir, "gone.png"))
	assert.Equal(t, StateSkipped, <-states)

	f.shutdown(t)
}

func TestPanicIsolation(t *testing.T) {
	f := newPoolFixture(t, 1)
	bad := writePhoto(t, f.dir, "bad.png")
	good := writePhoto(t, f.dir, "good.png")

	f.factory.setDetect(func(img image.Image) (facedetect.Detection, error) {
		panic("capability crashed")
	})

	states := make(chan ItemState, 2)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()

	f.pool.Enqueue(bad)
	assert.Equal(t, StateFailed, <-states, "a panicking item fails alone")

	// The worker survives and keeps processing.
	f.factory.setDetect(nil)
	f.pool.Enqueue(good)
	assert.Equal(t, StateCompleted, <-states)

	f.shutdown(t)
}

func TestDetectorErrorMarksFailed(t *testing.T) {
	f := newPoolFixture(t, 1)
	path := writePhoto(t, f.dir, "a.png")

	f.factory.setDetect(func(img image.Image) (facedetect.Detection, error) {
		return facedetect.Detection{}, assert.AnError
	})

	states := make(chan ItemState, 1)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()

	f.pool.Enqueue(path)
	assert.Equal(t, StateFailed, <-states)
	assert.Equal(t, 0, f.store.resultCount(), "failed analyses persist nothing")

	f.shutdown(t)
}

func TestNoFaceStoredAsUnsuccessfulResult(t *testing.T) {
	f := newPoolFixture(t, 1)
	path := writePhoto(t, f.dir, "a.png")

	f.factory.setDetect(func(img image.Image) (facedetect.Detection, error) {
		return facedetect.Detection{Found: false}, nil
	})

	states := make(chan ItemState, 1)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		states <- state
	})
	f.pool.Start()

	f.pool.Enqueue(path)
	assert.Equal(t, StateCompleted, <-states, "no face is a normal outcome")

	result, err := f.store.GetResult(path)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Zero(t, result.PixelCount)
	assert.Empty(t, result.PointCloud)

	f.shutdown(t)
}

func TestOneDetectorPerWorker(t *testing.T) {
	f := newPoolFixture(t, 2)

	assert.Equal(t, int32(0), f.factory.created.Load(), "detectors are created lazily")

	var wg sync.WaitGroup
	const photos = 8
	wg.Add(photos)
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		wg.Done()
	})
	f.pool.Start()

	for i := 0; i < photos; i++ {
		f.pool.Enqueue(writePhoto(t, f.dir, string(rune('a'+i))+".png"))
	}
	wg.Wait()

	created := f.factory.created.Load()
	assert.GreaterOrEqual(t, created, int32(1))
	assert.LessOrEqual(t, created, int32(2), "at most one detector per worker")

	f.shutdown(t)
}

func TestShutdownStopsDequeuing(t *testing.T) {
	f := newPoolFixture(t, 1)

	release := make(chan struct{})
	f.factory.setDetect(func(img image.Image) (facedetect.Detection, error) {
		<-release
		return facedetect.Detection{Found: false}, nil
	})

	var finished atomic.Int32
	f.pool.SetCompletionListener(func(p string, state ItemState) {
		finished.Add(1)
	})
	f.pool.Start()

	first := writePhoto(t, f.dir, "a.png")
	f.pool.Enqueue(first)
	waitFor(t, func() bool { return f.pool.Status().Running == 1 })

	for i := 0; i < 3; i++ {
		f.pool.Enqueue(writePhoto(t, f.dir, string(rune('b'+i))+".png"))
	}

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- f.pool.Shutdown(ctx)
	}()

	// Probe with unique paths until the pool refuses new work, so the
	// worker cannot dequeue anything after the in-flight item is released.
	probe := 0
	waitFor(t, func() bool {
		probe++
		return !f.pool.Enqueue(filepath.Join(f.dir, fmt.Sprintf("probe-%d.png", probe)))
	})

	close(release)
	require.NoError(t, <-shutdownDone)

	assert.Equal(t, int32(1), finished.Load(), "only the in-flight item completes")
	assert.False(t, f.pool.Enqueue(first), "a stopped pool accepts nothing")
}
