package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetone/facetone-go/internal/conf"
)

func openTestStore(t *testing.T) Interface {
	t.Helper()
	store := New(conf.TestSettings())
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSavePhotoUpserts(t *testing.T) {
	store := openTestStore(t)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePhoto(&Photo{Path: "/photos/a.jpg", ModTime: first, Size: 100}))

	second := first.Add(time.Hour)
	require.NoError(t, store.SavePhoto(&Photo{Path: "/photos/a.jpg", ModTime: second, Size: 200}))

	photo, err := store.GetPhoto("/photos/a.jpg")
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.True(t, photo.ModTime.Equal(second))
	assert.Equal(t, int64(200), photo.Size)
}

func TestGetPhotoMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)

	photo, err := store.GetPhoto("/photos/missing.jpg")
	require.NoError(t, err)
	assert.Nil(t, photo)
}

func TestMarkPhotoRemoved(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SavePhoto(&Photo{Path: "/photos/a.jpg"}))
	require.NoError(t, store.MarkPhotoRemoved("/photos/a.jpg"))

	photo, err := store.GetPhoto("/photos/a.jpg")
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.True(t, photo.Removed)
}

// TestSaveResultReplacesPriorRow verifies the upsert-not-accumulate rule:
// re-analyzing a photo leaves exactly one result row.
func TestSaveResultReplacesPriorRow(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveResult(&AnalysisResult{
		Path: "/photos/a.jpg", Success: true, HueMean: 20, AnalyzedAt: time.Now(),
	}))
	require.NoError(t, store.SaveResult(&AnalysisResult{
		Path: "/photos/a.jpg", Success: true, HueMean: 25, AnalyzedAt: time.Now(),
	}))

	result, err := store.GetResult("/photos/a.jpg")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.InDelta(t, 25.0, result.HueMean, 1e-9)

	stats, err := store.CollectionStats("/photos/")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.AnalyzedCount, "results never accumulate per path")
}

func TestDeleteResult(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveResult(&AnalysisResult{Path: "/photos/a.jpg"}))
	require.NoError(t, store.DeleteResult("/photos/a.jpg"))

	result, err := store.GetResult("/photos/a.jpg")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCollectionStats(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SavePhoto(&Photo{Path: "/photos/a.jpg"}))
	require.NoError(t, store.SavePhoto(&Photo{Path: "/photos/b.jpg"}))
	require.NoError(t, store.SavePhoto(&Photo{Path: "/photos/c.jpg"}))
	require.NoError(t, store.SavePhoto(&Photo{Path: "/other/d.jpg"}))

	require.NoError(t, store.SaveResult(&AnalysisResult{
		Path: "/photos/a.jpg", Success: true,
		HueMean: 20, SaturationMean: 0.4, LightnessMean: 0.5,
	}))
	require.NoError(t, store.SaveResult(&AnalysisResult{
		Path: "/photos/b.jpg", Success: true,
		HueMean: 30, SaturationMean: 0.6, LightnessMean: 0.7,
	}))
	require.NoError(t, store.SaveResult(&AnalysisResult{
		Path: "/photos/c.jpg", Success: false,
	}))

	stats, err := store.CollectionStats("/photos/")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.PhotoCount)
	assert.Equal(t, int64(3), stats.AnalyzedCount)
	assert.Equal(t, int64(2), stats.DetectedCount)
	assert.InDelta(t, 25.0, stats.HueMean, 1e-6)
	assert.InDelta(t, 0.5, stats.SaturationMean, 1e-6)
	assert.InDelta(t, 0.6, stats.LightnessMean, 1e-6)
}

func TestSaveArtifactReplacesPriorPayload(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.SaveArtifact(&CachedArtifact{
		Path: "/photos/a.jpg", Kind: ArtifactThumbnail,
		SourceModTime: now, Payload: []byte("v1"), LastAccessed: now,
	}))
	require.NoError(t, store.SaveArtifact(&CachedArtifact{
		Path: "/photos/a.jpg", Kind: ArtifactThumbnail,
		SourceModTime: now, Payload: []byte("v2"), LastAccessed: now,
	}))

	artifact, err := store.GetArtifact("/photos/a.jpg", ArtifactThumbnail)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, []byte("v2"), artifact.Payload)
}

func TestArtifactKindsAreIndependent(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.SaveArtifact(&CachedArtifact{
		Path: "/photos/a.jpg", Kind: ArtifactThumbnail, Payload: []byte("t"), LastAccessed: now,
	}))
	require.NoError(t, store.SaveArtifact(&CachedArtifact{
		Path: "/photos/a.jpg", Kind: ArtifactPointCloud, Payload: []byte("p"), LastAccessed: now,
	}))

	thumb, err := store.GetArtifact("/photos/a.jpg", ArtifactThumbnail)
	require.NoError(t, err)
	require.NotNil(t, thumb)
	cloud, err := store.GetArtifact("/photos/a.jpg", ArtifactPointCloud)
	require.NoError(t, err)
	require.NotNil(t, cloud)
	assert.NotEqual(t, thumb.Payload, cloud.Payload)
}

func TestDeleteArtifactsNotAccessedSince(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.SaveArtifact(&CachedArtifact{
		Path: "/photos/old.jpg", Kind: ArtifactThumbnail,
		Payload: []byte("old"), LastAccessed: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.SaveArtifact(&CachedArtifact{
		Path: "/photos/new.jpg", Kind: ArtifactThumbnail,
		Payload: []byte("new"), LastAccessed: now,
	}))

	evicted, err := store.DeleteArtifactsNotAccessedSince(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	gone, err := store.GetArtifact("/photos/old.jpg", ArtifactThumbnail)
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := store.GetArtifact("/photos/new.jpg", ArtifactThumbnail)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
