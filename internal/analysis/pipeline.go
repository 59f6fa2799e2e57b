package analysis

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/facetone/facetone-go/internal/artifactcache"
	"github.com/facetone/facetone-go/internal/colorspace"
	"github.com/facetone/facetone-go/internal/datastore"
	"github.com/facetone/facetone-go/internal/errors"
	"github.com/facetone/facetone-go/internal/facedetect"
	"github.com/facetone/facetone-go/internal/hslstats"
	"github.com/facetone/facetone-go/internal/pointcloud"
	"github.com/facetone/facetone-go/internal/thumbnail"
)

// distribution is the JSON shape persisted in AnalysisResult.Distribution.
type distribution struct {
	Hue        []hslstats.BucketPercent `json:"hue"`
	Saturation []hslstats.BucketPercent `json:"saturation"`
	Lightness  []hslstats.BucketPercent `json:"lightness"`
}

// analyze runs the full pipeline for one photo: stat, decode, detect,
// mask, convert, downsample, aggregate, persist. The returned state is the
// item's terminal state; err carries detail for Failed only.
func (p *Pool) analyze(detector facedetect.Detector, it *item) (ItemState, error) {
	info, err := os.Stat(it.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted between enqueue and dequeue. Normal during churn.
			return StateSkipped, nil
		}
		return StateFailed, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("photo", it.path).
			Build()
	}
	modTime := info.ModTime()

	if p.unchanged(it.path, modTime) {
		return StateSkipped, nil
	}

	img, err := decodeImage(it.path)
	if err != nil {
		return StateFailed, err
	}

	detection, err := detector.Detect(img)
	if err != nil {
		return StateFailed, errors.New(err).
			Component("analysis").
			Category(errors.CategoryDetection).
			Context("photo", it.path).
			Build()
	}

	result := &datastore.AnalysisResult{
		Path:       it.path,
		AnalyzedAt: time.Now(),
	}

	var points []colorspace.HSL
	mask, found := p.extractor.Extract(img, detection)
	if found {
		all, err := colorspace.ConvertMasked(img, mask)
		if err != nil {
			return StateFailed, err
		}
		result.Success = true
		result.PixelCount = len(all)
		points = p.sampler.Sample(it.path, all)
	}

	summary := hslstats.Aggregate(points, p.settings.Analysis.Buckets)
	result.HueMean = summary.Hue.Mean
	result.HueStdDev = summary.Hue.StdDev
	result.SaturationMean = summary.Saturation.Mean
	result.SaturationStdDev = summary.Saturation.StdDev
	result.LightnessMean = summary.Lightness.Mean
	result.LightnessStdDev = summary.Lightness.StdDev

	dist, err := json.Marshal(distribution{
		Hue:        summary.HueBuckets,
		Saturation: summary.SaturationBuckets,
		Lightness:  summary.LightnessBuckets,
	})
	if err != nil {
		return StateFailed, errors.New(err).
			Component("analysis").
			Category(errors.CategoryColorPipeline).
			Context("photo", it.path).
			Build()
	}
	result.Distribution = dist

	if len(points) > 0 {
		payload, _, err := p.cache.Measure(datastore.ArtifactPointCloud, func() ([]byte, error) {
			return pointcloud.Encode(points), nil
		})
		if err == nil {
			result.PointCloud = payload
		}
	}

	if err := p.store.SavePhoto(&datastore.Photo{
		Path:    it.path,
		ModTime: modTime,
		Size:    info.Size(),
		Removed: false,
	}); err != nil {
		return StateFailed, errors.New(err).
			Component("analysis").
			Category(errors.CategoryDatabase).
			Context("photo", it.path).
			Build()
	}
	if err := p.store.SaveResult(result); err != nil {
		return StateFailed, errors.New(err).
			Component("analysis").
			Category(errors.CategoryDatabase).
			Context("photo", it.path).
			Build()
	}

	p.storeArtifacts(it.path, modTime, img, result.PointCloud)

	return StateCompleted, nil
}

// unchanged reports whether a photo already has a persisted result for its
// current modification time. Skipping these keeps rescans cheap.
func (p *Pool) unchanged(path string, modTime time.Time) bool {
	photo, err := p.store.GetPhoto(path)
	if err != nil || photo == nil || photo.Removed {
		return false
	}
	if !photo.ModTime.Equal(modTime) {
		return false
	}
	result, err := p.store.GetResult(path)
	return err == nil && result != nil
}

// storeArtifacts refreshes the derived artifact cache after a successful
// analysis. Artifact failures are logged, not fatal: the result row is the
// source of truth and artifacts are regenerable.
func (p *Pool) storeArtifacts(path string, modTime time.Time, img image.Image, cloud []byte) {
	if len(cloud) > 0 {
		if err := p.cache.Put(&artifactcache.Artifact{
			Path:          path,
			Kind:          datastore.ArtifactPointCloud,
			SourceModTime: modTime,
			Payload:       cloud,
		}); err != nil {
			p.logger.Warn("caching point cloud failed", "photo", path, "error", err)
		}
	}

	maxDim := p.settings.Analysis.Thumbnail.MaxDimension
	if maxDim <= 0 {
		return
	}
	var width, height int
	payload, _, err := p.cache.Measure(datastore.ArtifactThumbnail, func() ([]byte, error) {
		var err error
		var data []byte
		data, width, height, err = thumbnail.Render(img, maxDim)
		return data, err
	})
	if err != nil {
		p.logger.Warn("rendering thumbnail failed", "photo", path, "error", err)
		return
	}
	if err := p.cache.Put(&artifactcache.Artifact{
		Path:          path,
		Kind:          datastore.ArtifactThumbnail,
		SourceModTime: modTime,
		Payload:       payload,
		Width:         width,
		Height:        height,
	}); err != nil {
		p.logger.Warn("caching thumbnail failed", "photo", path, "error", err)
	}
}

// decodeImage loads and decodes a photo from disk.
func decodeImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("photo", path).
			Build()
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryImageDecode).
			Context("photo", path).
			Build()
	}
	return img, nil
}
