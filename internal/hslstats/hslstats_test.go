package hslstats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetone/facetone-go/internal/colorspace"
	"github.com/facetone/facetone-go/internal/conf"
)

func defaultBuckets() conf.BucketConfig {
	var b conf.BucketConfig
	conf.ApplyDefaultBuckets(&b)
	return b
}

func TestAggregateEmptyInput(t *testing.T) {
	s := Aggregate(nil, defaultBuckets())

	assert.Equal(t, 0, s.Count)
	assert.Zero(t, s.Hue.Mean)
	assert.Zero(t, s.Hue.StdDev)
	assert.Zero(t, s.Saturation.Mean)
	assert.Zero(t, s.Lightness.Mean)

	// Buckets keep their names so consumers see a stable shape.
	require.Len(t, s.HueBuckets, 6)
	require.Len(t, s.LightnessBuckets, 3)
	require.Len(t, s.SaturationBuckets, 5)
	for _, b := range s.HueBuckets {
		assert.NotEmpty(t, b.Name)
		assert.Zero(t, b.Percent)
	}
}

func TestAggregateMeanAndStdDev(t *testing.T) {
	points := []colorspace.HSL{
		{H: 10, S: 0.2, L: 0.4},
		{H: 20, S: 0.4, L: 0.6},
	}

	s := Aggregate(points, defaultBuckets())

	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 15.0, s.Hue.Mean, 1e-9)
	assert.InDelta(t, 5.0, s.Hue.StdDev, 1e-9)
	assert.InDelta(t, 0.3, s.Saturation.Mean, 1e-9)
	assert.InDelta(t, 0.1, s.Saturation.StdDev, 1e-9)
	assert.InDelta(t, 0.5, s.Lightness.Mean, 1e-9)
}

func TestAggregatePercentagesSumTo100(t *testing.T) {
	points := make([]colorspace.HSL, 0, 997)
	for i := 0; i < 997; i++ {
		points = append(points, colorspace.HSL{
			H: math.Mod(float64(i)*7.31, 360),
			S: math.Mod(float64(i)*0.137, 1),
			L: math.Mod(float64(i)*0.311, 1),
		})
	}

	s := Aggregate(points, defaultBuckets())

	sum := func(buckets []BucketPercent) float64 {
		total := 0.0
		for _, b := range buckets {
			total += b.Percent
		}
		return total
	}
	assert.InDelta(t, 100.0, sum(s.HueBuckets), 0.01)
	assert.InDelta(t, 100.0, sum(s.SaturationBuckets), 0.01)
	assert.InDelta(t, 100.0, sum(s.LightnessBuckets), 0.01)
}

func TestAggregateHueWraparoundBucket(t *testing.T) {
	// 5 and 355 degrees both belong to the wrapping "very-low" bucket.
	points := []colorspace.HSL{
		{H: 5, S: 0.5, L: 0.5},
		{H: 355, S: 0.5, L: 0.5},
	}

	s := Aggregate(points, defaultBuckets())

	require.Equal(t, "very-low", s.HueBuckets[0].Name)
	assert.InDelta(t, 100.0, s.HueBuckets[0].Percent, 1e-9)
}

func TestAggregateUnitEdgeFallsInLastBucket(t *testing.T) {
	points := []colorspace.HSL{{H: 100, S: 1.0, L: 1.0}}

	s := Aggregate(points, defaultBuckets())

	last := s.SaturationBuckets[len(s.SaturationBuckets)-1]
	assert.InDelta(t, 100.0, last.Percent, 1e-9, "saturation 1.0 belongs to the last bucket")
	lastL := s.LightnessBuckets[len(s.LightnessBuckets)-1]
	assert.InDelta(t, 100.0, lastL.Percent, 1e-9, "lightness 1.0 belongs to the last bucket")
}
