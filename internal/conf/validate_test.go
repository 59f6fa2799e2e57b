package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	assert.NoError(t, ValidateSettings(TestSettings()))
}

func TestValidateRejectsBadWorkerCount(t *testing.T) {
	s := TestSettings()
	s.Analysis.Workers = 0
	assert.Error(t, ValidateSettings(s))
}

func TestValidateRejectsBadPointCloudCap(t *testing.T) {
	s := TestSettings()
	s.Analysis.PointCloudCap = 0
	assert.Error(t, ValidateSettings(s))
}

func TestValidateRejectsUnknownRetentionPolicy(t *testing.T) {
	s := TestSettings()
	s.Retention.OnDelete = "archive"
	assert.Error(t, ValidateSettings(s))
}

func TestValidateRejectsTelemetryWithoutListen(t *testing.T) {
	s := TestSettings()
	s.Telemetry.Enabled = true
	s.Telemetry.Listen = ""
	assert.Error(t, ValidateSettings(s))
}

func TestValidateHueBucketGap(t *testing.T) {
	s := TestSettings()
	s.Analysis.Buckets.Hue = []HueBucket{
		{Name: "a", Ranges: [][2]float64{{0, 100}}},
		{Name: "b", Ranges: [][2]float64{{150, 360}}},
	}
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap")
}

func TestValidateHueBucketOverlap(t *testing.T) {
	s := TestSettings()
	s.Analysis.Buckets.Hue = []HueBucket{
		{Name: "a", Ranges: [][2]float64{{0, 200}}},
		{Name: "b", Ranges: [][2]float64{{150, 360}}},
	}
	assert.Error(t, ValidateSettings(s))
}

func TestValidateHueBucketsIncompleteCoverage(t *testing.T) {
	s := TestSettings()
	s.Analysis.Buckets.Hue = []HueBucket{
		{Name: "a", Ranges: [][2]float64{{0, 300}}},
	}
	assert.Error(t, ValidateSettings(s))
}

func TestValidateHueWraparoundCoverageAccepted(t *testing.T) {
	s := TestSettings()
	s.Analysis.Buckets.Hue = []HueBucket{
		{Name: "red", Ranges: [][2]float64{{0, 30}, {330, 360}}},
		{Name: "rest", Ranges: [][2]float64{{30, 330}}},
	}
	assert.NoError(t, ValidateSettings(s))
}

func TestValidateUnitBucketGap(t *testing.T) {
	s := TestSettings()
	s.Analysis.Buckets.Lightness = []Bucket{
		{Name: "dark", Min: 0, Max: 0.4},
		{Name: "light", Min: 0.5, Max: 1.0},
	}
	assert.Error(t, ValidateSettings(s))
}

func TestValidateUnitBucketsMustEndAtOne(t *testing.T) {
	s := TestSettings()
	s.Analysis.Buckets.Saturation = []Bucket{
		{Name: "low", Min: 0, Max: 0.9},
	}
	assert.Error(t, ValidateSettings(s))
}

func TestApplyDefaultBucketsKeepsConfiguredValues(t *testing.T) {
	b := BucketConfig{
		Lightness: []Bucket{
			{Name: "custom-dark", Min: 0, Max: 0.5},
			{Name: "custom-light", Min: 0.5, Max: 1.0},
		},
	}
	ApplyDefaultBuckets(&b)

	assert.Len(t, b.Lightness, 2, "configured buckets are not overwritten")
	assert.Len(t, b.Hue, 6, "missing channels get the reference boundaries")
	assert.Len(t, b.Saturation, 5)
}
