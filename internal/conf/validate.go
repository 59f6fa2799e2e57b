// conf/validate.go configuration validation
package conf

import (
	"fmt"
	"math"
	"sort"
)

// ValidateSettings checks that the loaded settings describe a runnable
// pipeline. Bucket coverage is validated strictly: percentages can only
// sum to 100 when every channel value falls into exactly one bucket.
func ValidateSettings(s *Settings) error {
	if s.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1, got %d", s.Analysis.Workers)
	}
	if s.Analysis.PointCloudCap < 1 {
		return fmt.Errorf("analysis.pointcloudcap must be at least 1, got %d", s.Analysis.PointCloudCap)
	}
	if s.Analysis.Thumbnail.MaxDimension < 16 {
		return fmt.Errorf("analysis.thumbnail.maxdimension must be at least 16, got %d", s.Analysis.Thumbnail.MaxDimension)
	}
	if s.Watcher.Grace <= 0 {
		return fmt.Errorf("watcher.grace must be positive, got %v", s.Watcher.Grace)
	}
	if s.Watcher.Cooldown <= 0 {
		return fmt.Errorf("watcher.cooldown must be positive, got %v", s.Watcher.Cooldown)
	}
	if s.Cache.Retention <= 0 {
		return fmt.Errorf("cache.retention must be positive, got %v", s.Cache.Retention)
	}

	if s.Telemetry.Enabled && s.Telemetry.Listen == "" {
		return fmt.Errorf("telemetry.listen must be set when telemetry is enabled")
	}

	switch s.Retention.OnDelete {
	case RetainOnDelete, PurgeOnDelete:
	default:
		return fmt.Errorf("retention.ondelete must be %q or %q, got %q",
			RetainOnDelete, PurgeOnDelete, s.Retention.OnDelete)
	}

	if err := validateHueBuckets(s.Analysis.Buckets.Hue); err != nil {
		return err
	}
	if err := validateUnitBuckets("lightness", s.Analysis.Buckets.Lightness); err != nil {
		return err
	}
	if err := validateUnitBuckets("saturation", s.Analysis.Buckets.Saturation); err != nil {
		return err
	}

	return nil
}

// validateHueBuckets verifies the hue buckets cover [0, 360) exactly once.
func validateHueBuckets(buckets []HueBucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("hue buckets must not be empty")
	}

	type span struct{ lo, hi float64 }
	var spans []span
	for _, b := range buckets {
		if len(b.Ranges) == 0 {
			return fmt.Errorf("hue bucket %q has no ranges", b.Name)
		}
		for _, r := range b.Ranges {
			if r[0] < 0 || r[1] > 360 || r[0] >= r[1] {
				return fmt.Errorf("hue bucket %q has invalid range [%v, %v)", b.Name, r[0], r[1])
			}
			spans = append(spans, span{r[0], r[1]})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
	cursor := 0.0
	for _, sp := range spans {
		if math.Abs(sp.lo-cursor) > 1e-9 {
			return fmt.Errorf("hue buckets leave gap or overlap at %v degrees", cursor)
		}
		cursor = sp.hi
	}
	if math.Abs(cursor-360) > 1e-9 {
		return fmt.Errorf("hue buckets must cover [0, 360), coverage ends at %v", cursor)
	}
	return nil
}

// validateUnitBuckets verifies buckets cover [0, 1] contiguously.
func validateUnitBuckets(channel string, buckets []Bucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%s buckets must not be empty", channel)
	}

	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	cursor := 0.0
	for _, b := range sorted {
		if b.Min >= b.Max {
			return fmt.Errorf("%s bucket %q has invalid range [%v, %v)", channel, b.Name, b.Min, b.Max)
		}
		if math.Abs(b.Min-cursor) > 1e-9 {
			return fmt.Errorf("%s buckets leave gap or overlap at %v", channel, cursor)
		}
		cursor = b.Max
	}
	if math.Abs(cursor-1) > 1e-9 {
		return fmt.Errorf("%s buckets must cover [0, 1], coverage ends at %v", channel, cursor)
	}
	return nil
}
