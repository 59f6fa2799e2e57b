// Package hslstats computes scalar summaries and bucketed distributions over
// HSL point clouds. Aggregate is a pure function of the point array, so
// statistics computed live and statistics recomputed from a stored point
// cloud can never diverge.
package hslstats

import (
	"math"

	"github.com/facetone/facetone-go/internal/colorspace"
	"github.com/facetone/facetone-go/internal/conf"
)

// ChannelStats holds the scalar summary of one channel.
type ChannelStats struct {
	Mean   float64
	StdDev float64
}

// BucketPercent is one named bucket's share of the total point count.
type BucketPercent struct {
	Name    string
	Percent float64
}

// Summary is the full statistical description of one point cloud. Bucket
// percentages are computed over the complete, unfiltered point set; for a
// non-empty input each channel's percentages sum to 100 up to floating
// rounding. An empty input yields an all-zero Summary.
type Summary struct {
	Count int

	Hue        ChannelStats
	Saturation ChannelStats
	Lightness  ChannelStats

	HueBuckets        []BucketPercent
	SaturationBuckets []BucketPercent
	LightnessBuckets  []BucketPercent
}

// Aggregate computes the summary of points under the given bucket
// configuration. It never divides by zero: an empty point set produces zero
// means, zero deviations and zero-percent buckets.
func Aggregate(points []colorspace.HSL, buckets conf.BucketConfig) Summary {
	summary := Summary{
		Count:             len(points),
		HueBuckets:        emptyHueBuckets(buckets.Hue),
		SaturationBuckets: emptyBuckets(buckets.Saturation),
		LightnessBuckets:  emptyBuckets(buckets.Lightness),
	}
	if len(points) == 0 {
		return summary
	}

	var sumH, sumS, sumL float64
	for i := range points {
		sumH += points[i].H
		sumS += points[i].S
		sumL += points[i].L
	}
	n := float64(len(points))
	summary.Hue.Mean = sumH / n
	summary.Saturation.Mean = sumS / n
	summary.Lightness.Mean = sumL / n

	var varH, varS, varL float64
	for i := range points {
		dh := points[i].H - summary.Hue.Mean
		ds := points[i].S - summary.Saturation.Mean
		dl := points[i].L - summary.Lightness.Mean
		varH += dh * dh
		varS += ds * ds
		varL += dl * dl
	}
	summary.Hue.StdDev = math.Sqrt(varH / n)
	summary.Saturation.StdDev = math.Sqrt(varS / n)
	summary.Lightness.StdDev = math.Sqrt(varL / n)

	hueCounts := make([]int, len(buckets.Hue))
	satCounts := make([]int, len(buckets.Saturation))
	lightCounts := make([]int, len(buckets.Lightness))
	for i := range points {
		if idx := hueBucketIndex(buckets.Hue, points[i].H); idx >= 0 {
			hueCounts[idx]++
		}
		if idx := bucketIndex(buckets.Saturation, points[i].S); idx >= 0 {
			satCounts[idx]++
		}
		if idx := bucketIndex(buckets.Lightness, points[i].L); idx >= 0 {
			lightCounts[idx]++
		}
	}
	for i, c := range hueCounts {
		summary.HueBuckets[i].Percent = 100 * float64(c) / n
	}
	for i, c := range satCounts {
		summary.SaturationBuckets[i].Percent = 100 * float64(c) / n
	}
	for i, c := range lightCounts {
		summary.LightnessBuckets[i].Percent = 100 * float64(c) / n
	}

	return summary
}

// hueBucketIndex locates the bucket whose ranges contain the hue value.
func hueBucketIndex(buckets []conf.HueBucket, h float64) int {
	for i := range buckets {
		for _, r := range buckets[i].Ranges {
			if h >= r[0] && h < r[1] {
				return i
			}
		}
	}
	return -1
}

// bucketIndex locates the half-open bucket containing v. Values at exactly
// 1.0 fall into the last bucket so the unit interval has no uncounted edge.
func bucketIndex(buckets []conf.Bucket, v float64) int {
	for i := range buckets {
		if v >= buckets[i].Min && v < buckets[i].Max {
			return i
		}
	}
	if len(buckets) > 0 && v == buckets[len(buckets)-1].Max {
		return len(buckets) - 1
	}
	return -1
}

func emptyBuckets(buckets []conf.Bucket) []BucketPercent {
	out := make([]BucketPercent, len(buckets))
	for i := range buckets {
		out[i].Name = buckets[i].Name
	}
	return out
}

func emptyHueBuckets(buckets []conf.HueBucket) []BucketPercent {
	out := make([]BucketPercent, len(buckets))
	for i := range buckets {
		out[i].Name = buckets[i].Name
	}
	return out
}
