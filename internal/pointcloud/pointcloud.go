// Package pointcloud bounds the per-photo HSL point set to a configured cap
// using deterministic uniform-stride sampling. The stride walks the original
// (unsorted) pixel ordering, which preserves the relative proportions of any
// hue/saturation/lightness sub-range without randomness.
package pointcloud

import (
	"time"

	"github.com/facetone/facetone-go/internal/colorspace"
	"github.com/facetone/facetone-go/internal/events"
	"github.com/facetone/facetone-go/internal/observability/metrics"
)

// MethodUniformStride identifies the sampling method in diagnostic events.
const MethodUniformStride = "uniform-stride"

// Sampler reduces point clouds to at most Cap points.
type Sampler struct {
	Cap     int
	bus     *events.EventBus
	metrics *metrics.PipelineMetrics
}

// NewSampler creates a sampler with the given cap. The event bus and metrics
// are optional; a nil bus simply skips diagnostics.
func NewSampler(cap int, bus *events.EventBus, m *metrics.PipelineMetrics) *Sampler {
	return &Sampler{Cap: cap, bus: bus, metrics: m}
}

// Sample returns the input unchanged when it fits under the cap, otherwise
// exactly Cap points selected by uniform stride. An empty input yields an
// empty output. A diagnostic event reports every reduction so observers can
// reason about fidelity loss.
func (s *Sampler) Sample(path string, points []colorspace.HSL) []colorspace.HSL {
	n := len(points)
	if n == 0 || n <= s.Cap {
		return points
	}

	stride := n / s.Cap
	sampled := make([]colorspace.HSL, 0, s.Cap)
	for i := 0; i < n && len(sampled) < s.Cap; i += stride {
		sampled = append(sampled, points[i])
	}

	if s.metrics != nil {
		s.metrics.DownsampleTotal.Inc()
	}
	if s.bus != nil {
		s.bus.Publish(&events.DownsampleEvent{
			Path:          path,
			OriginalCount: n,
			SampledCount:  len(sampled),
			Method:        MethodUniformStride,
			Timestamp:     time.Now(),
		})
	}

	return sampled
}
