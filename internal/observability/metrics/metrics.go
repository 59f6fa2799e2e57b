// Package metrics provides prometheus instrumentation for the analysis
// pipeline and the derived artifact cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds all collectors exported by the core pipeline.
type PipelineMetrics struct {
	QueueDepth       prometheus.Gauge
	QueueRunning     prometheus.Gauge
	AnalysisOutcomes *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	CacheStale       prometheus.Counter
	ArtifactDuration *prometheus.HistogramVec
	ArtifactBytes    *prometheus.CounterVec

	DownsampleTotal  prometheus.Counter
	WatcherAccepted  *prometheus.CounterVec
	WatcherSuppressed prometheus.Counter
}

// NewPipelineMetrics creates and registers all pipeline collectors against
// the given registerer. Tests pass a private registry to avoid duplicate
// registration panics.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "facetone_queue_depth",
			Help: "Number of photos waiting in the analysis queue.",
		}),
		QueueRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "facetone_queue_running",
			Help: "Number of photos currently being analyzed.",
		}),
		AnalysisOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facetone_analysis_outcomes_total",
			Help: "Analysis item outcomes by terminal state.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "facetone_analysis_duration_seconds",
			Help:    "Wall time of a full per-photo analysis.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facetone_cache_hits_total",
			Help: "Artifact cache hits with a valid mtime snapshot.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facetone_cache_misses_total",
			Help: "Artifact cache misses (absent entries).",
		}),
		CacheStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facetone_cache_stale_total",
			Help: "Artifact cache entries rejected by mtime mismatch.",
		}),
		ArtifactDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facetone_artifact_generation_seconds",
			Help:    "Measured generation cost per artifact kind.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"kind"}),
		ArtifactBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facetone_artifact_bytes_total",
			Help: "Generated artifact payload bytes per kind.",
		}, []string{"kind"}),
		DownsampleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facetone_pointcloud_downsamples_total",
			Help: "Point clouds reduced by uniform-stride sampling.",
		}),
		WatcherAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facetone_watcher_accepted_total",
			Help: "Filesystem events accepted after debouncing, by type.",
		}, []string{"event"}),
		WatcherSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facetone_watcher_suppressed_total",
			Help: "Filesystem events suppressed by grace window or cooldown.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.QueueDepth, m.QueueRunning, m.AnalysisOutcomes, m.AnalysisDuration,
			m.CacheHits, m.CacheMisses, m.CacheStale,
			m.ArtifactDuration, m.ArtifactBytes,
			m.DownsampleTotal, m.WatcherAccepted, m.WatcherSuppressed,
		)
	}
	return m
}

// ObserveArtifact records the measured generation cost of one artifact.
func (m *PipelineMetrics) ObserveArtifact(kind string, elapsed time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.ArtifactDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.ArtifactBytes.WithLabelValues(kind).Add(float64(bytes))
}
