package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks ranking-pipeline health: per-provider latency and
// soft failures, overall pipeline duration, and store cache hits.
type PipelineMetrics struct {
	providerDuration *prometheus.HistogramVec
	providerFailures *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	storeCacheHits   prometheus.Counter
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reco_provider_duration_seconds",
			Help:    "Candidate provider fetch latency by source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reco_provider_failures_total",
			Help: "Soft provider failures (errors and timeouts) by source.",
		}, []string{"source"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reco_pipeline_duration_seconds",
			Help:    "End-to-end ranking pipeline latency.",
			Buckets: prometheus.DefBuckets,
		}),
		storeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reco_store_cache_hits_total",
			Help: "Requests served entirely from fresh persisted recommendations.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.providerDuration, m.providerFailures, m.pipelineDuration, m.storeCacheHits)
	}
	return m
}

func (m *PipelineMetrics) ObserveProvider(source string, d time.Duration, failed bool) {
	m.providerDuration.WithLabelValues(source).Observe(d.Seconds())
	if failed {
		m.providerFailures.WithLabelValues(source).Inc()
	}
}

func (m *PipelineMetrics) ObservePipeline(d time.Duration) {
	m.pipelineDuration.Observe(d.Seconds())
}

func (m *PipelineMetrics) CacheHit() {
	m.storeCacheHits.Inc()
}
