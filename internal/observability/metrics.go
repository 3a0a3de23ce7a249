package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// coverage service.
type Metrics struct {
	ObservationsIngested *prometheus.CounterVec // labels: source={http,kafka}, kind={sample,repeater}
	MergeWrites          prometheus.Counter
	StorageErrors        prometheus.Counter
	ServiceRunning       prometheus.Gauge

	// Ingest loop metrics.
	IngestBatchSize     prometheus.Histogram
	IngestBatchDuration prometheus.Histogram
	IngestDecodeErrors  prometheus.Counter

	// Elevation lookup metrics.
	ElevationRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	ElevationCache       *prometheus.CounterVec // labels: result={hit,miss}
	ElevationAPIDuration prometheus.Histogram
	ElevationEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverage_map",
			Name:      "observations_ingested_total",
			Help:      "Observations accepted, by source and kind.",
		}, []string{"source", "kind"}),
		MergeWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coverage_map",
			Name:      "merge_writes_total",
			Help:      "Per-cell merge writes applied to the sample store.",
		}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coverage_map",
			Name:      "storage_errors_total",
			Help:      "Storage operations surfaced to callers as failures.",
		}),
		ServiceRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coverage_map",
			Name:      "service_running",
			Help:      "1 while the service is active, 0 after shutdown.",
		}),
		IngestBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coverage_map",
			Name:      "ingest_batch_size",
			Help:      "Number of observations per batch read from the broker.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		IngestBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coverage_map",
			Name:      "ingest_batch_duration_seconds",
			Help:      "Duration of a complete extract-record-commit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		IngestDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coverage_map",
			Name:      "ingest_decode_errors_total",
			Help:      "Broker messages skipped because they failed to decode.",
		}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverage_map",
			Name:      "elevation_requests_total",
			Help:      "Elevation API requests by outcome.",
		}, []string{"outcome"}),
		ElevationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverage_map",
			Name:      "elevation_cache_total",
			Help:      "Elevation cache lookups by result.",
		}, []string{"result"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coverage_map",
			Name:      "elevation_api_duration_seconds",
			Help:      "Elevation API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ElevationEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coverage_map",
			Name:      "elevation_enabled",
			Help:      "1 when elevation lookup is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ObservationsIngested,
		m.MergeWrites,
		m.StorageErrors,
		m.ServiceRunning,
		m.IngestBatchSize,
		m.IngestBatchDuration,
		m.IngestDecodeErrors,
		m.ElevationRequests,
		m.ElevationCache,
		m.ElevationAPIDuration,
		m.ElevationEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "coverage_map", Name: "observations_ingested_total"}, []string{"source", "kind"}),
		MergeWrites:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coverage_map", Name: "merge_writes_total"}),
		StorageErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coverage_map", Name: "storage_errors_total"}),
		ServiceRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "coverage_map", Name: "service_running"}),
		IngestBatchSize:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "coverage_map", Name: "ingest_batch_size"}),
		IngestBatchDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "coverage_map", Name: "ingest_batch_duration_seconds"}),
		IngestDecodeErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coverage_map", Name: "ingest_decode_errors_total"}),
		ElevationRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "coverage_map", Name: "elevation_requests_total"}, []string{"outcome"}),
		ElevationCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "coverage_map", Name: "elevation_cache_total"}, []string{"result"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "coverage_map", Name: "elevation_api_duration_seconds"}),
		ElevationEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "coverage_map", Name: "elevation_enabled"}),
	}
}
