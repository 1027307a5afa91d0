package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// precipitation analytics pipeline.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	SummariesProduced    prometheus.Counter
	IngestErrors         prometheus.Counter
	StaleObservations    prometheus.Counter
	PipelineRunning      prometheus.Gauge
	TrackedStations      prometheus.Gauge

	// Validation gate metrics.
	ValidationFailures  *prometheus.CounterVec // labels: kind={unordered,discontinuous,missing_value}
	StationsQuarantined prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	AnalysisDuration        prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_analytics",
			Name:      "observations_consumed_total",
			Help:      "Total gauge observations read from the source topic.",
		}),
		SummariesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_analytics",
			Name:      "summaries_produced_total",
			Help:      "Total event summaries written to the sink topic.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_analytics",
			Name:      "ingest_errors_total",
			Help:      "Total observations that failed parsing or analysis.",
		}),
		StaleObservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_analytics",
			Name:      "stale_observations_total",
			Help:      "Observations at or before a station's newest tracked hour, skipped.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_analytics",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		TrackedStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_analytics",
			Name:      "tracked_stations",
			Help:      "Stations with an in-memory hourly series.",
		}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precip_analytics",
			Name:      "validation_failures_total",
			Help:      "Series validation failures by failure kind.",
		}, []string{"kind"}),
		StationsQuarantined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_analytics",
			Name:      "stations_quarantined",
			Help:      "Stations whose series currently fails validation.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_analytics",
			Name:      "batch_size",
			Help:      "Number of observations per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_analytics",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-analyze-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_analytics",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of one station's validate-segment-summarize pass.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}

	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.SummariesProduced,
		m.IngestErrors,
		m.StaleObservations,
		m.PipelineRunning,
		m.TrackedStations,
		m.ValidationFailures,
		m.StationsQuarantined,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AnalysisDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsConsumed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "precip_analytics", Name: "observations_consumed_total"}),
		SummariesProduced:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "precip_analytics", Name: "summaries_produced_total"}),
		IngestErrors:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "precip_analytics", Name: "ingest_errors_total"}),
		StaleObservations:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "precip_analytics", Name: "stale_observations_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "precip_analytics", Name: "pipeline_running"}),
		TrackedStations:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "precip_analytics", Name: "tracked_stations"}),
		ValidationFailures:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "precip_analytics", Name: "validation_failures_total"}, []string{"kind"}),
		StationsQuarantined:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "precip_analytics", Name: "stations_quarantined"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "precip_analytics", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "precip_analytics", Name: "batch_processing_duration_seconds"}),
		AnalysisDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "precip_analytics", Name: "analysis_duration_seconds"}),
	}
}
