package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the tracker.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ObservationsSkipped  prometheus.Counter
	ReconcileErrors      prometheus.Counter
	PipelineRunning      prometheus.Gauge

	ReconcileDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty,out_of_bounds}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss,evict}
	GeocodeEnabled  prometheus.Gauge

	// Backfill metrics.
	BackfillRepairs *prometheus.CounterVec // labels: kind={duration,coordinates}
}

// NewMetrics creates and registers all tracker metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_tracker",
			Name:      "observations_consumed_total",
			Help:      "Total observations read from the source topic.",
		}),
		ObservationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_tracker",
			Name:      "observations_skipped_total",
			Help:      "Total observations dropped for parse or validation failures.",
		}),
		ReconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_tracker",
			Name:      "reconcile_errors_total",
			Help:      "Total reconcile attempts that failed at the store.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_tracker",
			Name:      "pipeline_running",
			Help:      "1 when the consume loop is active, 0 when shut down.",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_tracker",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of one merge-and-persist operation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_tracker",
			Name:      "geocode_requests_total",
			Help:      "External geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_tracker",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_tracker",
			Name:      "geocode_enabled",
			Help:      "1 when coordinate resolution is enabled, 0 otherwise.",
		}),
		BackfillRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_tracker",
			Name:      "backfill_repairs_total",
			Help:      "Successful backfill repairs by kind.",
		}, []string{"kind"}),
	}

	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ObservationsSkipped,
		m.ReconcileErrors,
		m.PipelineRunning,
		m.ReconcileDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeEnabled,
		m.BackfillRepairs,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_tracker", Name: "observations_consumed_total"}),
		ObservationsSkipped:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_tracker", Name: "observations_skipped_total"}),
		ReconcileErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_tracker", Name: "reconcile_errors_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_tracker", Name: "pipeline_running"}),
		ReconcileDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_tracker", Name: "reconcile_duration_seconds"}),
		GeocodeRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_tracker", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_tracker", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_tracker", Name: "geocode_enabled"}),
		BackfillRepairs:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_tracker", Name: "backfill_repairs_total"}, []string{"kind"}),
	}
}
