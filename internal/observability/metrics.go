package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wildfire_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RecordsRead      *prometheus.CounterVec // labels: region
	SyntheticRecords *prometheus.CounterVec // labels: region
	Clusters         *prometheus.GaugeVec   // labels: region
	RegionFailures   *prometheus.CounterVec // labels: region
	RegionDuration   *prometheus.HistogramVec
	RowsPublished    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Climate forecast metrics.
	ClimateRequests    *prometheus.CounterVec // labels: outcome={success,error}
	ClimateCache       *prometheus.CounterVec // labels: result={hit,miss}
	ClimateAPIDuration prometheus.Histogram
	ClimateEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Fire records parsed from the consolidated exports.",
		}, []string{"region"}),
		SyntheticRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthetic_records_total",
			Help:      "No-fire records synthesized between detections.",
		}, []string{"region"}),
		Clusters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clusters",
			Help:      "Spatial clusters found in the last run of a region.",
		}, []string{"region"}),
		RegionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_failures_total",
			Help:      "Region runs that ended in an error.",
		}, []string{"region"}),
		RegionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_duration_seconds",
			Help:      "Duration of a complete region run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"region"}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Dataset rows written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch run is in progress, 0 otherwise.",
		}),
		ClimateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_requests_total",
			Help:      "Forecast API requests by outcome.",
		}, []string{"outcome"}),
		ClimateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ClimateAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "climate_api_duration_seconds",
			Help:      "meteoblue API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ClimateEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "climate_enabled",
			Help:      "1 when the forecast endpoint is enabled, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsRead,
		m.SyntheticRecords,
		m.Clusters,
		m.RegionFailures,
		m.RegionDuration,
		m.RowsPublished,
		m.PipelineRunning,
		m.ClimateRequests,
		m.ClimateCache,
		m.ClimateAPIDuration,
		m.ClimateEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
