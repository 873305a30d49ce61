package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the climate client.
type Metrics struct {
	// Processing client metrics.
	ProcessCalls    *prometheus.CounterVec // labels: outcome={cache_hit,success,failed,timeout,error}
	ProcessDuration prometheus.Histogram
	BatchCells      prometheus.Histogram
	PollWaits       prometheus.Counter
	PollWaitSeconds prometheus.Counter

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,error}
	CacheWrites  *prometheus.CounterVec // labels: outcome={success,error}

	// Transport metrics.
	TransportAttempts *prometheus.CounterVec // labels: outcome={success,connection_error,http_error}
	TransportRetries  prometheus.Counter
	TransportDuration prometheus.Histogram

	// Publisher metrics.
	ResultsPublished prometheus.Counter
	PublishErrors    prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests  *prometheus.CounterVec // labels: method={forward,reverse}, outcome={success,error,not_found}
	GeocodeDuration  *prometheus.HistogramVec
	GeocodeCacheHits *prometheus.CounterVec // labels: method
}

// NewMetrics creates and registers all client metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewUnregisteredMetrics()

	prometheus.MustRegister(
		m.ProcessCalls,
		m.ProcessDuration,
		m.BatchCells,
		m.PollWaits,
		m.PollWaitSeconds,
		m.CacheLookups,
		m.CacheWrites,
		m.TransportAttempts,
		m.TransportRetries,
		m.TransportDuration,
		m.ResultsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeDuration,
		m.GeocodeCacheHits,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}

// NewUnregisteredMetrics creates Metrics for one-shot commands that never
// serve /metrics.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		ProcessCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "process_calls_total",
			Help:      "Batch process calls by outcome.",
		}, []string{"outcome"}),
		ProcessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fetchclimate",
			Name:      "process_duration_seconds",
			Help:      "Wall-clock duration of a batch process call, including polling.",
			Buckets:   []float64{0.01, 0.1, 1, 5, 30, 60, 300, 1800, 3600, 14400},
		}),
		BatchCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fetchclimate",
			Name:      "batch_cells",
			Help:      "Number of cells per batch request.",
			Buckets:   []float64{1, 10, 100, 1000, 10000, 100000},
		}),
		PollWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "poll_waits_total",
			Help:      "Pending status responses that caused the client to wait.",
		}),
		PollWaitSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "poll_wait_seconds_total",
			Help:      "Total time spent waiting on server-provided calculation hints.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "cache_lookups_total",
			Help:      "Disk cache lookups by result.",
		}, []string{"result"}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "cache_writes_total",
			Help:      "Disk cache writes by outcome.",
		}, []string{"outcome"}),
		TransportAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "transport_attempts_total",
			Help:      "HTTP POST attempts to the climate service by outcome.",
		}, []string{"outcome"}),
		TransportRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "transport_retries_total",
			Help:      "Retries after connection-level failures.",
		}),
		TransportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fetchclimate",
			Name:      "transport_request_duration_seconds",
			Help:      "Duration of a single HTTP POST attempt.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}),
		ResultsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "results_published_total",
			Help:      "Results written to the Kafka results topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "publish_errors_total",
			Help:      "Failed writes to the Kafka results topic.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "geocode_requests_total",
			Help:      "Mapbox geocoding requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fetchclimate",
			Name:      "geocode_duration_seconds",
			Help:      "Duration of Mapbox geocoding requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		GeocodeCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchclimate",
			Name:      "geocode_cache_hits_total",
			Help:      "Geocoding lookups served from the in-memory cache.",
		}, []string{"method"}),
	}
}
