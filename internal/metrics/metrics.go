package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	LoadsTotal        *prometheus.CounterVec
	LoadErrorsTotal   *prometheus.CounterVec
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	CacheEvictedTotal prometheus.Counter
	CacheEntries      prometheus.Gauge
	RowsDroppedTotal  *prometheus.CounterVec
	RowsLoaded        prometheus.Gauge
	QueriesTotal      prometheus.Counter
	NoDataTotal       prometheus.Counter
	RequestDuration   *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secdash_loads_total",
			Help: "CSV files loaded",
		}, []string{"source"}),
		LoadErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secdash_load_errors_total",
			Help: "CSV load failures by kind",
		}, []string{"kind"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secdash_cache_hits_total",
			Help: "Loads served from the parsed-table cache",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secdash_cache_misses_total",
			Help: "Loads that had to parse",
		}),
		CacheEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secdash_cache_evicted_total",
			Help: "Idle tables evicted from the cache",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "secdash_cache_entries",
			Help: "Parsed tables currently cached",
		}),
		RowsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secdash_rows_dropped_total",
			Help: "Rows discarded at load time",
		}, []string{"reason"}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "secdash_rows_loaded",
			Help: "Rows kept by the most recent parse",
		}),
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secdash_queries_total",
			Help: "Dashboard recomputations",
		}),
		NoDataTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secdash_no_data_total",
			Help: "Requests answered with no data available",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "secdash_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.LoadsTotal,
		m.LoadErrorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictedTotal,
		m.CacheEntries,
		m.RowsDroppedTotal,
		m.RowsLoaded,
		m.QueriesTotal,
		m.NoDataTotal,
		m.RequestDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
