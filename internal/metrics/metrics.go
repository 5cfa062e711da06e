// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for HTTP traffic, processing jobs and the client cache.
//
// Metrics:
//   - taxengine_http_requests_total{method,route,status}
//   - taxengine_http_request_duration_seconds{method,route}
//   - taxengine_jobs_finished_total{kind,status}
//   - taxengine_job_duration_seconds{kind}
//   - taxengine_periods_rolled_over_total
//   - taxengine_client_cache_lookups_total{result}
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	JobsFinished *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec

	PeriodsRolledOver prometheus.Counter
	CacheLookups      *prometheus.CounterVec
}

// New registers every collector on a fresh registry, along with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxengine_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taxengine_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		JobsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxengine_jobs_finished_total",
				Help: "Processing jobs that reached a terminal status",
			},
			[]string{"kind", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taxengine_job_duration_seconds",
				Help:    "Processing job run time",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		PeriodsRolledOver: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxengine_periods_rolled_over_total",
			Help: "Accounting periods inserted by the nightly rollover",
		}),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxengine_client_cache_lookups_total",
				Help: "Client directory cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency. Unmatched routes share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveJob records a finished job
func (m *Metrics) ObserveJob(kind, status string, took time.Duration) {
	m.JobsFinished.WithLabelValues(kind, status).Inc()
	m.JobDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// ObserveCache records a client directory lookup
func (m *Metrics) ObserveCache(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRollover records periods inserted by one rollover run
func (m *Metrics) ObserveRollover(inserted int) {
	m.PeriodsRolledOver.Add(float64(inserted))
}
