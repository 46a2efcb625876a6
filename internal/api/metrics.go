package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
//
// Metrics:
//   - umaja_http_requests_total{method,route,status}
//   - umaja_http_request_duration_seconds{method,route}
//   - umaja_renders_total{archetype,mode,language}
//   - umaja_sales_total{outcome}
//   - umaja_rate_limited_total
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	renders     *prometheus.CounterVec
	sales       *prometheus.CounterVec
	rateLimited prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umaja_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "umaja_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umaja_renders_total",
				Help: "Total number of rendered texts",
			},
			[]string{"archetype", "mode", "language"},
		),
		sales: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umaja_sales_total",
				Help: "Total number of sale events by outcome",
			},
			[]string{"outcome"}, // "created", "failed", "delivered", "declined", "coming_soon"
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "umaja_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.renders,
		m.sales,
		m.rateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveRender(r *models.Rendered) {
	if m == nil || r == nil {
		return
	}
	m.renders.WithLabelValues(r.Archetype.String(), string(r.Mode), r.Language).Inc()
}

func (m *Metrics) ObserveSale(outcome string) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
