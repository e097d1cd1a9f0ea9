// Public domain.

package dcserve

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	refinements *prometheus.CounterVec
	iterations  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dcserve_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"path", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dcserve_http_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		refinements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dcserve_refinements_total",
				Help: "Refinements by final status.",
			},
			[]string{"status"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dcserve_refine_iterations",
				Help:    "Damped steps per refinement.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 9),
			},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.refinements, m.iterations)
	return m
}

// middleware records request count and duration for each request.
func (m *metrics) middleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	m.requests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	m.duration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
}
