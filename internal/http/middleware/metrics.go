package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP series. Labels are bounded: route is the registered Gin pattern (or
// "unmatched"), never the raw URL, and auth is "user" or "anonymous".
var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopd",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route, status code and caller kind.",
	}, []string{"method", "route", "code", "auth"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopd",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		// Cache hits answer in microseconds, upstream round trips in seconds.
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	}, []string{"method", "route"})

	inflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "shopd",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	responseSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopd",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size by method and route.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
	}, []string{"method", "route"})

	rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopd",
		Subsystem: "http",
		Name:      "rejections_total",
		Help:      "Requests refused by middleware before reaching a handler.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(requests, latency, inflight, responseSize, rejections)
}

// Metrics records the shopd_http_* series for every request passing
// through it. The caller kind is read after the chain ran, so OptionalAuth
// may come later.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		caller := "anonymous"
		if userIDFrom(c) != "" {
			caller = "user"
		}
		method := c.Request.Method

		requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status()), caller).Inc()
		latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			responseSize.WithLabelValues(method, route).Observe(float64(n))
		}
	}
}
