// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Metrics()
// records request counts, latencies, in-flight requests and response sizes
// under these labels:
//
//   - method: the HTTP verb
//   - path:   the registered Gin route (e.g. /api/v1/bots/:botId/handoffs/:id);
//     the raw URL path when no route matched
//   - status: the numeric status code as a string
//
// Route templates rather than concrete URLs keep label cardinality bounded.
// Upgraded websocket connections (the realtime stream) are counted when they
// end, but their duration and size are not observed: a stream can stay open
// for hours and would skew the latency histogram.
//
// The collectors register on the default registry at init and are safe for
// concurrent use. Mount promhttp.Handler() to expose them.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts finished requests by method, route and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat observes request duration in seconds by method and route.
	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "handoff_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight is the number of requests currently being served,
	// websocket streams excluded.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "handoff_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// httpRespSize observes response body sizes in bytes by method and
	// route. Buckets span small JSON replies up to large list pages.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "handoff_http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics returns a Gin middleware that instruments every request.
//
// Behavior:
//   - increments httpInflight for the lifetime of non-upgrade requests
//   - after the handler chain runs, increments httpReqs with the final status
//   - observes httpLat and httpRespSize unless the request was a websocket
//     upgrade; a negative writer size (nothing written) is not observed
//
// It does not serve the metrics itself; mount promhttp.Handler() at /metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		upgrade := strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
		if !upgrade {
			httpInflight.Inc()
			defer httpInflight.Dec()
		}

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		if upgrade {
			return
		}
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
