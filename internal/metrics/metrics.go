// Package metrics exposes Prometheus collectors for the HTTP layer and the
// analysis engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rank-sum outcomes.
const (
	RankSumComputed     = "computed"
	RankSumInsufficient = "insufficient"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cytometry",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cytometry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cytometry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	rankSumTests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cytometry",
			Subsystem: "analysis",
			Name:      "rank_sum_tests_total",
			Help:      "Per-population response comparisons by outcome.",
		},
		[]string{"outcome"},
	)

	ingestedSamples = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cytometry",
			Subsystem: "ingest",
			Name:      "samples_total",
			Help:      "Samples loaded through bulk uploads.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		rankSumTests,
		ingestedSamples,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency. Paths are the matched route
// templates so ids do not explode label cardinality.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRankSum counts one response comparison with the given outcome.
func RecordRankSum(outcome string) {
	rankSumTests.WithLabelValues(outcome).Inc()
}

// RecordIngest counts samples loaded by a bulk upload.
func RecordIngest(n int) {
	if n <= 0 {
		return
	}
	ingestedSamples.Add(float64(n))
}
