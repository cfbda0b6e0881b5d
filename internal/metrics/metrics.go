// Package metrics collects and exposes Prometheus metrics for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records request and session counters for Prometheus.
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	questionsAdded  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewace_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interviewace_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewace_sessions_started_total",
			Help: "Interview sessions started by session type.",
		}, []string{"session_type"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewace_sessions_ended_total",
			Help: "Interview sessions ended by terminal status.",
		}, []string{"status"}),
		questionsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interviewace_questions_added_total",
			Help: "Question exchanges appended to sessions.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.sessionsStarted,
		c.sessionsEnded,
		c.questionsAdded,
	)

	return c
}

// RecordSessionStarted counts a session creation.
func (c *Collector) RecordSessionStarted(sessionType string) {
	c.sessionsStarted.WithLabelValues(sessionType).Inc()
}

// RecordSessionEnded counts a session reaching a terminal status.
func (c *Collector) RecordSessionEnded(status string) {
	c.sessionsEnded.WithLabelValues(status).Inc()
}

// RecordQuestionAdded counts an appended question exchange.
func (c *Collector) RecordQuestionAdded() {
	c.questionsAdded.Inc()
}

// Middleware records request counts and latency for every handled request.
// The route label uses the chi route pattern so path parameters do not
// explode the cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		c.requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		c.requestLatency.Observe(time.Since(start).Seconds())
	})
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
