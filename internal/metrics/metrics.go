package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups the service's collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	SessionsOpened      prometheus.Counter
	SessionsSubmitted   *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	ScorePercentage     prometheus.Histogram
	RequestCounter      *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		gatherer: reg,
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_opened_total",
			Help: "Total number of quiz sessions opened",
		}),
		SessionsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sessions_submitted_total",
				Help: "Total number of quiz sessions submitted",
			},
			[]string{"reason"},
		),
		PersistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_persistence_failures_total",
				Help: "Total number of failed result or learner writes",
			},
			[]string{"op"},
		),
		ScorePercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_score_percentage",
			Help:    "Distribution of submitted quiz scores",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(
		r.SessionsOpened,
		r.SessionsSubmitted,
		r.PersistenceFailures,
		r.ScorePercentage,
		r.RequestCounter,
		r.RequestDuration,
	)
	return r
}

func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.SessionsOpened.Inc()
}

// SessionSubmitted records a submission and its score. reason is "explicit" or "timeout".
func (r *Recorder) SessionSubmitted(reason string, score float64) {
	if r == nil {
		return
	}
	r.SessionsSubmitted.WithLabelValues(reason).Inc()
	r.ScorePercentage.Observe(score)
}

func (r *Recorder) PersistenceFailed(op string) {
	if r == nil {
		return
	}
	r.PersistenceFailures.WithLabelValues(op).Inc()
}

// Middleware records request counts and latencies keyed by the chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)

		endpoint := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		r.RequestCounter.WithLabelValues(req.Method, endpoint, strconv.Itoa(sw.status)).Inc()
		r.RequestDuration.WithLabelValues(req.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
