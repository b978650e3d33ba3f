package app

import (
	"time"

	"go.uber.org/zap"

	"english-quiz-service/internal/metrics"
)

// Option configures sessions and the session service.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	metrics        *metrics.Recorder
	newTicker      TickerFunc
	now            func() time.Time
	atomicPoints   bool
	persistTimeout time.Duration
	idleTTL        time.Duration
}

func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		newTicker:      NewTimeTicker,
		now:            time.Now,
		persistTimeout: 10 * time.Second,
		idleTTL:        30 * time.Minute,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *options) { o.metrics = rec }
}

// WithTicker replaces the countdown ticker; tests use it to drive time by hand.
func WithTicker(fn TickerFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.newTicker = fn
		}
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAtomicPoints makes submissions add points with a single server-side increment when the
// learner store supports it, instead of read-modify-write.
func WithAtomicPoints(enabled bool) Option {
	return func(o *options) { o.atomicPoints = enabled }
}

// WithPersistTimeout bounds the result and learner writes of one submission.
func WithPersistTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.persistTimeout = d
		}
	}
}

// WithIdleTTL sets how long an untouched session survives before ReapIdle drops it.
func WithIdleTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleTTL = d
		}
	}
}
