package dnscache

import (
	"io"
	"log/slog"
	"time"
)

// options configures the Cache behavior (internal only).
type options struct {
	defaultTTL time.Duration
	resolver   Resolver
	clock      func() time.Time
	logger     *slog.Logger
	metrics    *Metrics
}

// defaultOptions returns sensible defaults.
func defaultOptions() options {
	return options{
		defaultTTL: 300 * time.Second,
		resolver:   NewNetResolver(),
		clock:      time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring a Cache.
type Option func(*options)

// WithDefaultTTL sets the time-to-live applied when a lookup does not
// specify one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// WithResolver sets the resolver used on cache misses.
// DEFAULT: The system resolver
func WithResolver(resolver Resolver) Option {
	return func(o *options) {
		if resolver == nil {
			o.resolver = NewNetResolver()
			return
		}

		o.resolver = resolver
	}
}

// WithClock sets the time source consulted on every operation. Tests use
// this to inject fixed times.
// DEFAULT: time.Now
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock == nil {
			o.clock = time.Now
			return
		}

		o.clock = clock
	}
}

// WithLogger sets the logger for the cache.
// If the logger is nil, the cache will use a no-op logger.
// DEFAULT: A no-op logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			return
		}

		o.logger = logger
	}
}

// WithMetrics sets the Prometheus counters updated by cache operations.
// DEFAULT: No instrumentation
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}
