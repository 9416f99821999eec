package flagcache

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/metrics"
)

type options struct {
	ttl      time.Duration
	hold     time.Duration
	timeout  time.Duration
	capacity int
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a cache implementation.
type Option func(*options)

func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithHold sets how long an invalidated feature list refuses new pages. A
// non-positive value drops the entry without holding the key.
func WithHold(d time.Duration) Option {
	return func(o *options) { o.hold = d }
}

// WithTimeout bounds every backend call of the Redis cache.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCapacity sets the entry limit of each Memory cache table.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithClock replaces time.Now in the Memory cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) *options {
	o := &options{
		ttl:      DefaultTTL,
		hold:     DefaultHold,
		timeout:  200 * time.Millisecond,
		capacity: 10000,
		now:      time.Now,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(logger.Component("flagcache"))
	return o
}
