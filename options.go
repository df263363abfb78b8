package milvus

import (
	"go.uber.org/zap"

	"github.com/fireae/milvus/internal/stats"
)

// defaultThresholdFraction is the fraction of capacity an eviction pass
// reduces usage below.
const defaultThresholdFraction = 0.85

// Option configures a Cache.
type Option interface {
	apply(*options)
}

// options holds the cache configuration.
type options struct {
	thresholdFraction float64
	maxEntries        int
	stats             stats.Collector
	logger            *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		thresholdFraction: defaultThresholdFraction,
		maxEntries:        0, // no entry-count bound
		stats:             stats.NewNoop(),
		logger:            zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithThresholdFraction sets the eviction threshold as a fraction of
// capacity in (0, 1]. An eviction pass reduces usage below
// capacity * fraction rather than to exactly capacity, so the next insert
// does not immediately re-trigger eviction. Default is 0.85.
func WithThresholdFraction(fraction float64) Option {
	return optionFunc(func(o *options) {
		o.thresholdFraction = fraction
	})
}

// WithMaxEntries bounds the number of cached entries in addition to the byte
// capacity. Once the bound is reached, inserting a new key drops the
// least-recently-used entry. Non-positive values mean no bound, which is the
// default.
func WithMaxEntries(n int) Option {
	return optionFunc(func(o *options) {
		o.maxEntries = n
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
