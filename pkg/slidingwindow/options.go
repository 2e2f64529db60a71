package slidingwindow

import (
	"go.uber.org/zap"

	"github.com/ava-labs/avalanche-window/pkg/metrics"
)

// DefaultCapacity is the number of resident items a window holds when
// WithCapacity is not given.
const DefaultCapacity = 40

type options struct {
	start    int64
	capacity int
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// Option configures a Window at construction. Options cannot be applied to a
// window that already exists, so capacity never changes under resident items.
type Option func(*options)

// WithStart sets the initial logical start. The default is 0.
func WithStart(start int64) Option {
	return func(o *options) {
		o.start = start
	}
}

// WithCapacity sets the maximum number of resident items. The default is
// DefaultCapacity. It must be at least 1.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

// WithLogger sets the logger used for fetch and eviction debug logs.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMetrics sets the collectors updated on every extension. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
