package driver

import (
	"github.com/benz9527/rbrange/observability"
	"github.com/benz9527/rbrange/xlog"
)

const defaultMaxAttempts = 3

type options struct {
	logger      xlog.XLogger
	stats       *observability.TreeStats
	maxAttempts int
	insertOnly  bool
}

type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.NewXLogger(
			xlog.WithXLoggerWriter(xlog.StdErr),
			xlog.WithXLoggerLevel(xlog.LogLevelWarn),
		)
	}
	return o
}

func WithLogger(logger xlog.XLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStats is optional, the nil stats record nothing.
func WithStats(stats *observability.TreeStats) Option {
	return func(o *options) {
		o.stats = stats
	}
}

// WithMaxAttempts ignores the non-positive values.
func WithMaxAttempts(attempts int) Option {
	return func(o *options) {
		if attempts > 0 {
			o.maxAttempts = attempts
		}
	}
}

// WithInsertOnly parses the queries but never evaluates them.
func WithInsertOnly() Option {
	return func(o *options) {
		o.insertOnly = true
	}
}
