package wal

import (
	"log/slog"

	"logwal/pkg/logmap"
	"logwal/pkg/metrics"
)

type options struct {
	start    uint64
	resume   bool
	logger   *slog.Logger
	metrics  metrics.Collector
	dialOpts []logmap.DialOption
}

type Option func(*options)

// WithResume starts the index after the records already in the map. It
// assumes the map holds indices 0..Len-1 and overrides WithStartIndex.
func WithResume() Option {
	return func(o *options) { o.resume = true }
}

func WithStartIndex(n uint64) Option {
	return func(o *options) { o.start = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithCollector(c metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithDialOptions is passed to logmap.Dial by Open.
func WithDialOptions(opts ...logmap.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

func newOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = metrics.Nop{}
	}
	return o
}
