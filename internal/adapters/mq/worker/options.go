package worker

import (
	"time"

	"github.com/okian/matchmaker/pkg/logger"
)

// Option applies a configuration option to a worker.
type Option func(*loop)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(l *loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(lg logger.Logger) Option {
	return func(l *loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithPeriod sets the tick period of the escalator.
func WithPeriod(period time.Duration) Option {
	return func(l *loop) {
		if period > 0 {
			l.period = period
		}
	}
}
