package matchmaking

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/rebalance"
	"github.com/okian/matchmaker/pkg/logger"
)

// DropFunc receives entrants the engine gave up on: groups too large for
// any team and group runs discarded at shutdown.
type DropFunc func(ctx context.Context, entrants []model.Entrant)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAnnouncer sets the receiver of finalized matches.
func WithAnnouncer(a Announcer) Option {
	return func(e *Engine) {
		if a != nil {
			e.announcer = a
		}
	}
}

// WithDropHandler sets the receiver of dropped entrants.
func WithDropHandler(fn DropFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.onDrop = fn
		}
	}
}

// WithRebalancer sets a custom rebalancer.
func WithRebalancer(r *rebalance.Rebalancer) Option {
	return func(e *Engine) {
		if r != nil {
			e.rebalancer = r
		}
	}
}

// WithClock sets the time source used for waits and escalation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEscalationConcurrency bounds the goroutines used by one Escalate pass.
func WithEscalationConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.escalationLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func defaultEscalationLimit() int {
	return runtime.NumCPU()
}
