// Package worker runs the long-lived loops that drive the matchmaking engine:
// the single intake consumer and the periodic fairness escalator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchmaker/internal/adapters/mq/queue"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

const defaultEscalationPeriod = time.Second

// Processor admits entrants one at a time.
type Processor interface {
	Process(ctx context.Context, entrant model.Entrant)
	// Discard drops partially collected state and reports how many entrants
	// it held.
	Discard(ctx context.Context) int
}

// Escalation recomputes fairness levels in one pass.
type Escalation interface {
	Escalate(ctx context.Context) (int, error)
}

// Worker is a loop with cooperative shutdown.
type Worker interface {
	// Run blocks until ctx is cancelled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown asks Run to return and waits for it.
	Shutdown(ctx context.Context) error
}

// loop holds the shutdown plumbing shared by the workers.
type loop struct {
	name     string
	period   time.Duration
	logger   logger.Logger
	once     sync.Once
	shutdown chan struct{}
	done     chan struct{}
}

func newLoop(defaultName string, opts []Option) *loop {
	l := &loop{
		name:     defaultName,
		period:   defaultEscalationPeriod,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named(l.name)
	}
	return l
}

// Shutdown signals the loop and waits for it to finish or ctx to expire.
func (l *loop) Shutdown(ctx context.Context) error {
	l.once.Do(func() { close(l.shutdown) })
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%s: %w: %w", l.name, ErrStopped, ctx.Err())
	}
}

// IntakeWorker feeds entrants from a source to a processor, strictly one at a
// time and in delivery order.
type IntakeWorker struct {
	*loop
	source    queue.Source
	processor Processor
}

// NewIntakeWorker creates the intake loop.
func NewIntakeWorker(source queue.Source, processor Processor, opts ...Option) *IntakeWorker {
	return &IntakeWorker{
		loop:      newLoop("intake", opts),
		source:    source,
		processor: processor,
	}
}

// Run consumes entrants until ctx is cancelled, Shutdown is called or the
// source is closed and drained. Buffered group members are discarded on exit.
func (w *IntakeWorker) Run(ctx context.Context) {
	defer close(w.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.shutdown:
			cancel()
		case <-runCtx.Done():
		}
	}()

	w.logger.Info(ctx, "intake started")
	for {
		entrant, err := w.source.Take(runCtx)
		if err != nil {
			if runCtx.Err() == nil && !errors.Is(err, queue.ErrClosed) {
				metrics.RecordErrorByComponent("intake", "take_error")
				w.logger.Error(ctx, "take failed", logger.Error(err))
			}
			break
		}
		w.processor.Process(runCtx, entrant)
	}

	discarded := w.processor.Discard(context.WithoutCancel(ctx))
	w.logger.Info(ctx, "intake stopped", logger.Int("discarded", discarded))
}

// Escalator runs fairness escalation on a fixed period.
type Escalator struct {
	*loop
	target Escalation
}

// NewEscalator creates the escalation loop.
func NewEscalator(target Escalation, opts ...Option) *Escalator {
	return &Escalator{
		loop:   newLoop("escalator", opts),
		target: target,
	}
}

// Run ticks until ctx is cancelled or Shutdown is called.
func (w *Escalator) Run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-ticker.C:
			n, err := w.target.Escalate(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				metrics.RecordErrorByComponent("escalator", "escalate_error")
				w.logger.Error(ctx, "escalation failed", logger.Error(err))
				continue
			}
			if n > 0 {
				w.logger.Debug(ctx, "priority levels raised", logger.Int("count", n))
			}
		}
	}
}
