package simulation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// Enqueuer accepts one unit of entrants.
type Enqueuer interface {
	Enqueue(ctx context.Context, entrants ...model.Entrant) error
}

// Stats counts what the producers emitted.
type Stats struct {
	Units    int64
	Entrants int64
	Rejected int64
}

// Producer runs the configured number of generators against an Enqueuer.
type Producer struct {
	cfg    Config
	target Enqueuer

	units    atomic.Int64
	entrants atomic.Int64
	rejected atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Producer.
type Option func(*Producer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProducer creates a producer feeding target.
func NewProducer(cfg Config, target Enqueuer, opts ...Option) *Producer {
	p := &Producer{cfg: cfg, target: target}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("simulation")
	}
	return p
}

// Run emits every unit, pacing each producer by the configured interval. It
// returns when all producers are done or ctx is cancelled.
func (p *Producer) Run(ctx context.Context) error {
	p.logger.Info(ctx, "simulation started",
		logger.Int("producers", p.cfg.Producers),
		logger.Int("units_per_producer", p.cfg.EntrantsPerProducer),
		logger.Duration("interval", p.cfg.Interval),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := range p.cfg.Producers {
		gen := newGenerator(p.cfg, uint64(i))
		g.Go(func() error {
			return p.produce(gctx, gen)
		})
	}
	err := g.Wait()

	st := p.Stats()
	p.logger.Info(ctx, "simulation finished",
		logger.Int64("units", st.Units),
		logger.Int64("entrants", st.Entrants),
		logger.Int64("rejected", st.Rejected),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Producer) produce(ctx context.Context, gen *generator) error {
	var tick <-chan time.Time
	if p.cfg.Interval > 0 {
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := range p.cfg.EntrantsPerProducer {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		unit := gen.next()
		if err := p.target.Enqueue(ctx, unit...); err != nil {
			p.rejected.Add(int64(len(unit)))
			p.logger.Debug(ctx, "unit rejected", logger.Int("size", len(unit)), logger.Error(err))
			continue
		}
		p.units.Add(1)
		p.entrants.Add(int64(len(unit)))
	}
	return nil
}

// Stats returns the counters so far.
func (p *Producer) Stats() Stats {
	return Stats{
		Units:    p.units.Load(),
		Entrants: p.entrants.Load(),
		Rejected: p.rejected.Load(),
	}
}
