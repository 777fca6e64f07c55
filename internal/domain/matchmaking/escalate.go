package matchmaking

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

// Escalate recomputes the priority level of every incomplete team and of the
// waiting team of every match from the wait of its anchor. Levels only rise
// and stop at the policy cap. Members that leave the pools during the pass
// are skipped. It returns the number of raised levels.
func (e *Engine) Escalate(ctx context.Context) (int, error) {
	start := time.Now()
	now := e.now()

	teams := make([]*model.Team, 0, e.teams.Len()+e.matches.Len())
	for _, h := range e.teams.Handles() {
		if t, ok := e.teams.Get(h); ok {
			teams = append(teams, t)
		}
	}
	for _, h := range e.matches.Handles() {
		m, ok := e.matches.Get(h)
		if !ok {
			continue
		}
		if t := m.First(); t != nil {
			teams = append(teams, t)
		}
	}

	raised := make([]bool, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.escalationLimit)
	for i, t := range teams {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raised[i] = e.escalate(gctx, t, now)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	count := 0
	for _, r := range raised {
		if r {
			count++
		}
	}
	metrics.RecordPriorityEscalations(count)
	metrics.RecordEscalationLatency(float64(time.Since(start).Microseconds()) / 1000)
	return count, err
}

func (e *Engine) escalate(ctx context.Context, t *model.Team, now time.Time) bool {
	anchor, ok := t.Anchor()
	if !ok {
		return false
	}
	waited := anchor.Waited(now)
	level, ok := e.rules.Fairness.LevelFor(waited)
	if !ok {
		return false
	}
	previous, raised := t.RaisePriority(level)
	if raised {
		e.logger.Debug(ctx, "priority escalated",
			logger.Int("from", previous),
			logger.Int("to", level),
			logger.Duration("waited", waited),
		)
	}
	return raised
}
