// Package matchmaking turns a stream of entrants into balanced matches.
//
// The Engine admits entrants one at a time into the first eligible team,
// pairs full teams into matches, rebalances completed matches and announces
// them. Process must be called from a single goroutine; Escalate and Stats
// may run concurrently with it.
package matchmaking

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/pool"
	"github.com/okian/matchmaker/internal/domain/rebalance"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

// Stats is a point-in-time view of the engine.
type Stats struct {
	IncompleteTeams  int
	WaitingMatches   int
	QueuedEntrants   int
	BufferedEntrants int
	MatchesFinalized int64
	GroupsDropped    int64
}

// Engine owns the team and match pools.
type Engine struct {
	rules *model.Rules

	teams   *pool.Pool[*model.Team]
	matches *pool.Pool[*model.Match]

	rebalancer *rebalance.Rebalancer
	announcer  Announcer
	onDrop     DropFunc
	now        func() time.Time

	escalationLimit int

	// buffer holds the current run of same-group entrants. Only Process and
	// Discard touch it.
	buffer   []model.Entrant
	buffered atomic.Int64

	finalized atomic.Int64
	dropped   atomic.Int64

	logger logger.Logger
}

// New creates an Engine governed by rules.
func New(rules model.Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:           &rules,
		teams:           pool.New[*model.Team](),
		matches:         pool.New[*model.Match](),
		now:             time.Now,
		escalationLimit: defaultEscalationLimit(),
		onDrop:          func(context.Context, []model.Entrant) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	if e.rebalancer == nil {
		e.rebalancer = rebalance.New(rebalance.WithLogger(e.logger.Named("rebalancer")))
	}
	if e.announcer == nil {
		e.announcer = LogAnnouncer{Logger: e.logger}
	}
	return e
}

// Rules returns the admission rules.
func (e *Engine) Rules() model.Rules {
	return *e.rules
}

// Process admits one entrant. Group members are buffered until the run of
// their group breaks, then the whole run is admitted to one team or dropped.
func (e *Engine) Process(ctx context.Context, entrant model.Entrant) {
	if len(e.buffer) > 0 && (entrant.IsSolo() || entrant.Group != e.buffer[0].Group) {
		e.flush(ctx)
	}

	if !entrant.IsSolo() {
		e.buffer = append(e.buffer, entrant)
		e.setBuffered()
		return
	}

	e.admitSolo(ctx, entrant)
}

// Flush admits the buffered group run without waiting for it to break.
func (e *Engine) Flush(ctx context.Context) {
	if len(e.buffer) == 0 {
		return
	}
	e.flush(ctx)
}

// Discard drops the buffered group run and returns how many entrants it held.
func (e *Engine) Discard(ctx context.Context) int {
	n := len(e.buffer)
	if n == 0 {
		return 0
	}
	run := e.buffer
	e.buffer = nil
	e.setBuffered()
	e.onDrop(ctx, run)
	return n
}

func (e *Engine) flush(ctx context.Context) {
	run := e.buffer
	e.buffer = nil
	e.setBuffered()
	e.admitGroup(ctx, run)
}

func (e *Engine) admitSolo(ctx context.Context, entrant model.Entrant) {
	h, team, _ := e.teams.FindOrCreate(
		func(t *model.Team) bool { return t.IsPlayerEligible(entrant) },
		e.newTeam,
	)
	team.AddEntrant(entrant)
	metrics.RecordEntrantsAdmitted(metrics.KindSolo, 1)
	e.completeTeam(ctx, h, team)
}

func (e *Engine) admitGroup(ctx context.Context, group []model.Entrant) {
	h, team, _ := e.teams.FindOrCreate(
		func(t *model.Team) bool { return t.IsGroupEligible(group) },
		e.newTeam,
	)
	if !team.AddGroup(group) {
		// only an empty team accepts a group it cannot hold
		if team.IsEmpty() {
			e.teams.Remove(h)
		}
		e.dropped.Add(1)
		metrics.RecordGroupDropped()
		e.logger.Warn(ctx, "group dropped",
			logger.String("group", string(group[0].Group)),
			logger.Int("size", len(group)),
			logger.Int("capacity", e.rules.Capacity),
		)
		e.onDrop(ctx, group)
		return
	}
	metrics.RecordGroupAdmitted()
	metrics.RecordEntrantsAdmitted(metrics.KindGroup, len(group))
	e.completeTeam(ctx, h, team)
}

func (e *Engine) newTeam() *model.Team {
	return model.NewTeam(e.rules)
}

func (e *Engine) newMatch() *model.Match {
	return model.NewMatch(e.rules)
}

// completeTeam moves a full team out of the team pool and into a match.
func (e *Engine) completeTeam(ctx context.Context, h pool.Handle, team *model.Team) {
	if !team.IsFull() {
		return
	}
	e.teams.Remove(h)
	metrics.RecordTeamCompleted()
	e.logger.Debug(ctx, "team completed",
		logger.Int("total_skill", team.TotalSkill()),
		logger.Int("priority_level", team.PriorityLevel()),
	)

	mh, match, _ := e.matches.FindOrCreate(
		func(m *model.Match) bool { return m.IsBalancedWith(team) },
		e.newMatch,
	)
	if !match.IsWaiting() {
		if err := match.SetFirst(team); err != nil {
			panic(fmt.Sprintf("matchmaking: fresh match rejected its first team: %v", err))
		}
		return
	}
	if err := match.SetSecond(team); err != nil {
		panic(fmt.Sprintf("matchmaking: waiting match rejected its second team: %v", err))
	}
	e.matches.Remove(mh)
	e.finalize(ctx, match)
}

// finalize rebalances a match that already left the pool and announces it.
func (e *Engine) finalize(ctx context.Context, match *model.Match) {
	now := e.now()
	var oldestWait time.Duration
	if anchor, ok := match.First().Anchor(); ok {
		oldestWait = anchor.Waited(now)
	}

	res, err := e.rebalancer.Rebalance(ctx, match)
	if err != nil {
		panic(fmt.Sprintf("matchmaking: %v", err))
	}

	first, second := match.First(), match.Second()
	stats := e.poolStats()
	report := Report{
		ID:               xid.NewWithTime(now).String(),
		First:            first.Members(),
		Second:           second.Members(),
		FirstSkill:       first.TotalSkill(),
		SecondSkill:      second.TotalSkill(),
		Difference:       res.After,
		DifferenceBefore: res.Before,
		Rebalanced:       res.Changed,
		OldestWait:       oldestWait,
		WaitingMatches:   stats.WaitingMatches,
		IncompleteTeams:  stats.IncompleteTeams,
		QueuedEntrants:   stats.QueuedEntrants,
		FinalizedAt:      now,
	}

	e.finalized.Add(1)
	metrics.RecordMatchFinalized(report.Difference, oldestWait.Seconds())
	metrics.UpdatePools(stats.IncompleteTeams, stats.WaitingMatches, stats.QueuedEntrants)
	e.announcer.Announce(ctx, report)
}

// Stats returns the current pool occupancy.
func (e *Engine) Stats() Stats {
	s := e.poolStats()
	s.BufferedEntrants = int(e.buffered.Load())
	s.MatchesFinalized = e.finalized.Load()
	s.GroupsDropped = e.dropped.Load()
	return s
}

func (e *Engine) poolStats() Stats {
	s := Stats{WaitingMatches: e.matches.Len()}
	for _, t := range e.teams.Values() {
		s.IncompleteTeams++
		s.QueuedEntrants += t.Size()
	}
	s.QueuedEntrants += s.WaitingMatches * e.rules.Capacity
	return s
}

func (e *Engine) setBuffered() {
	e.buffered.Store(int64(len(e.buffer)))
	metrics.UpdateGroupBufferSize(len(e.buffer))
}
