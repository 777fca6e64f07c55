// Package service wires the entrant queue, the deduper, the matchmaking
// engine and its workers into one start/stop unit.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchmaker/internal/adapters/mq/queue"
	"github.com/okian/matchmaker/internal/adapters/mq/worker"
	"github.com/okian/matchmaker/internal/domain/dedupe"
	"github.com/okian/matchmaker/internal/domain/fairness"
	"github.com/okian/matchmaker/internal/domain/matchmaking"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

const (
	defaultQueueSize        = 100_000
	defaultDedupeSize       = 500_000
	defaultEscalationPeriod = time.Second
	stopTimeout             = 5 * time.Second
)

// DefaultRules returns six-a-side rules with the stock tolerances.
func DefaultRules() model.Rules {
	return model.Rules{
		Capacity:        6,
		PlayerTolerance: 200,
		TeamTolerance:   100,
		Fairness:        fairness.NewPolicy(25, 4, 5*time.Second),
	}
}

// Stats is a snapshot of the service.
type Stats struct {
	Started     bool
	QueueLength int
	Waiting     int64
	matchmaking.Stats
}

// Service runs one matchmaking engine.
type Service struct {
	mu sync.RWMutex

	// Configuration
	rules            model.Rules
	minGroupSize     int
	queueSize        int
	dedupeSize       int
	escalationPeriod time.Duration
	announcer        matchmaking.Announcer

	// Components
	deduper   dedupe.Deduper
	queue     *queue.PriorityQueue
	engine    *matchmaking.Engine
	intake    *worker.IntakeWorker
	escalator *worker.Escalator

	// State
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	now     func() time.Time

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rules:            DefaultRules(),
		minGroupSize:     2,
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		escalationPeriod: defaultEscalationPeriod,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and launches the intake and escalation loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.announcer == nil {
		s.announcer = matchmaking.LogAnnouncer{Logger: s.logger.Named("announcer")}
	}

	s.logger.Info(ctx, "starting matchmaking service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewPriorityQueue(queue.WithCapacity(s.queueSize))
	s.engine = matchmaking.New(s.rules,
		matchmaking.WithAnnouncer(matchmaking.AnnouncerFunc(s.announce)),
		matchmaking.WithDropHandler(s.forget),
		matchmaking.WithClock(s.now),
		matchmaking.WithLogger(s.logger.Named("engine")),
	)
	s.intake = worker.NewIntakeWorker(s.queue, s.engine,
		worker.WithLogger(s.logger.Named("intake")))
	s.escalator = worker.NewEscalator(s.engine,
		worker.WithPeriod(s.escalationPeriod),
		worker.WithLogger(s.logger.Named("escalator")))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		s.intake.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.escalator.Run(gctx)
		return nil
	})
	s.cancel = cancel
	s.group = g

	s.started = true
	s.logger.Info(ctx, "matchmaking service started",
		logger.Int("team_size", s.rules.Capacity),
		logger.Int("min_group_size", s.minGroupSize),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Duration("escalation_period", s.escalationPeriod),
	)
	return nil
}

// Stop shuts the workers down, discarding entrants that were not matched.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping matchmaking service...")

	_ = s.queue.Close()
	if err := s.escalator.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "escalator shutdown", logger.Error(err))
	}
	if err := s.intake.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "intake shutdown", logger.Error(err))
	}
	s.cancel()
	_ = s.group.Wait()

	s.started = false
	s.logger.Info(ctx, "matchmaking service stopped")
}

// Enqueue submits one unit: a solo entrant or every member of a group. The
// unit is stamped with the current time, shared by all members so they are
// delivered together. A unit containing an id that is already waiting is
// rejected as a whole.
func (s *Service) Enqueue(ctx context.Context, entrants ...model.Entrant) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	if err := validateUnit(entrants, s.minGroupSize); err != nil {
		return err
	}

	at := s.now()
	unit := make([]model.Entrant, len(entrants))
	for i, e := range entrants {
		e.EnqueuedAt = at
		unit[i] = e
	}

	for i, e := range unit {
		if s.deduper.SeenAndRecord(ctx, e.ID) {
			s.deduper.Forget(ctx, ids(unit[:i])...)
			metrics.RecordEntrantDuplicate()
			s.logger.Debug(ctx, "duplicate entrant rejected", logger.String("entrant_id", e.ID))
			return fmt.Errorf("entrant %s: %w", e.ID, ErrDuplicate)
		}
	}

	if err := s.queue.Enqueue(ctx, unit...); err != nil {
		s.deduper.Forget(ctx, ids(unit)...)
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func validateUnit(entrants []model.Entrant, minGroupSize int) error {
	if len(entrants) == 0 {
		return fmt.Errorf("empty unit: %w", ErrInvalidEntrant)
	}
	group := entrants[0].Group
	if group == model.NoGroup && len(entrants) > 1 {
		return fmt.Errorf("%d solo entrants in one unit: %w", len(entrants), ErrInvalidEntrant)
	}
	if group != model.NoGroup && len(entrants) < minGroupSize {
		return fmt.Errorf("group %s has %d members, need %d: %w", group, len(entrants), minGroupSize, ErrInvalidEntrant)
	}
	for _, e := range entrants {
		if e.ID == "" {
			return fmt.Errorf("missing id: %w", ErrInvalidEntrant)
		}
		if e.Group != group {
			return fmt.Errorf("entrant %s not in group %s: %w", e.ID, group, ErrInvalidEntrant)
		}
	}
	return nil
}

func (s *Service) announce(ctx context.Context, r matchmaking.Report) {
	s.forget(ctx, r.First)
	s.forget(ctx, r.Second)
	s.announcer.Announce(ctx, r)
}

func (s *Service) forget(ctx context.Context, entrants []model.Entrant) {
	s.deduper.Forget(ctx, ids(entrants)...)
}

func ids(entrants []model.Entrant) []string {
	out := make([]string, len(entrants))
	for i, e := range entrants {
		out[i] = e.ID
	}
	return out
}

// Stats returns a snapshot of the queue and the engine.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return Stats{}
	}
	return Stats{
		Started:     true,
		QueueLength: s.queue.Len(context.Background()),
		Waiting:     s.deduper.Size(),
		Stats:       s.engine.Stats(),
	}
}

// UpdateMetrics publishes the pool gauges.
func (s *Service) UpdateMetrics() {
	st := s.Stats()
	if !st.Started {
		return
	}
	metrics.UpdatePools(st.IncompleteTeams, st.WaitingMatches, st.QueuedEntrants)
	metrics.UpdateQueueSize(st.QueueLength)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	st := s.Stats()
	stats := map[string]any{
		"started":    st.Started,
		"teamSize":   s.rules.Capacity,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if st.Started {
		stats["queueLength"] = st.QueueLength
		stats["waitingEntrants"] = st.Waiting
		stats["incompleteTeams"] = st.IncompleteTeams
		stats["waitingMatches"] = st.WaitingMatches
		stats["queuedEntrants"] = st.QueuedEntrants
		stats["bufferedEntrants"] = st.BufferedEntrants
		stats["matchesFinalized"] = st.MatchesFinalized
		stats["groupsDropped"] = st.GroupsDropped
	}
	return stats
}
