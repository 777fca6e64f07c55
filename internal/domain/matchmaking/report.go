package matchmaking

import (
	"context"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// Report describes one finalized match.
type Report struct {
	ID     string
	First  []model.Entrant
	Second []model.Entrant

	FirstSkill  int
	SecondSkill int
	Difference  int
	// DifferenceBefore is the skill difference of the split as it was formed,
	// before rebalancing.
	DifferenceBefore int
	Rebalanced       bool

	// OldestWait is the wait of the anchor of the team that was waiting in the
	// match, measured before rebalancing.
	OldestWait time.Duration

	// Pool occupancy right after the match left the pool.
	WaitingMatches  int
	IncompleteTeams int
	QueuedEntrants  int

	FinalizedAt time.Time
}

// Announcer receives finalized matches. Announce runs on the intake path and
// should return quickly.
type Announcer interface {
	Announce(ctx context.Context, r Report)
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(ctx context.Context, r Report)

// Announce calls f.
func (f AnnouncerFunc) Announce(ctx context.Context, r Report) { f(ctx, r) }

// LogAnnouncer writes every finalized match to a logger.
type LogAnnouncer struct {
	Logger logger.Logger
}

// Announce logs r at info level.
func (a LogAnnouncer) Announce(ctx context.Context, r Report) {
	a.Logger.Info(ctx, "match finalized",
		logger.String("match_id", r.ID),
		logger.Int("first_skill", r.FirstSkill),
		logger.Int("second_skill", r.SecondSkill),
		logger.Int("difference", r.Difference),
		logger.Int("difference_before", r.DifferenceBefore),
		logger.Bool("rebalanced", r.Rebalanced),
		logger.Any("first_groups", groupIDs(r.First)),
		logger.Any("second_groups", groupIDs(r.Second)),
		logger.Duration("oldest_wait", r.OldestWait),
		logger.Int("waiting_matches", r.WaitingMatches),
		logger.Int("incomplete_teams", r.IncompleteTeams),
		logger.Int("queued_entrants", r.QueuedEntrants),
	)
}

func groupIDs(entrants []model.Entrant) []string {
	ids := make([]string, len(entrants))
	for i, e := range entrants {
		if e.IsSolo() {
			ids[i] = "-"
			continue
		}
		ids[i] = string(e.Group)
	}
	return ids
}
