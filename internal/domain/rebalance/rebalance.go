// Package rebalance re-splits a completed match into the fairest legal pair
// of teams.
//
// The search is exhaustive: for two teams of size k every k-subset of the 2k
// entrants is tried as the first team, which is C(12, 6) = 924 candidates for
// six-a-side. A candidate is legal when no group has members on both sides.
// The legal candidate with the smallest skill-sum difference wins; on ties the
// earliest candidate in enumeration order wins, so the original split is kept
// unless something strictly better exists. Teams larger than MaxTeamSize are
// never searched.
package rebalance

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

// MaxTeamSize is the largest team the search runs for: C(16, 8) = 12,870
// candidates.
const MaxTeamSize = 8

// Result describes the outcome of one search.
type Result struct {
	First  []model.Entrant
	Second []model.Entrant
	// Before and After are the skill-sum differences of the original and the
	// chosen split.
	Before int
	After  int
	// Candidates is the number of splits enumerated, Legal the number that
	// kept every group together.
	Candidates int
	Legal      int
	// Changed is false when the original split was kept.
	Changed bool
	Took    time.Duration
}

// Rebalancer searches for the best split of a completed match.
type Rebalancer struct {
	logger logger.Logger
}

// Option applies a configuration option to the Rebalancer.
type Option func(*Rebalancer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Rebalancer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Rebalancer.
func New(opts ...Option) *Rebalancer {
	r := &Rebalancer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("rebalancer")
	}
	return r
}

// Best returns the fairest legal split of first+second with len(first)
// entrants on the first side. It does not mutate its inputs.
func (r *Rebalancer) Best(first, second []model.Entrant) Result {
	start := time.Now()
	all := make([]model.Entrant, 0, len(first)+len(second))
	all = append(all, first...)
	all = append(all, second...)
	total := model.SkillSum(all)

	before := absDiff(model.SkillSum(first), model.SkillSum(second))
	res := Result{Before: before, After: before}

	var best []int
	if len(first) > MaxTeamSize || len(second) > MaxTeamSize {
		return keep(res, first, second, start)
	}

	bestDiff := -1
	for combo := range Combinations(len(all), len(first)) {
		res.Candidates++
		if !keepsGroups(all, combo) {
			continue
		}
		res.Legal++
		side := 0
		for _, i := range combo {
			side += all[i].Skill
		}
		diff := absDiff(side, total-side)
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = append(best[:0], combo...)
		}
	}

	if best == nil {
		// no legal split at all
		return keep(res, first, second, start)
	}

	res.First, res.Second = split(all, best)
	res.After = bestDiff
	res.Changed = !isIdentity(best)
	res.Took = time.Since(start)
	return res
}

// Rebalance replaces the member lists of m's teams with the best split. The
// match must already have left the match pool.
func (r *Rebalancer) Rebalance(ctx context.Context, m *model.Match) (Result, error) {
	first, second := m.First(), m.Second()
	if first == nil || second == nil {
		return Result{}, fmt.Errorf("rebalance: %w", ErrIncompleteMatch)
	}

	res := r.Best(first.Members(), second.Members())
	metrics.RecordRebalance(float64(res.Took.Microseconds())/1000, res.Before, res.After)

	if res.Changed {
		first.ReplaceMembers(res.First)
		second.ReplaceMembers(res.Second)
		r.logger.Debug(ctx, "match rebalanced",
			logger.Int("before", res.Before),
			logger.Int("after", res.After),
			logger.Int("legal_splits", res.Legal),
			logger.Duration("took", res.Took),
		)
	}
	return res, nil
}

func keep(res Result, first, second []model.Entrant, start time.Time) Result {
	res.First = append([]model.Entrant(nil), first...)
	res.Second = append([]model.Entrant(nil), second...)
	res.Took = time.Since(start)
	return res
}

// keepsGroups reports whether the first side picked by combo shares no group
// with the remaining entrants.
func keepsGroups(all []model.Entrant, combo []int) bool {
	picked := make([]bool, len(all))
	groups := make(map[model.GroupID]struct{}, len(combo))
	for _, i := range combo {
		picked[i] = true
		if g := all[i].Group; g != model.NoGroup {
			groups[g] = struct{}{}
		}
	}
	if len(groups) == 0 {
		return true
	}
	for i, e := range all {
		if picked[i] {
			continue
		}
		if _, ok := groups[e.Group]; ok {
			return false
		}
	}
	return true
}

func split(all []model.Entrant, combo []int) (first, second []model.Entrant) {
	picked := make([]bool, len(all))
	first = make([]model.Entrant, 0, len(combo))
	for _, i := range combo {
		picked[i] = true
		first = append(first, all[i])
	}
	second = make([]model.Entrant, 0, len(all)-len(combo))
	for i, e := range all {
		if !picked[i] {
			second = append(second, e)
		}
	}
	return first, second
}

func isIdentity(combo []int) bool {
	for i, v := range combo {
		if v != i {
			return false
		}
	}
	return true
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
