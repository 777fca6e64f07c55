// Package model contains the matchmaking entities: entrants, teams and
// matches, together with their admission and balance rules.
package model

import "time"

// GroupID identifies a group of entrants that must play on the same team.
type GroupID string

// NoGroup marks a solo entrant.
const NoGroup GroupID = ""

// Entrant is one individual waiting to be matched.
type Entrant struct {
	ID         string
	Skill      int
	Group      GroupID
	EnqueuedAt time.Time
}

// IsSolo reports whether the entrant queued alone.
func (e Entrant) IsSolo() bool {
	return e.Group == NoGroup
}

// Waited returns how long the entrant has been queued at now.
func (e Entrant) Waited(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}

// Before orders entrants by enqueue time, then by group id, so that members
// of a group enqueued together are delivered consecutively.
func Before(a, b Entrant) bool {
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.Group < b.Group
}

// SkillSum returns the sum of the entrants' skills.
func SkillSum(entrants []Entrant) int {
	total := 0
	for _, e := range entrants {
		total += e.Skill
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
