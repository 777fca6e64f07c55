// Package fairness maps waiting time to an eligibility bonus.
//
// A team's priority level grows with the wait of its oldest entrant; every
// level widens the skill tolerance used by the admission and balance checks
// by a fixed amount, up to a maximum level.
package fairness

import "time"

// Policy is an immutable level -> bonus table built once from configuration.
type Policy struct {
	perLevel int
	interval time.Duration
	table    []int
}

// NewPolicy builds a policy granting perLevel extra tolerance per level for
// levels 0..maxLevel. interval is the wait needed to gain one level.
func NewPolicy(perLevel, maxLevel int, interval time.Duration) Policy {
	if maxLevel < 0 {
		maxLevel = 0
	}
	table := make([]int, maxLevel+1)
	for level := range table {
		table[level] = level * perLevel
	}
	return Policy{perLevel: perLevel, interval: interval, table: table}
}

// MaxLevel returns the highest level that carries a bonus.
func (p Policy) MaxLevel() int {
	return len(p.table) - 1
}

// PerLevel returns the tolerance gained per level.
func (p Policy) PerLevel() int {
	return p.perLevel
}

// Interval returns the wait needed per level.
func (p Policy) Interval() time.Duration {
	return p.interval
}

// Bonus returns the tolerance bonus for level. Levels outside 0..MaxLevel are
// clamped.
func (p Policy) Bonus(level int) int {
	if len(p.table) == 0 || level <= 0 {
		return 0
	}
	if level > p.MaxLevel() {
		level = p.MaxLevel()
	}
	return p.table[level]
}

// LevelFor returns floor(waited / interval). ok is false when the computed
// level is past the cap, in which case callers keep the previous level.
func (p Policy) LevelFor(waited time.Duration) (level int, ok bool) {
	if p.interval <= 0 || waited <= 0 {
		return 0, true
	}
	level = int(waited / p.interval)
	return level, level <= p.MaxLevel()
}
