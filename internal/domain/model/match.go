package model

import (
	"fmt"
	"sync"
)

// Match pairs two teams. The first slot is always filled before the second.
type Match struct {
	mu     sync.RWMutex
	rules  *Rules
	first  *Team
	second *Team
}

// NewMatch returns an empty match governed by rules.
func NewMatch(rules *Rules) *Match {
	return &Match{rules: rules}
}

// First returns the team in the first slot, or nil.
func (m *Match) First() *Team {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.first
}

// Second returns the team in the second slot, or nil.
func (m *Match) Second() *Team {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.second
}

// IsWaiting reports whether the first slot is occupied.
func (m *Match) IsWaiting() bool {
	return m.First() != nil
}

// IsReady reports whether both slots are occupied.
func (m *Match) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.first != nil && m.second != nil
}

// SetFirst places t in the first slot.
func (m *Match) SetFirst(t *Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.first != nil {
		return fmt.Errorf("set first team: %w", ErrSlotTaken)
	}
	m.first = t
	return nil
}

// SetSecond places t in the second slot. It fails without mutating the match
// when the first slot is still empty.
func (m *Match) SetSecond(t *Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.first == nil {
		return fmt.Errorf("set second team: %w", ErrFirstSlotEmpty)
	}
	if m.second != nil {
		return fmt.Errorf("set second team: %w", ErrSlotTaken)
	}
	m.second = t
	return nil
}

// TeamTolerance returns the skill-sum gap the waiting team currently accepts.
func (m *Match) TeamTolerance() int {
	first := m.First()
	if first == nil {
		return m.rules.TeamTolerance
	}
	return m.rules.TeamTolerance + m.rules.Fairness.Bonus(first.PriorityLevel())
}

// IsBalancedWith reports whether candidate is close enough in total skill to
// the waiting team. An empty match is balanced with nothing.
func (m *Match) IsBalancedWith(candidate *Team) bool {
	first := m.First()
	if first == nil {
		return false
	}
	return abs(first.TotalSkill()-candidate.TotalSkill()) <= m.TeamTolerance()
}

// SkillDifference returns |first.TotalSkill - second.TotalSkill|.
func (m *Match) SkillDifference() (int, error) {
	m.mu.RLock()
	first, second := m.first, m.second
	m.mu.RUnlock()
	if first == nil || second == nil {
		return 0, ErrMatchIncomplete
	}
	return abs(first.TotalSkill() - second.TotalSkill()), nil
}
