package model

import "sync"

// Team is a capacity-bounded, insertion-ordered set of entrants. The first
// admitted entrant is the anchor that later admissions are compared against.
//
// Team is safe for concurrent use: the intake path admits entrants while the
// escalator raises the priority level.
type Team struct {
	mu      sync.RWMutex
	rules   *Rules
	members []Entrant
	level   int
}

// NewTeam returns an empty team governed by rules.
func NewTeam(rules *Rules) *Team {
	return &Team{
		rules:   rules,
		members: make([]Entrant, 0, rules.Capacity),
	}
}

// Size returns the number of members.
func (t *Team) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

// IsFull reports whether the team reached capacity.
func (t *Team) IsFull() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members) == t.rules.Capacity
}

// IsEmpty reports whether the team has no members.
func (t *Team) IsEmpty() bool {
	return t.Size() == 0
}

// Members returns a copy of the member list in insertion order.
func (t *Team) Members() []Entrant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entrant, len(t.members))
	copy(out, t.members)
	return out
}

// Anchor returns the first admitted member, which is also the oldest one.
func (t *Team) Anchor() (Entrant, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.members) == 0 {
		return Entrant{}, false
	}
	return t.members[0], true
}

// PriorityLevel returns the current fairness level.
func (t *Team) PriorityLevel() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.level
}

// RaisePriority sets the level to level if it is higher than the current one
// and not past the policy cap. It returns the previous level and whether the
// level changed.
func (t *Team) RaisePriority(level int) (previous int, raised bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	previous = t.level
	if level <= t.level || level > t.rules.Fairness.MaxLevel() {
		return previous, false
	}
	t.level = level
	return previous, true
}

// PlayerTolerance returns the skill gap currently allowed against the anchor.
func (t *Team) PlayerTolerance() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.playerToleranceLocked()
}

func (t *Team) playerToleranceLocked() int {
	return t.rules.PlayerTolerance + t.rules.Fairness.Bonus(t.level)
}

// skillEligibleLocked compares e with the anchor. Callers hold t.mu and
// guarantee the team is not empty.
func (t *Team) skillEligibleLocked(e Entrant) bool {
	return abs(t.members[0].Skill-e.Skill) <= t.playerToleranceLocked()
}

// IsPlayerEligible reports whether e may join: any entrant may join an empty
// team, otherwise the team must have room and e must be within tolerance of
// the anchor.
func (t *Team) IsPlayerEligible(e Entrant) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.members) == 0 {
		return true
	}
	return len(t.members) < t.rules.Capacity && t.skillEligibleLocked(e)
}

// IsGroupEligible reports whether group may join. A non-empty team needs
// room for the whole group and at least one member of the group within
// tolerance of the anchor.
func (t *Team) IsGroupEligible(group []Entrant) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.members) == 0 {
		return true
	}
	if len(t.members)+len(group) > t.rules.Capacity {
		return false
	}
	for _, e := range group {
		if t.skillEligibleLocked(e) {
			return true
		}
	}
	return false
}

// AddEntrant appends e. It refuses silently, returning false, when full.
func (t *Team) AddEntrant(e Entrant) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.members) >= t.rules.Capacity {
		return false
	}
	t.members = append(t.members, e)
	return true
}

// AddGroup appends every member of group or none of them.
func (t *Team) AddGroup(group []Entrant) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.members)+len(group) > t.rules.Capacity {
		return false
	}
	t.members = append(t.members, group...)
	return true
}

// TotalSkill returns the sum of member skills.
func (t *Team) TotalSkill() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return SkillSum(t.members)
}

// ReplaceMembers swaps the member list wholesale. Only the rebalancer calls
// it, on teams that already left the pools.
func (t *Team) ReplaceMembers(members []Entrant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.members = append(make([]Entrant, 0, len(members)), members...)
}

// GroupIDs returns the group id of each member in order, NoGroup included.
func (t *Team) GroupIDs() []GroupID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]GroupID, len(t.members))
	for i, e := range t.members {
		ids[i] = e.Group
	}
	return ids
}
