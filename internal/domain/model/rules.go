package model

import "github.com/okian/matchmaker/internal/domain/fairness"

// Rules holds the fixed admission parameters shared by every team and match.
type Rules struct {
	// Capacity is the number of entrants on a full team.
	Capacity int
	// PlayerTolerance is the base allowed skill gap to a team's anchor.
	PlayerTolerance int
	// TeamTolerance is the base allowed skill-sum gap between two teams.
	TeamTolerance int
	// Fairness widens both tolerances with the team's priority level.
	Fairness fairness.Policy
}
