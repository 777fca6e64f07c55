// Package simulation produces a synthetic stream of entrants for local runs
// and load checks.
package simulation

import "time"

// Config controls the shape and pace of the generated stream.
type Config struct {
	Producers           int
	EntrantsPerProducer int
	// GroupChance is the percentage of units that are groups.
	GroupChance  int
	MinGroupSize int
	MaxGroupSize int
	MinSkill     int
	MaxSkill     int
	// GroupSpread bounds how far a group member's skill lies from the group
	// average.
	GroupSpread int
	Interval    time.Duration
	Seed        uint64
}

// DefaultConfig returns four producers of 250 units every 250ms.
func DefaultConfig() Config {
	return Config{
		Producers:           4,
		EntrantsPerProducer: 250,
		GroupChance:         25,
		MinGroupSize:        2,
		MaxGroupSize:        6,
		MinSkill:            1,
		MaxSkill:            1000,
		GroupSpread:         200,
		Interval:            250 * time.Millisecond,
	}
}
