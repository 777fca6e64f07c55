// Package config defines the matchmaker configuration and how it is loaded.
//
// Conventions:
// - New(ctx) returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchmaker/internal/domain/rebalance"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr is the listen address of the /metrics endpoint. Empty
	// disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// QueueCapacity bounds the entrant queue.
	QueueCapacity int `koanf:"queue_capacity"`
	// DedupeSize bounds how many waiting entrant ids are remembered. Past it
	// the oldest ids are evicted and their duplicates are no longer caught.
	DedupeSize int `koanf:"dedupe_size"`

	TeamSize     int `koanf:"team_size"`
	MinGroupSize int `koanf:"min_group_size"`

	PlayerSkillTolerance int `koanf:"player_skill_tolerance"`
	TeamSkillTolerance   int `koanf:"team_skill_tolerance"`
	PerLevelTolerance    int `koanf:"per_level_tolerance"`
	MaxPriorityLevel     int `koanf:"max_priority_level"`
	PriorityLevelSeconds int `koanf:"priority_level_seconds"`
	EscalationPeriodMS   int `koanf:"escalation_period_ms"`

	// Simulate starts the synthetic entrant producer.
	Simulate               bool `koanf:"simulate"`
	SimProducers           int  `koanf:"sim_producers"`
	SimEntrantsPerProducer int  `koanf:"sim_entrants_per_producer"`
	SimGroupChance         int  `koanf:"sim_group_chance"`
	SimMinSkill            int  `koanf:"sim_min_skill"`
	SimMaxSkill            int  `koanf:"sim_max_skill"`
	SimIntervalMS          int  `koanf:"sim_interval_ms"`
}

// New creates a Config with defaults. The context is reserved for loaders
// that need it and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		MetricsAddr:            ":9090",
		QueueCapacity:          100_000,
		DedupeSize:             500_000,
		TeamSize:               6,
		MinGroupSize:           2,
		PlayerSkillTolerance:   200,
		TeamSkillTolerance:     100,
		PerLevelTolerance:      25,
		MaxPriorityLevel:       4,
		PriorityLevelSeconds:   5,
		EscalationPeriodMS:     1000,
		Simulate:               true,
		SimProducers:           4,
		SimEntrantsPerProducer: 250,
		SimGroupChance:         25,
		SimMinSkill:            1,
		SimMaxSkill:            1000,
		SimIntervalMS:          250,
	}
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.TeamSize >= 1 && c.TeamSize <= rebalance.MaxTeamSize, fmt.Sprintf("team_size must be between 1 and %d", rebalance.MaxTeamSize)},
		{c.MinGroupSize >= 1 && c.MinGroupSize <= c.TeamSize, "min_group_size must be between 1 and team_size"},
		{c.PlayerSkillTolerance >= 0, "player_skill_tolerance must not be negative"},
		{c.TeamSkillTolerance >= 0, "team_skill_tolerance must not be negative"},
		{c.PerLevelTolerance >= 0, "per_level_tolerance must not be negative"},
		{c.MaxPriorityLevel >= 0, "max_priority_level must not be negative"},
		{c.PriorityLevelSeconds > 0, "priority_level_seconds must be positive"},
		{c.EscalationPeriodMS > 0, "escalation_period_ms must be positive"},
		{c.QueueCapacity > 0, "queue_capacity must be positive"},
		{c.DedupeSize > 0, "dedupe_size must be positive"},
		{c.SimMinSkill <= c.SimMaxSkill, "sim_min_skill must not exceed sim_max_skill"},
		{c.SimGroupChance >= 0 && c.SimGroupChance <= 100, "sim_group_chance must be between 0 and 100"},
		{c.SimProducers >= 0 && c.SimEntrantsPerProducer >= 0 && c.SimIntervalMS >= 0, "sim counts and interval must not be negative"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, chk.msg)
		}
	}
	return nil
}

// PriorityInterval is the wait needed to gain one priority level.
func (c *Config) PriorityInterval() time.Duration {
	return time.Duration(c.PriorityLevelSeconds) * time.Second
}

// EscalationPeriod is the escalator tick period.
func (c *Config) EscalationPeriod() time.Duration {
	return time.Duration(c.EscalationPeriodMS) * time.Millisecond
}

// SimInterval is the pause between two units of one simulated producer.
func (c *Config) SimInterval() time.Duration {
	return time.Duration(c.SimIntervalMS) * time.Millisecond
}
