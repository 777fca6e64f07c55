package service

import (
	"time"

	"github.com/okian/matchmaker/internal/domain/matchmaking"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRules sets team capacity, tolerances and the fairness policy.
func WithRules(rules model.Rules) Option {
	return func(s *Service) {
		if rules.Capacity > 0 {
			s.rules = rules
		}
	}
}

// WithMinGroupSize sets the smallest group unit Enqueue accepts.
func WithMinGroupSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minGroupSize = n
		}
	}
}

// WithQueueSize sets the maximum size of the entrant queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many waiting entrant ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithEscalationPeriod sets how often priority levels are recomputed.
func WithEscalationPeriod(period time.Duration) Option {
	return func(s *Service) {
		if period > 0 {
			s.escalationPeriod = period
		}
	}
}

// WithAnnouncer sets the receiver of finalized matches.
func WithAnnouncer(a matchmaking.Announcer) Option {
	return func(s *Service) {
		if a != nil {
			s.announcer = a
		}
	}
}

// WithClock sets the time source for enqueue times and waits.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
