package service

import (
	"time"

	"github.com/dakheliyah/vms/internal/adapters/cache"
	"github.com/dakheliyah/vms/internal/adapters/mq/worker"
	"github.com/dakheliyah/vms/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCapacityCache routes capacity reads through c.
func WithCapacityCache(c *cache.CapacityCache) Option {
	return func(s *Service) {
		if c != nil {
			s.capacity = c
		}
	}
}

// WithAdmin enables the operator lock and assignment calls.
func WithAdmin(a Admin) Option {
	return func(s *Service) {
		if a != nil {
			s.admin = a
		}
	}
}

// WithPublisher sets where allocation outcomes are published.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithQueueSize sets the capacity of the outcome queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPublisherWorkers sets the number of goroutines draining the outcome queue.
func WithPublisherWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithMessageTTL sets how long per-member messages stay visible.
func WithMessageTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.messageTTL = ttl
		}
	}
}

// WithSessionIdleTTL evicts sessions unused for longer than ttl.
func WithSessionIdleTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithCleanupInterval sets how often idle sessions are looked for.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cleanupEvery = d
		}
	}
}

// WithRequireBlock rejects submissions that name no block for venues that have blocks.
func WithRequireBlock(require bool) Option {
	return func(s *Service) {
		s.requireBlock = require
	}
}

// WithDefaultEventID pins the event used when a client does not name one.
func WithDefaultEventID(id int64) Option {
	return func(s *Service) {
		if id > 0 {
			s.defaultEventID = id
		}
	}
}
