package cache

import (
	"time"

	"github.com/dakheliyah/vms/pkg/logger"
)

// Option configures a CapacityCache.
type Option func(*CapacityCache)

// WithTTL sets how long a capacity snapshot stays cached. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *CapacityCache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *CapacityCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *CapacityCache) {
		if l != nil {
			c.logger = l
		}
	}
}
