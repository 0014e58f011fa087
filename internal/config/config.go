// Package config defines the coordinator configuration and its loader.
//
// Conventions:
// - Defaults live in New; Load layers file, dotenv and environment on top.
// - All functions that may block accept context.Context as the first parameter.
// - Loader failures are wrapped with this package's sentinel errors.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BackendBaseURL is the root of the preference backend API.
	BackendBaseURL string `koanf:"backend_base_url"`

	// TokenHeader names the header carrying the opaque session token.
	TokenHeader string `koanf:"token_header"`

	// RequestTimeoutMS bounds every backend call. Zero disables the client timeout.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// DefaultEventID is used when a client does not name an event. Zero means
	// "ask the backend for the active event".
	DefaultEventID int64 `koanf:"default_event_id"`

	// MessageTTLMS is how long a per-member success/error message stays visible.
	MessageTTLMS int `koanf:"message_ttl_ms"`

	// SessionIdleTTLMS evicts coordinator sessions idle for longer than this.
	SessionIdleTTLMS int `koanf:"session_idle_ttl_ms"`

	// RequireBlock rejects submissions without a block id.
	RequireBlock bool `koanf:"require_block"`

	// CapacityCacheTTLMS enables the Redis capacity cache when > 0 and RedisAddr is set.
	CapacityCacheTTLMS int `koanf:"capacity_cache_ttl_ms"`

	// Redis connection used by the capacity cache.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// AMQPURL enables publishing allocation outcomes when set.
	AMQPURL string `koanf:"amqp_url"`

	// AMQPQueue is the durable queue outcome events are published to.
	AMQPQueue string `koanf:"amqp_queue"`

	// OutcomeQueueSize bounds the in-memory buffer in front of the publisher.
	OutcomeQueueSize int `koanf:"outcome_queue_size"`

	// PublisherWorkers sets the number of goroutines draining the outcome queue.
	PublisherWorkers int `koanf:"publisher_workers"`

	// IdempotencyTTLMS is how long an Idempotency-Key is remembered on the
	// submit routes. Zero disables the check.
	IdempotencyTTLMS int `koanf:"idempotency_ttl_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		BackendBaseURL:     "http://localhost:8000/api",
		TokenHeader:        "Token",
		RequestTimeoutMS:   10_000,
		MessageTTLMS:       5_000,
		SessionIdleTTLMS:   30 * 60 * 1000,
		CapacityCacheTTLMS: 0,
		AMQPQueue:          "pass_preference.outcome",
		OutcomeQueueSize:   10_000,
		PublisherWorkers:   2,
		IdempotencyTTLMS:   10 * 60 * 1000,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// MessageTTL returns MessageTTLMS as a duration.
func (c *Config) MessageTTL() time.Duration {
	return time.Duration(c.MessageTTLMS) * time.Millisecond
}

// SessionIdleTTL returns SessionIdleTTLMS as a duration.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLMS) * time.Millisecond
}

// CapacityCacheTTL returns CapacityCacheTTLMS as a duration.
func (c *Config) CapacityCacheTTL() time.Duration {
	return time.Duration(c.CapacityCacheTTLMS) * time.Millisecond
}

// IdempotencyTTL returns IdempotencyTTLMS as a duration.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLMS) * time.Millisecond
}
