// Package service wires the allocation coordinator together and implements
// the dependencies required by the HTTP API.
//
// A Session holds the roster and capacity snapshot, pending selections and
// per-member tracker of one credential for one event. Sessions are created on
// first use and evicted once idle.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/dakheliyah/vms/internal/adapters/cache"
	eventqueue "github.com/dakheliyah/vms/internal/adapters/mq/queue"
	workerpool "github.com/dakheliyah/vms/internal/adapters/mq/worker"
	"github.com/dakheliyah/vms/internal/domain/allocation"
	"github.com/dakheliyah/vms/internal/domain/constraint"
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/internal/domain/tracker"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize    = 10_000
	defaultWorkerCount  = 2
	defaultIdleTTL      = 30 * time.Minute
	defaultCleanupEvery = time.Minute
)

// Backend is the preference backend the service talks to.
type Backend interface {
	allocation.Writer
	FetchCapacity(ctx context.Context, cred model.Credential, eventID int64) ([]model.Venue, error)
	FetchRoster(ctx context.Context, cred model.Credential, eventID int64) ([]model.Member, error)
	ActiveEvent(ctx context.Context, cred model.Credential) (model.Event, error)
}

type sessionKey struct {
	token   string
	eventID int64
}

// Service implements the API dependencies for the allocation coordinator.
type Service struct {
	mu sync.RWMutex

	// Core components
	backend   Backend
	admin     Admin
	capacity  *cache.CapacityCache
	evaluator *constraint.Evaluator
	outcomes  eventqueue.Queue
	publisher workerpool.Publisher
	pool      *workerpool.Pool
	sessions  map[sessionKey]*Session

	// Configuration
	queueSize      int
	workerCount    int
	messageTTL     time.Duration
	idleTTL        time.Duration
	cleanupEvery   time.Duration
	requireBlock   bool
	defaultEventID int64

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service over backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:      backend,
		evaluator:    constraint.New(),
		publisher:    workerpool.NopPublisher{},
		sessions:     make(map[sessionKey]*Session),
		queueSize:    defaultQueueSize,
		workerCount:  defaultWorkerCount,
		messageTTL:   tracker.DefaultMessageTTL,
		idleTTL:      defaultIdleTTL,
		cleanupEvery: defaultCleanupEvery,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.capacity == nil {
		s.capacity = cache.NewCapacityCache(backend, nil)
	}
	return s
}

// Start creates the outcome queue and its publisher pool and starts the
// session cleanup loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting allocation service...")

	s.outcomes = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.outcomes, s.publisher, s.logger.Named("publisher"))
	s.pool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.cleanupLoop(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "allocation service started",
		logger.Int("publisherWorkers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("capacityCache", s.capacity.Enabled()),
		logger.Duration("messageTTL", s.messageTTL),
		logger.Duration("sessionIdleTTL", s.idleTTL),
	)
	return nil
}

// Stop closes every session, drains the outcome queue and shuts the
// publisher down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info(ctx, "stopping allocation service...")

	close(s.stopCh)
	for key, sess := range s.sessions {
		sess.close()
		delete(s.sessions, key)
	}
	metrics.UpdateActiveSessions(0)
	pool := s.pool
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	err := pool.Shutdown(ctx)

	s.logger.Info(ctx, "allocation service stopped")
	return err
}

// Session returns the session of cred for eventID, creating it on first use.
func (s *Service) Session(ctx context.Context, cred model.Credential, eventID int64) (*Session, error) {
	if cred.Empty() {
		return nil, ErrNoCredential
	}
	if eventID <= 0 {
		return nil, ErrInvalidEvent
	}

	key := sessionKey{token: cred.Token(), eventID: eventID}

	s.mu.RLock()
	sess, ok := s.sessions[key]
	started := s.started
	s.mu.RUnlock()
	if ok {
		sess.touch()
		return sess, nil
	}
	if !started {
		return nil, ErrNotStarted
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if sess, ok := s.sessions[key]; ok {
		sess.touch()
		return sess, nil
	}

	sess = newSession(s, cred, eventID)
	s.sessions[key] = sess
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session opened", logger.Int64("event_id", eventID))
	return sess, nil
}

// ActiveEvent returns the configured default event, or else the event the
// backend marks active.
func (s *Service) ActiveEvent(ctx context.Context, cred model.Credential) (model.Event, error) {
	if s.defaultEventID > 0 {
		return model.Event{ID: s.defaultEventID, Status: "active"}, nil
	}
	if cred.Empty() {
		return model.Event{}, ErrNoCredential
	}
	return s.backend.ActiveEvent(ctx, cred)
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"sessions":         len(s.sessions),
		"publisherWorkers": s.workerCount,
		"queueSize":        s.queueSize,
		"capacityCache":    s.capacity.Enabled(),
		"requireBlock":     s.requireBlock,
	}

	if s.started {
		queueLen := s.outcomes.Len()
		stats["queueLength"] = queueLen
		stats["published"] = s.pool.Processed()

		busy := 0
		for _, sess := range s.sessions {
			busy += len(sess.tracker.Busy())
		}
		stats["busyMembers"] = busy

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateActiveSessions(len(s.sessions))
	}

	return stats
}

func (s *Service) cleanupLoop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

// evictIdle closes sessions idle for longer than the idle TTL. Sessions
// with a submission in flight are kept.
func (s *Service) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, sess := range s.sessions {
		if now.Sub(sess.lastUsed()) < s.idleTTL || len(sess.tracker.Busy()) > 0 {
			continue
		}
		sess.close()
		delete(s.sessions, key)
		evicted++
	}

	if evicted > 0 {
		s.logger.Debug(context.Background(), "idle sessions evicted",
			logger.Int("count", evicted),
			logger.Int("remaining", len(s.sessions)))
	}
	metrics.UpdateActiveSessions(len(s.sessions))
	return evicted
}
