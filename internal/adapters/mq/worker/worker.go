// Package worker drains the outcome queue and publishes each outcome.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dakheliyah/vms/internal/adapters/mq/queue"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	publishTimeout      = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker publishes queued outcomes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker struct {
	queue     Queue
	publisher Publisher
	name      string

	processed *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		publisher: publisher,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "error publishing outcome", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for its loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: value semantics through the channel
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := w.publisher.Publish(pubCtx, e); err != nil {
		metrics.RecordPublishError()
		metrics.RecordErrorByComponent("publisher", "publish_failed")
		return fmt.Errorf("outcome %s for member %d: %w", e.ID, e.MemberID, err)
	}
	metrics.RecordPublished()
	w.processed.Add(1)
	return nil
}

// Pool runs several workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	publisher Publisher
	processed atomic.Int64
	started   atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses the default.
func NewPool(workerCount int, queue Queue, publisher Publisher, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	if log == nil {
		log = logger.Nop()
	}

	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     queue,
		publisher: publisher,
		logger:    log,
	}
	for i := range p.workers {
		name := "publisher-" + strconv.Itoa(i)
		w := NewInMemoryWorker(queue, publisher, WithName(name), WithLogger(log.Named(name)))
		w.processed = &p.processed
		p.workers[i] = w
	}

	metrics.UpdatePublisherWorkers(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdatePublisherWorkers(len(p.workers))
}

// Processed returns how many outcomes the pool has published.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue, lets the workers drain it and closes the
// publisher.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return p.publisher.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(shutdownCtx)
		}
	}
	metrics.UpdatePublisherWorkers(0)

	return p.publisher.Close()
}
