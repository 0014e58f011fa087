package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dakheliyah/vms/pkg/logger"
)

// DefaultOutcomeQueue is the broker queue outcomes are published to.
const DefaultOutcomeQueue = "pass_preference.outcome"

// Publisher delivers one outcome downstream.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every outcome. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// AMQPPublisher publishes outcomes as persistent JSON messages to a durable
// RabbitMQ queue through the default exchange. The connection is opened
// lazily and reopened after a failed publish.
type AMQPPublisher struct {
	url    string
	queue  string
	logger logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher creates a publisher for url. queueName defaults to
// DefaultOutcomeQueue.
func NewAMQPPublisher(url, queueName string, log logger.Logger) *AMQPPublisher {
	if queueName == "" {
		queueName = DefaultOutcomeQueue
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AMQPPublisher{url: url, queue: queueName, logger: log}
}

// Connect dials the broker and declares the queue.
func (p *AMQPPublisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *AMQPPublisher) connectLocked() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish sends e to the outcome queue.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: value semantics through the channel
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal outcome %s: %w", e.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    time.Now().UTC(),
		Type:         "pass_preference.outcome",
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("publish outcome %s: %w", e.ID, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
