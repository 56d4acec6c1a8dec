package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

const prefetchCount = 8

var ErrBrokerUnavailable = errors.New("rabbitmq connection is closed")

func connectToRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	attempt := 0

	backoff := retry.WithMaxRetries(MaxConnectRetry-1, retry.NewConstant(RetryDelay))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		attempt++
		var err error
		conn, err = amqp.Dial(url)
		if err != nil {
			slog.Warn("failed to connect to rabbitmq", "attempt", attempt, "max_attempts", MaxConnectRetry, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("failed to connect to rabbitmq", "attempts", attempt, "error", err)
		return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", attempt, err)
	}

	slog.Info("connected to rabbitmq")
	return conn, nil
}

// openAuditChannel dials the broker and declares the durable audit queue on a
// fresh channel. A positive prefetch sets the consumer QoS.
func openAuditChannel(url string, prefetch int) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := connectToRabbitMQ(url)
	if err != nil {
		return nil, nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		slog.Error("failed to open rabbitmq channel", "error", err)
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if prefetch > 0 {
		if err := channel.Qos(prefetch, 0, false); err != nil {
			conn.Close()
			slog.Error("failed to set channel qos", "prefetch", prefetch, "error", err)
			return nil, nil, fmt.Errorf("failed to set channel qos: %w", err)
		}
	}

	if _, err := channel.QueueDeclare(AuditQueue, true, false, false, false, nil); err != nil {
		conn.Close()
		slog.Error("failed to declare rabbitmq queue", "queue", AuditQueue, "error", err)
		return nil, nil, fmt.Errorf("failed to declare rabbitmq queue %s: %w", AuditQueue, err)
	}

	return conn, channel, nil
}

// waitOrDone sleeps for d and reports false if done closes first.
func waitOrDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}

// RabbitMQPublisher publishes audit tasks as persistent messages. When the
// broker drops the channel it reconnects in the background; publishes made in
// the meantime fail fast with ErrBrokerUnavailable.
type RabbitMQPublisher struct {
	url string

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	done      chan struct{}
	closeOnce sync.Once
}

func NewRabbitMQPublisher(rabbitMQURL string) (*RabbitMQPublisher, error) {
	conn, channel, err := openAuditChannel(rabbitMQURL, 0)
	if err != nil {
		return nil, err
	}
	slog.Info("rabbitmq publisher ready", "queue", AuditQueue)

	p := &RabbitMQPublisher{url: rabbitMQURL, done: make(chan struct{})}
	p.attach(conn, channel)
	return p, nil
}

func (p *RabbitMQPublisher) attach(conn *amqp.Connection, channel *amqp.Channel) {
	p.conn, p.channel = conn, channel
	go p.watch(channel.NotifyClose(make(chan *amqp.Error, 1)))
}

func (p *RabbitMQPublisher) watch(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		slog.Info("rabbitmq publisher channel closed")
		return
	}
	slog.Warn("rabbitmq publisher channel lost, reconnecting", "error", amqpErr)

	p.mu.Lock()
	p.conn, p.channel = nil, nil
	p.mu.Unlock()

	for waitOrDone(p.done, RetryDelay) {
		conn, channel, err := openAuditChannel(p.url, 0)
		if err != nil {
			continue
		}

		p.mu.Lock()
		select {
		case <-p.done:
			conn.Close()
		default:
			p.attach(conn, channel)
			slog.Info("rabbitmq publisher reconnected")
		}
		p.mu.Unlock()
		return
	}
}

func (p *RabbitMQPublisher) PublishAuditTask(ctx context.Context, payload AuditTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit task: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.channel == nil || p.channel.IsClosed() {
		return ErrBrokerUnavailable
	}

	err = p.channel.PublishWithContext(ctx, "", AuditQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		slog.Error("failed to publish audit task", "task_id", payload.TaskId, "error", err)
		return fmt.Errorf("failed to publish audit task: %w", err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		close(p.done)
		if p.conn == nil {
			return
		}
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			slog.Error("error closing rabbitmq connection", "error", err)
		}
	})
}

type RabbitMQTask struct {
	d amqp.Delivery
}

func (t *RabbitMQTask) Type() string {
	return t.d.RoutingKey
}

func (t *RabbitMQTask) Payload() []byte {
	return t.d.Body
}

func (t *RabbitMQTask) Ack() error {
	return t.d.Ack(false)
}

// Nack drops the delivery. Audit rows are best effort and are never requeued.
func (t *RabbitMQTask) Nack() error {
	return t.d.Nack(false, false)
}

func (t *RabbitMQTask) Reject() error {
	return t.d.Reject(false)
}

// RabbitMQReceiver consumes the audit queue with manual acks. Close stops the
// consumer and closes Tasks; deliveries not yet acked go back to the queue.
type RabbitMQReceiver struct {
	url   string
	tasks chan Task

	done      chan struct{}
	closeOnce sync.Once
}

func NewRabbitMQReceiver(rabbitMQURL string) (*RabbitMQReceiver, error) {
	r := &RabbitMQReceiver{
		url:   rabbitMQURL,
		tasks: make(chan Task),
		done:  make(chan struct{}),
	}

	conn, deliveries, err := r.subscribe()
	if err != nil {
		return nil, err
	}
	go r.run(conn, deliveries)

	return r, nil
}

func (r *RabbitMQReceiver) subscribe() (*amqp.Connection, <-chan amqp.Delivery, error) {
	conn, channel, err := openAuditChannel(r.url, prefetchCount)
	if err != nil {
		return nil, nil, err
	}

	deliveries, err := channel.Consume(AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		conn.Close()
		slog.Error("failed to consume from rabbitmq queue", "queue", AuditQueue, "error", err)
		return nil, nil, fmt.Errorf("failed to consume from rabbitmq queue %s: %w", AuditQueue, err)
	}

	slog.Info("rabbitmq consumer subscribed", "queue", AuditQueue, "prefetch", prefetchCount)
	return conn, deliveries, nil
}

func (r *RabbitMQReceiver) run(conn *amqp.Connection, deliveries <-chan amqp.Delivery) {
	defer close(r.tasks)

	for {
		if !r.forward(deliveries) {
			slog.Info("stopping rabbitmq consumer")
			if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				slog.Error("error closing rabbitmq connection", "error", err)
			}
			return
		}

		slog.Warn("rabbitmq delivery stream ended, resubscribing", "queue", AuditQueue)
		_ = conn.Close()
		for {
			if !waitOrDone(r.done, RetryDelay) {
				return
			}
			var err error
			if conn, deliveries, err = r.subscribe(); err == nil {
				break
			}
		}
	}
}

// forward hands deliveries to Tasks. It returns false once the receiver is
// closed and true when the broker ends the delivery stream.
func (r *RabbitMQReceiver) forward(deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return true
			}
			select {
			case r.tasks <- &RabbitMQTask{d: d}:
			case <-r.done:
				return false
			}
		case <-r.done:
			return false
		}
	}
}

func (r *RabbitMQReceiver) Tasks() <-chan Task {
	return r.tasks
}

func (r *RabbitMQReceiver) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}
