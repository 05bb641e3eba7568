package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes a consumed event. A returned error requeues the delivery.
type Handler func(ctx context.Context, e ContentChanged) error

// channel is the subset of *amqp.Channel used here.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes and consumes content events over AMQP. Events go to a
// fanout exchange so that every running instance receives each one.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	// instance tags published messages so an instance skips its own events.
	instance string

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// NewRabbitMQ dials the broker and declares the content exchange.
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r, err := newRabbitMQ(ch)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

func newRabbitMQ(ch channel) (*RabbitMQ, error) {
	r := &RabbitMQ{
		channel:  ch,
		exchange: ExchangeContentChanged,
		instance: uuid.NewString(),
	}
	err := ch.ExchangeDeclare(
		r.exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return r, nil
}

// Publish sends the event to the content exchange.
func (r *RabbitMQ) Publish(ctx context.Context, e ContentChanged) error {
	body, err := e.Encode()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		"",    // routing key, ignored by fanout
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			AppId:       r.instance,
			MessageId:   e.ID.String(),
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish content event: %w", err)
	}
	return nil
}

// Consume binds a private queue to the content exchange and delivers events
// from other instances to handler until ctx is cancelled or the delivery
// channel closes. Malformed messages are dropped.
func (r *RabbitMQ) Consume(ctx context.Context, handler Handler) error {
	q, err := r.channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare instance queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", q.Name, r.exchange, err)
	}

	deliveries, err := r.channel.Consume(
		q.Name,
		"",    // consumer
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			r.handle(ctx, d, handler)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	if d.AppId == r.instance {
		_ = d.Ack(false)
		return
	}
	e, err := Decode(d.Body)
	if err != nil {
		slog.Warn("Dropping malformed content event", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, e); err != nil {
		slog.Warn("Content event handler failed", "event_id", e.ID, "error", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
