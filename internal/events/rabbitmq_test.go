package events

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	rec *ackRecord
}

func (a fakeAcknowledger) Ack(uint64, bool) error {
	a.rec.acked = true
	return nil
}

func (a fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.rec.nacked = true
	a.rec.requeue = requeue
	return nil
}

func (a fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

type binding struct {
	queue, exchange string
}

type fakeChannel struct {
	exchange     string
	exchangeKind string
	queueOpts    [3]bool // durable, autoDelete, exclusive
	bindings     []binding
	consumed     string
	published    []struct {
		exchange string
		msg      amqp.Publishing
	}
	deliveries chan amqp.Delivery
	declareErr error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.exchange, c.exchangeKind = name, kind
	return c.declareErr
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.queueOpts = [3]bool{durable, autoDelete, exclusive}
	if name == "" {
		name = "amq.gen-instance"
	}
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, _, exchange string, _ bool, _ amqp.Table) error {
	c.bindings = append(c.bindings, binding{queue: name, exchange: exchange})
	return nil
}

func (c *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	c.consumed = queue
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	c.published = append(c.published, struct {
		exchange string
		msg      amqp.Publishing
	}{exchange, msg})
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func newTestRabbitMQ(t *testing.T) (*RabbitMQ, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 4)}
	r, err := newRabbitMQ(ch)
	if err != nil {
		t.Fatalf("newRabbitMQ failed: %v", err)
	}
	return r, ch
}

func delivery(t *testing.T, rec *ackRecord, appID string, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: fakeAcknowledger{rec: rec}, AppId: appID, Body: body}
}

func encoded(t *testing.T, e ContentChanged) []byte {
	t.Helper()
	body, err := e.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return body
}

func TestNewRabbitMQDeclaresFanoutExchange(t *testing.T) {
	_, ch := newTestRabbitMQ(t)
	if ch.exchange != ExchangeContentChanged || ch.exchangeKind != amqp.ExchangeFanout {
		t.Errorf("expected fanout exchange %q, got %q (%s)", ExchangeContentChanged, ch.exchange, ch.exchangeKind)
	}
}

func TestNewRabbitMQDeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newRabbitMQ(ch); err == nil {
		t.Fatal("expected declare error")
	}
}

func TestPublishTargetsExchangeWithInstanceTag(t *testing.T) {
	r, ch := newTestRabbitMQ(t)
	e := NewContentChanged(EntityCategory, ActionUpdated, 3)
	if err := r.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != ExchangeContentChanged {
		t.Errorf("expected exchange %q, got %q", ExchangeContentChanged, got.exchange)
	}
	if got.msg.AppId != r.instance || got.msg.MessageId != e.ID.String() {
		t.Errorf("unexpected publishing metadata: app=%q id=%q", got.msg.AppId, got.msg.MessageId)
	}
}

func TestConsumeBindsPrivateQueueAndDelivers(t *testing.T) {
	r, ch := newTestRabbitMQ(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ContentChanged, 1)
	done := make(chan error, 1)
	go func() {
		done <- r.Consume(ctx, func(_ context.Context, e ContentChanged) error {
			received <- e
			return nil
		})
	}()

	rec := &ackRecord{}
	ch.deliveries <- delivery(t, rec, "other-instance", encoded(t, NewContentChanged(EntityQuestion, ActionDeleted, 9)))

	select {
	case e := <-received:
		if e.EntityID != 9 {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Consume returned %v", err)
	}

	durable, autoDelete, exclusive := ch.queueOpts[0], ch.queueOpts[1], ch.queueOpts[2]
	if durable || !autoDelete || !exclusive {
		t.Errorf("instance queue must be exclusive and auto-deleted, got %v", ch.queueOpts)
	}
	if len(ch.bindings) != 1 || ch.bindings[0] != (binding{queue: "amq.gen-instance", exchange: ExchangeContentChanged}) {
		t.Errorf("unexpected bindings: %+v", ch.bindings)
	}
	if ch.consumed != "amq.gen-instance" {
		t.Errorf("expected to consume the bound queue, got %q", ch.consumed)
	}
}

func TestConsumeClosedDeliveries(t *testing.T) {
	r, ch := newTestRabbitMQ(t)
	close(ch.deliveries)
	if err := r.Consume(context.Background(), func(context.Context, ContentChanged) error { return nil }); err == nil {
		t.Fatal("expected error when the delivery channel closes")
	}
}

func TestHandleOutcomes(t *testing.T) {
	r, _ := newTestRabbitMQ(t)
	valid := encoded(t, NewContentChanged(EntityCategory, ActionCreated, 1))

	tests := []struct {
		name       string
		appID      string
		body       []byte
		handlerErr error
		want       ackRecord
		wantCalled bool
	}{
		{name: "success acks", appID: "other", body: valid, want: ackRecord{acked: true}, wantCalled: true},
		{name: "malformed is dropped", appID: "other", body: []byte("not json"), want: ackRecord{nacked: true}},
		{name: "handler error requeues", appID: "other", body: valid, handlerErr: errors.New("cache down"), want: ackRecord{nacked: true, requeue: true}, wantCalled: true},
		{name: "own event is skipped", appID: r.instance, body: valid, want: ackRecord{acked: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &ackRecord{}
			called := false
			r.handle(context.Background(), delivery(t, rec, tt.appID, tt.body), func(context.Context, ContentChanged) error {
				called = true
				return tt.handlerErr
			})
			if *rec != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *rec)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}
