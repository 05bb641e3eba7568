// Package events publishes notifications about trivia content changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExchangeContentChanged is the fanout exchange content-change events are
// published to. Every instance binds its own queue to it.
const ExchangeContentChanged = "trivia.content"

// Entity kinds.
const (
	EntityCategory = "category"
	EntityQuestion = "question"
)

// Actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ContentChanged describes a mutation of categories or questions.
type ContentChanged struct {
	ID         uuid.UUID `json:"id"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	EntityID   int64     `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewContentChanged builds an event with a fresh ID.
func NewContentChanged(entity, action string, entityID int64) ContentChanged {
	return ContentChanged{
		ID:         uuid.New(),
		Entity:     entity,
		Action:     action,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode serializes the event as JSON.
func (e ContentChanged) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a JSON event body.
func Decode(body []byte) (ContentChanged, error) {
	var e ContentChanged
	if err := json.Unmarshal(body, &e); err != nil {
		return ContentChanged{}, fmt.Errorf("decode content event: %w", err)
	}
	if e.Entity == "" || e.Action == "" {
		return ContentChanged{}, fmt.Errorf("decode content event: missing entity or action")
	}
	return e, nil
}

// Publisher delivers content-change events.
type Publisher interface {
	Publish(ctx context.Context, e ContentChanged) error
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, ContentChanged) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
