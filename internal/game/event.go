package game

import (
	"context"
	"errors"
	"fmt"
)

// EventType names a player action.
type EventType string

const (
	EventSync           EventType = "sync"
	EventReload         EventType = "reload"
	EventSelectCategory EventType = "select_category"
	EventStart          EventType = "start"
	EventHint           EventType = "hint"
	EventAnswer         EventType = "answer"
	EventDraft          EventType = "draft"
	EventReturn         EventType = "return"
)

// ErrUnknownEvent is returned by Apply for unsupported event types.
var ErrUnknownEvent = errors.New("unknown event")

// Event is a player action delivered by a transport.
type Event struct {
	Type       EventType `json:"type"`
	CategoryID int64     `json:"categoryId,omitempty"`
	Answer     string    `json:"answer,omitempty"`
}

// Apply dispatches e to the controller. Content is loaded on first use.
// A load failure is reported in the session notice and also returned so the
// caller can log it.
func (c *Controller) Apply(ctx context.Context, e Event) error {
	if e.Type == EventReload {
		return c.LoadCategories(ctx)
	}

	if err := c.EnsureLoaded(ctx); err != nil {
		return err
	}

	switch e.Type {
	case EventSync:
	case EventSelectCategory:
		c.SelectCategory(e.CategoryID)
	case EventStart:
		c.StartGame()
	case EventHint:
		c.RevealNextHint()
	case EventAnswer:
		c.SubmitAnswer(e.Answer)
	case EventDraft:
		c.SetDraft(e.Answer)
	case EventReturn:
		c.ReturnToCategorySelection()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	return nil
}
