package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// EvictCallback is called after an idle session has been dropped.
type EvictCallback func(key string)

type entry struct {
	mu       sync.Mutex
	ctrl     *Controller
	lastSeen time.Time
}

// Registry holds one Controller per player session.
// Events for the same key run one at a time; distinct keys never share state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  func() *Controller
	idleTTL  time.Duration
	onEvict  EvictCallback
	now      func() time.Time
}

// NewRegistry creates a registry that builds controllers with factory.
func NewRegistry(factory func() *Controller, idleTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Key builds the registry key for a player tab.
func Key(playerID, sessionID string) string {
	return playerID + ":" + sessionID
}

// OnEvict registers a callback for swept sessions.
func (r *Registry) OnEvict(fn EvictCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Do runs fn against the controller for key, creating it if needed.
func (r *Registry) Do(key string, fn func(*Controller)) {
	r.mu.Lock()
	e, ok := r.sessions[key]
	if !ok {
		e = &entry{ctrl: r.factory()}
		r.sessions[key] = e
	}
	e.lastSeen = r.now()
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.ctrl)
}

// Drop discards the session for key.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartSweeper periodically evicts sessions idle for longer than the TTL.
func (r *Registry) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "idle_ttl", r.idleTTL)

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep evicts idle sessions once and returns how many were removed.
func (r *Registry) Sweep() int {
	threshold := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var expired []string
	for key, e := range r.sessions {
		if e.lastSeen.Before(threshold) {
			expired = append(expired, key)
			delete(r.sessions, key)
		}
	}
	onEvict := r.onEvict
	r.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}

	for _, key := range expired {
		if onEvict != nil {
			onEvict(key)
		}
	}
	slog.Info("Idle game sessions evicted", "count", len(expired))
	return len(expired)
}
