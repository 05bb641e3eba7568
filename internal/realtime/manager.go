// Package realtime serves the game session over WebSocket.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the part of a WebSocket connection the manager needs.
type Conn interface {
	Close(code websocket.StatusCode, reason string) error
}

// ConnManager tracks the live connection of each game session.
// A session has at most one connection; a newer one replaces the old.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]Conn
}

// NewConnManager creates an empty connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{active: make(map[string]Conn)}
}

// Register records conn for key, closing any previous connection.
func (m *ConnManager) Register(key string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[key]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	m.active[key] = conn
	slog.Info("Play connection registered", "session", key)
}

// Unregister removes conn if it is still the current connection for key.
func (m *ConnManager) Unregister(key string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[key]; ok && current == conn {
		delete(m.active, key)
		slog.Info("Play connection unregistered", "session", key)
	}
}

// CloseSession closes and forgets the connection for key. It matches
// game.EvictCallback.
func (m *ConnManager) CloseSession(key string) {
	m.mu.Lock()
	conn, ok := m.active[key]
	delete(m.active, key)
	m.mu.Unlock()

	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusGoingAway, "session expired")
	slog.Info("Play connection closed", "session", key)
}

// Len returns the number of live connections.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}
