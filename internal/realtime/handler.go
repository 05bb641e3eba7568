package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ashureev/hint-trivia/internal/game"
	"github.com/ashureev/hint-trivia/internal/identity"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// clientMessage is a message from the browser.
type clientMessage struct {
	Type       string           `json:"type"`
	CategoryID *game.CategoryID `json:"categoryId,omitempty"`
	Answer     string           `json:"answer,omitempty"`
}

// serverMessage is a message to the browser.
type serverMessage struct {
	Type  string         `json:"type"`
	State *game.Snapshot `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}

var clientEvents = map[string]game.EventType{
	"sync":            game.EventSync,
	"reload":          game.EventReload,
	"select_category": game.EventSelectCategory,
	"start":           game.EventStart,
	"hint":            game.EventHint,
	"answer":          game.EventAnswer,
	"draft":           game.EventDraft,
	"return":          game.EventReturn,
}

// Handler upgrades /ws/play requests and relays game events.
type Handler struct {
	sessions       *game.Registry
	conns          *ConnManager
	allowedOrigins []string
	isDev          bool
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessions *game.Registry, conns *ConnManager, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{
		sessions:       sessions,
		conns:          conns,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := identity.PlayerIDFromContext(r.Context())
	if playerID == "" {
		http.Error(w, "missing player identity", http.StatusUnauthorized)
		return
	}
	key := game.Key(playerID, identity.SessionIDFromContext(r.Context()))
	slog.Info("WebSocket connection request", "session", key, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session", key)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session", key)
		}
	}()

	h.conns.Register(key, ws)
	defer h.conns.Unregister(key, ws)

	ctx := r.Context()
	if err := h.writeMessage(ctx, ws, h.apply(ctx, key, game.Event{Type: game.EventSync})); err != nil {
		slog.Debug("Failed to send initial state", "error", err, "session", key)
		return
	}
	h.readLoop(ctx, ws, key)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, key string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "session", key)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session", key)
			}
			return
		}

		if err := h.writeMessage(ctx, ws, h.handle(ctx, key, data)); err != nil {
			slog.Debug("WebSocket write error", "error", err, "session", key)
			return
		}
	}
}

// handle turns one client message into the reply to send.
func (h *Handler) handle(ctx context.Context, key string, data []byte) serverMessage {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return serverMessage{Type: "error", Error: "malformed message"}
	}
	if msg.Type == "ping" {
		return serverMessage{Type: "pong"}
	}

	eventType, ok := clientEvents[msg.Type]
	if !ok {
		return serverMessage{Type: "error", Error: "unknown message type"}
	}
	e := game.Event{Type: eventType, Answer: msg.Answer}
	if eventType == game.EventSelectCategory {
		if msg.CategoryID == nil {
			return serverMessage{Type: "error", Error: game.ErrInvalidCategoryID.Error()}
		}
		e.CategoryID = int64(*msg.CategoryID)
	}
	return h.apply(ctx, key, e)
}

func (h *Handler) apply(ctx context.Context, key string, e game.Event) serverMessage {
	var snap game.Snapshot
	var err error
	h.sessions.Do(key, func(c *game.Controller) {
		err = c.Apply(ctx, e)
		snap = c.Snapshot()
	})
	if err != nil {
		slog.Warn("Failed to load game content", "error", err, "session", key, "event", e.Type)
	}
	return serverMessage{Type: "state", State: &snap}
}

func (h *Handler) writeMessage(ctx context.Context, ws *websocket.Conn, msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
