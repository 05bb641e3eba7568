package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/hint-trivia/internal/game"
	"github.com/ashureev/hint-trivia/internal/identity"
	"github.com/go-chi/chi/v5"
)

// PlayHandler exposes the per-tab game session over plain HTTP.
type PlayHandler struct {
	sessions *game.Registry
}

// NewPlayHandler creates a play handler backed by the session registry.
func NewPlayHandler(sessions *game.Registry) *PlayHandler {
	return &PlayHandler{sessions: sessions}
}

// RegisterRoutes registers play routes.
func (h *PlayHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/play", func(r chi.Router) {
		r.Get("/", h.State)
		r.Post("/reload", h.simple(game.EventReload))
		r.Post("/category", h.SelectCategory)
		r.Post("/start", h.simple(game.EventStart))
		r.Post("/hint", h.simple(game.EventHint))
		r.Post("/return", h.simple(game.EventReturn))
		r.Post("/answer", h.Answer)
	})
}

// State returns the current session snapshot, loading content on first use.
func (h *PlayHandler) State(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, game.Event{Type: game.EventSync})
}

// SelectCategory chooses a category by id.
func (h *PlayHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID game.CategoryID `json:"categoryId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, game.Event{Type: game.EventSelectCategory, CategoryID: int64(req.CategoryID)})
}

// Answer submits an answer for the active question.
func (h *PlayHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, game.Event{Type: game.EventAnswer, Answer: req.Answer})
}

func (h *PlayHandler) simple(t game.EventType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.apply(w, r, game.Event{Type: t})
	}
}

// apply runs e against the caller's session and writes the resulting
// snapshot. Content load failures surface as a notice in the snapshot.
func (h *PlayHandler) apply(w http.ResponseWriter, r *http.Request, e game.Event) {
	playerID := identity.PlayerIDFromContext(r.Context())
	if playerID == "" {
		Error(w, http.StatusUnauthorized, "missing player identity")
		return
	}
	key := game.Key(playerID, identity.SessionIDFromContext(r.Context()))

	var snap game.Snapshot
	var err error
	h.sessions.Do(key, func(c *game.Controller) {
		err = c.Apply(r.Context(), e)
		snap = c.Snapshot()
	})

	if errors.Is(err, game.ErrUnknownEvent) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Warn("Failed to load game content", "error", err, "player_id", playerID, "event", e.Type)
	}
	JSON(w, http.StatusOK, snap)
}
