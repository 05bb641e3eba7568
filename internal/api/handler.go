// Package api provides HTTP handlers for the trivia API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/hint-trivia/internal/content"
	"github.com/ashureev/hint-trivia/internal/domain"
	"github.com/ashureev/hint-trivia/internal/store"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ContentService is the content layer used by the handlers.
type ContentService interface {
	GameContent(ctx context.Context) ([]domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	UpdateCategory(ctx context.Context, id int64, patch store.CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (*domain.Question, error)
	CreateQuestion(ctx context.Context, q *domain.Question) error
	UpdateQuestion(ctx context.Context, id int64, patch store.QuestionPatch) (*domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*domain.Statistics, error)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// serviceError maps content errors to responses. Unexpected errors are
// logged and reported with the generic message.
func serviceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, content.ErrInvalid):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(message, "error", err)
		Error(w, http.StatusInternalServerError, message)
	}
}
