//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/hint-trivia/internal/cache"
	"github.com/ashureev/hint-trivia/internal/content"
	"github.com/ashureev/hint-trivia/internal/domain"
	"github.com/ashureev/hint-trivia/internal/events"
	"github.com/ashureev/hint-trivia/internal/store"
	"github.com/go-chi/chi/v5"
)

func newContentService(t *testing.T) *content.Service {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "trivia.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return content.NewService(repo, cache.NewMemory(), events.Nop{}, time.Minute)
}

func newContentRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewContentHandler(newContentService(t)).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func TestContentCRUDFlow(t *testing.T) {
	h := newContentRouter(t)

	rr := do(t, h, http.MethodPost, "/api/categories", `{"name":"Capitals","description":"World capitals"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	cat := decode[domain.Category](t, rr)
	if cat.ID == 0 || !cat.IsVisible {
		t.Fatalf("unexpected category: %+v", cat)
	}

	// categoryId as a string, as older admin clients send it.
	rr = do(t, h, http.MethodPost, "/api/questions", `{"answer":"Paris","categoryId":"1","hints":["Eiffel Tower","France"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create question: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	q := decode[domain.Question](t, rr)
	if q.CategoryID != cat.ID || len(q.Hints) != 2 {
		t.Fatalf("unexpected question: %+v", q)
	}

	rr = do(t, h, http.MethodGet, "/api/game", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("game: expected 200, got %d", rr.Code)
	}
	tree := decode[[]domain.Category](t, rr)
	if len(tree) != 1 || len(tree[0].Questions) != 1 || tree[0].Questions[0].Hints[1].Content != "France" {
		t.Fatalf("unexpected game tree: %+v", tree)
	}

	// Toggling visibility alone must keep the hints.
	rr = do(t, h, http.MethodPut, "/api/questions/1", `{"isVisible":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update question: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	q = decode[domain.Question](t, rr)
	if q.IsVisible || q.Answer != "Paris" || len(q.Hints) != 2 {
		t.Fatalf("partial update changed more than visibility: %+v", q)
	}

	rr = do(t, h, http.MethodGet, "/api/admin/statistics", "")
	stats := decode[domain.Statistics](t, rr)
	if stats.TotalCategories != 1 || stats.TotalQuestions != 1 || stats.TotalHints != 2 || stats.QuestionsPerCategory["1"] != 1 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}

	rr = do(t, h, http.MethodDelete, "/api/categories/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete category: expected 200, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/api/questions/1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected question to be gone, got %d", rr.Code)
	}
}

func TestContentValidationErrors(t *testing.T) {
	h := newContentRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"blank category name", http.MethodPost, "/api/categories", `{"name":"  "}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/categories", `{"name":`, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/questions", `{"answer":"Oslo","categoryId":42}`, http.StatusBadRequest},
		{"missing answer", http.MethodPost, "/api/questions", `{"categoryId":1}`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/categories/abc", "", http.StatusBadRequest},
		{"missing category", http.MethodGet, "/api/categories/9", "", http.StatusNotFound},
		{"update missing question", http.MethodPut, "/api/questions/9", `{"answer":"x"}`, http.StatusNotFound},
		{"delete missing question", http.MethodDelete, "/api/questions/9", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			if body := decode[map[string]string](t, rr); body["error"] == "" {
				t.Errorf("expected error message, got %v", body)
			}
		})
	}
}

func TestListEndpoints(t *testing.T) {
	h := newContentRouter(t)
	do(t, h, http.MethodPost, "/api/categories", `{"name":"Rivers","isVisible":false}`)

	rr := do(t, h, http.MethodGet, "/api/categories", "")
	categories := decode[[]domain.Category](t, rr)
	if len(categories) != 1 || categories[0].IsVisible {
		t.Fatalf("unexpected categories: %+v", categories)
	}

	rr = do(t, h, http.MethodGet, "/api/questions", "")
	if questions := decode[[]domain.Question](t, rr); len(questions) != 0 {
		t.Fatalf("expected no questions, got %+v", questions)
	}
}
