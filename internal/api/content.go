package api

import (
	"net/http"

	"github.com/ashureev/hint-trivia/internal/domain"
	"github.com/ashureev/hint-trivia/internal/game"
	"github.com/ashureev/hint-trivia/internal/store"
	"github.com/go-chi/chi/v5"
)

// ContentHandler serves the game content tree and the admin CRUD endpoints.
type ContentHandler struct {
	svc ContentService
}

// NewContentHandler creates a content handler.
func NewContentHandler(svc ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// RegisterRoutes registers content routes.
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/game", h.Game)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Get("/{id}", h.GetCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", h.ListQuestions)
			r.Post("/", h.CreateQuestion)
			r.Get("/{id}", h.GetQuestion)
			r.Put("/{id}", h.UpdateQuestion)
			r.Delete("/{id}", h.DeleteQuestion)
		})

		r.Get("/admin/statistics", h.Statistics)
	})
}

// Game returns every category with nested questions and ordered hints.
func (h *ContentHandler) Game(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.GameContent(r.Context())
	if err != nil {
		serviceError(w, err, "failed to fetch game data")
		return
	}
	JSON(w, http.StatusOK, categories)
}

type categoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsVisible   *bool   `json:"isVisible"`
}

// ListCategories returns all categories.
func (h *ContentHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		serviceError(w, err, "failed to fetch categories")
		return
	}
	JSON(w, http.StatusOK, categories)
}

// GetCategory returns one category with its questions.
func (h *ContentHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.GetCategory(r.Context(), id)
	if err != nil {
		serviceError(w, err, "failed to fetch category")
		return
	}
	JSON(w, http.StatusOK, c)
}

// CreateCategory adds a category. New categories are visible unless stated.
func (h *ContentHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	c := &domain.Category{IsVisible: true}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.IsVisible != nil {
		c.IsVisible = *req.IsVisible
	}

	if err := h.svc.CreateCategory(r.Context(), c); err != nil {
		serviceError(w, err, "failed to create category")
		return
	}
	JSON(w, http.StatusCreated, c)
}

// UpdateCategory applies a partial update.
func (h *ContentHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.UpdateCategory(r.Context(), id, store.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		IsVisible:   req.IsVisible,
	})
	if err != nil {
		serviceError(w, err, "failed to update category")
		return
	}
	JSON(w, http.StatusOK, c)
}

// DeleteCategory removes a category with its questions.
func (h *ContentHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		serviceError(w, err, "failed to delete category")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

type questionRequest struct {
	Answer     *string          `json:"answer"`
	CategoryID *game.CategoryID `json:"categoryId"`
	IsVisible  *bool            `json:"isVisible"`
	Hints      *[]string        `json:"hints"`
}

// ListQuestions returns all questions with ordered hints.
func (h *ContentHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.svc.ListQuestions(r.Context())
	if err != nil {
		serviceError(w, err, "failed to fetch questions")
		return
	}
	JSON(w, http.StatusOK, questions)
}

// GetQuestion returns one question with ordered hints.
func (h *ContentHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.svc.GetQuestion(r.Context(), id)
	if err != nil {
		serviceError(w, err, "failed to fetch question")
		return
	}
	JSON(w, http.StatusOK, q)
}

// CreateQuestion adds a question. Hints are given as ordered strings.
func (h *ContentHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	q := &domain.Question{IsVisible: true}
	if req.Answer != nil {
		q.Answer = *req.Answer
	}
	if req.CategoryID != nil {
		q.CategoryID = int64(*req.CategoryID)
	}
	if req.IsVisible != nil {
		q.IsVisible = *req.IsVisible
	}
	if req.Hints != nil {
		q.Hints = domain.HintsFromText(*req.Hints)
	}

	if err := h.svc.CreateQuestion(r.Context(), q); err != nil {
		serviceError(w, err, "failed to create question")
		return
	}
	JSON(w, http.StatusCreated, q)
}

// UpdateQuestion applies a partial update. Supplied hints replace all
// existing ones.
func (h *ContentHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := store.QuestionPatch{Answer: req.Answer, IsVisible: req.IsVisible}
	if req.CategoryID != nil {
		categoryID := int64(*req.CategoryID)
		patch.CategoryID = &categoryID
	}
	if req.Hints != nil {
		hints := domain.HintsFromText(*req.Hints)
		patch.Hints = &hints
	}

	q, err := h.svc.UpdateQuestion(r.Context(), id, patch)
	if err != nil {
		serviceError(w, err, "failed to update question")
		return
	}
	JSON(w, http.StatusOK, q)
}

// DeleteQuestion removes a question with its hints.
func (h *ContentHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), id); err != nil {
		serviceError(w, err, "failed to delete question")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Question deleted successfully"})
}

// Statistics returns content totals for the admin page.
func (h *ContentHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		serviceError(w, err, "failed to compute statistics")
		return
	}
	JSON(w, http.StatusOK, stats)
}
