// Package content manages trivia categories and questions and feeds the
// game with the visible subset.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/hint-trivia/internal/cache"
	"github.com/ashureev/hint-trivia/internal/domain"
	"github.com/ashureev/hint-trivia/internal/events"
	"github.com/ashureev/hint-trivia/internal/store"
)

// GameCacheKey holds the JSON-encoded visible category tree.
const GameCacheKey = "trivia:game:categories"

var (
	// ErrNotFound is returned when a category or question does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for rejected input. It is wrapped with detail.
	ErrInvalid = errors.New("invalid input")
)

// Service is the single entry point for content reads and writes.
type Service struct {
	repo      store.Repository
	cache     cache.Cache
	publisher events.Publisher
	cacheTTL  time.Duration
}

// NewService wires the repository with a cache and an event publisher.
// Nil cache or publisher fall back to an in-memory cache and a no-op publisher.
func NewService(repo store.Repository, c cache.Cache, pub events.Publisher, cacheTTL time.Duration) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, cache: c, publisher: pub, cacheTTL: cacheTTL}
}

// ListVisibleCategories returns visible categories with all their questions
// and ordered hints. Results are cached until the next mutation or TTL.
func (s *Service) ListVisibleCategories(ctx context.Context) ([]domain.Category, error) {
	if data, err := s.cache.Get(ctx, GameCacheKey); err == nil {
		var categories []domain.Category
		if err := json.Unmarshal(data, &categories); err == nil {
			return categories, nil
		}
		slog.Warn("Discarding corrupt cached content", "key", GameCacheKey)
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("Content cache read failed", "error", err)
	}

	all, err := s.repo.ListContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	visible := domain.VisibleCategories(all)

	if data, err := json.Marshal(visible); err == nil {
		if err := s.cache.Set(ctx, GameCacheKey, data, s.cacheTTL); err != nil {
			slog.Warn("Content cache write failed", "error", err)
		}
	}
	return visible, nil
}

// GameContent returns every category with nested questions and hints,
// hidden ones included.
func (s *Service) GameContent(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return categories, nil
}

// ListCategories returns all categories without nested questions.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category with its questions.
func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, translate(err, "category", id)
	}
	return c, nil
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, c *domain.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if c.Name == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalid)
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	s.changed(ctx, events.EntityCategory, events.ActionCreated, c.ID)
	return nil
}

// UpdateCategory applies a partial update.
func (s *Service) UpdateCategory(ctx context.Context, id int64, patch store.CategoryPatch) (*domain.Category, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category name must not be blank", ErrInvalid)
		}
		patch.Name = &name
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		patch.Description = &desc
	}

	c, err := s.repo.UpdateCategory(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "category", id)
	}
	s.changed(ctx, events.EntityCategory, events.ActionUpdated, id)
	return c, nil
}

// DeleteCategory removes a category and everything under it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return translate(err, "category", id)
	}
	s.changed(ctx, events.EntityCategory, events.ActionDeleted, id)
	return nil
}

// ListQuestions returns all questions with ordered hints.
func (s *Service) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	questions, err := s.repo.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// GetQuestion returns a question with ordered hints.
func (s *Service) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, translate(err, "question", id)
	}
	return q, nil
}

// CreateQuestion validates and stores a question with its hints.
func (s *Service) CreateQuestion(ctx context.Context, q *domain.Question) error {
	q.Answer = strings.TrimSpace(q.Answer)
	if q.Answer == "" {
		return fmt.Errorf("%w: answer is required", ErrInvalid)
	}
	if q.CategoryID <= 0 {
		return fmt.Errorf("%w: categoryId is required", ErrInvalid)
	}
	q.Hints = normalizeHints(q.Hints)

	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return translate(err, "category", q.CategoryID)
	}
	s.changed(ctx, events.EntityQuestion, events.ActionCreated, q.ID)
	return nil
}

// UpdateQuestion applies a partial update. Supplied hints replace all
// existing hints.
func (s *Service) UpdateQuestion(ctx context.Context, id int64, patch store.QuestionPatch) (*domain.Question, error) {
	if patch.Answer != nil {
		answer := strings.TrimSpace(*patch.Answer)
		if answer == "" {
			return nil, fmt.Errorf("%w: answer must not be blank", ErrInvalid)
		}
		patch.Answer = &answer
	}
	if patch.CategoryID != nil && *patch.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: categoryId must be positive", ErrInvalid)
	}
	if patch.Hints != nil {
		hints := normalizeHints(*patch.Hints)
		patch.Hints = &hints
	}

	q, err := s.repo.UpdateQuestion(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "question", id)
	}
	s.changed(ctx, events.EntityQuestion, events.ActionUpdated, id)
	return q, nil
}

// DeleteQuestion removes a question and its hints.
func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return translate(err, "question", id)
	}
	s.changed(ctx, events.EntityQuestion, events.ActionDeleted, id)
	return nil
}

// Kind names an entity whose visibility can be toggled.
type Kind string

const (
	KindCategory Kind = "category"
	KindQuestion Kind = "question"
)

// SetVisibility shows or hides a category or question.
func (s *Service) SetVisibility(ctx context.Context, kind Kind, id int64, visible bool) error {
	var err error
	switch kind {
	case KindCategory:
		_, err = s.UpdateCategory(ctx, id, store.CategoryPatch{IsVisible: &visible})
	case KindQuestion:
		_, err = s.UpdateQuestion(ctx, id, store.QuestionPatch{IsVisible: &visible})
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
	}
	return err
}

// Statistics counts stored content. Questions per category are keyed by
// category ID.
func (s *Service) Statistics(ctx context.Context) (*domain.Statistics, error) {
	categories, err := s.repo.ListContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	stats := &domain.Statistics{
		TotalCategories:      len(categories),
		QuestionsPerCategory: make(map[string]int, len(categories)),
	}
	for _, c := range categories {
		stats.TotalQuestions += len(c.Questions)
		stats.QuestionsPerCategory[strconv.FormatInt(c.ID, 10)] = len(c.Questions)
		for _, q := range c.Questions {
			stats.TotalHints += len(q.Hints)
		}
	}
	return stats, nil
}

// Invalidate drops the cached game content.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, GameCacheKey); err != nil {
		return fmt.Errorf("invalidate content cache: %w", err)
	}
	return nil
}

// HandleEvent invalidates the local cache when another instance changes
// content. It satisfies events.Handler.
func (s *Service) HandleEvent(ctx context.Context, e events.ContentChanged) error {
	slog.Debug("Content changed elsewhere", "entity", e.Entity, "action", e.Action, "entity_id", e.EntityID)
	return s.Invalidate(ctx)
}

// changed invalidates the cache and announces a mutation. Failures are
// logged; the write itself has already succeeded.
func (s *Service) changed(ctx context.Context, entity, action string, id int64) {
	if err := s.Invalidate(ctx); err != nil {
		slog.Warn("Cache invalidation failed", "error", err)
	}
	if err := s.publisher.Publish(ctx, events.NewContentChanged(entity, action, id)); err != nil {
		slog.Warn("Failed to publish content event", "entity", entity, "action", action, "entity_id", id, "error", err)
	}
}

// normalizeHints trims hint text, drops blanks and renumbers the rest.
func normalizeHints(hints []domain.Hint) []domain.Hint {
	texts := make([]string, 0, len(hints))
	for _, h := range hints {
		texts = append(texts, strings.TrimSpace(h.Content))
	}
	return domain.HintsFromText(texts)
}

func translate(err error, entity string, id int64) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	case errors.Is(err, store.ErrInvalidReference):
		return fmt.Errorf("%w: category does not exist", ErrInvalid)
	default:
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}
}
