// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/hint-trivia/internal/domain"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when a foreign key does not resolve.
	ErrInvalidReference = errors.New("invalid reference")
)

// CategoryPatch holds optional category fields. Nil fields are left unchanged.
type CategoryPatch struct {
	Name        *string
	Description *string
	IsVisible   *bool
}

// QuestionPatch holds optional question fields. Nil fields are left unchanged.
// When Hints is non-nil it replaces every existing hint of the question.
type QuestionPatch struct {
	Answer     *string
	CategoryID *int64
	IsVisible  *bool
	Hints      *[]domain.Hint
}

// Repository defines the interface for persisting trivia content.
type Repository interface {
	// ListCategories returns all categories without their questions.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// GetCategory returns a category with its questions and hints.
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)

	// CreateCategory inserts a category and sets its ID.
	CreateCategory(ctx context.Context, c *domain.Category) error

	// UpdateCategory applies a patch and returns the updated category.
	UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (*domain.Category, error)

	// DeleteCategory removes a category along with its questions and hints.
	DeleteCategory(ctx context.Context, id int64) error

	// ListQuestions returns all questions with hints ordered ascending.
	ListQuestions(ctx context.Context) ([]domain.Question, error)

	// GetQuestion returns a question with hints ordered ascending.
	GetQuestion(ctx context.Context, id int64) (*domain.Question, error)

	// CreateQuestion inserts a question with its hints and sets the IDs.
	CreateQuestion(ctx context.Context, q *domain.Question) error

	// UpdateQuestion applies a patch and returns the updated question.
	UpdateQuestion(ctx context.Context, id int64, patch QuestionPatch) (*domain.Question, error)

	// DeleteQuestion removes a question and its hints.
	DeleteQuestion(ctx context.Context, id int64) error

	// ListContent returns every category with nested questions and ordered hints.
	ListContent(ctx context.Context) ([]domain.Category, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
