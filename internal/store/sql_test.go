package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ashureev/hint-trivia/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "trivia.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCapitals(t *testing.T, s *SQLStore) (*domain.Category, *domain.Question) {
	t.Helper()
	ctx := context.Background()

	cat := &domain.Category{Name: "Capitals", Description: "World capitals", IsVisible: true}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	q := &domain.Question{
		Answer:     "Paris",
		CategoryID: cat.ID,
		IsVisible:  true,
		Hints:      domain.HintsFromText([]string{"Eiffel Tower", "France"}),
	}
	if err := s.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("CreateQuestion failed: %v", err)
	}
	return cat, q
}

func TestCreateAndListContent(t *testing.T) {
	s := newTestStore(t)
	cat, q := seedCapitals(t, s)

	if cat.ID == 0 || q.ID == 0 {
		t.Fatalf("expected ids to be assigned, got category=%d question=%d", cat.ID, q.ID)
	}
	if len(q.Hints) != 2 || q.Hints[0].ID == 0 || q.Hints[1].Order != 1 {
		t.Fatalf("unexpected stored hints: %+v", q.Hints)
	}

	content, err := s.ListContent(context.Background())
	if err != nil {
		t.Fatalf("ListContent failed: %v", err)
	}
	if len(content) != 1 || len(content[0].Questions) != 1 {
		t.Fatalf("unexpected content tree: %+v", content)
	}
	hints := content[0].Questions[0].Hints
	if len(hints) != 2 || hints[0].Content != "Eiffel Tower" || hints[1].Content != "France" {
		t.Errorf("expected ordered hints, got %+v", hints)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetCategory(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for category, got %v", err)
	}
	if _, err := s.GetQuestion(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for question, got %v", err)
	}
	if err := s.DeleteQuestion(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestUpdateCategoryPartial(t *testing.T) {
	s := newTestStore(t)
	cat, _ := seedCapitals(t, s)

	hidden := false
	updated, err := s.UpdateCategory(context.Background(), cat.ID, CategoryPatch{IsVisible: &hidden})
	if err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if updated.IsVisible || updated.Name != "Capitals" || updated.Description != "World capitals" {
		t.Fatalf("expected only visibility to change, got %+v", updated)
	}
	if len(updated.Questions) != 1 {
		t.Errorf("expected nested question, got %d", len(updated.Questions))
	}
}

func TestUpdateQuestionReplacesHints(t *testing.T) {
	s := newTestStore(t)
	_, q := seedCapitals(t, s)
	ctx := context.Background()

	answer := "paris"
	hints := domain.HintsFromText([]string{"Seine", "Louvre", "Baguette"})
	updated, err := s.UpdateQuestion(ctx, q.ID, QuestionPatch{Answer: &answer, Hints: &hints})
	if err != nil {
		t.Fatalf("UpdateQuestion failed: %v", err)
	}
	if updated.Answer != "paris" || len(updated.Hints) != 3 || updated.Hints[2].Content != "Baguette" {
		t.Fatalf("unexpected updated question: %+v", updated)
	}

	visible := false
	updated, err = s.UpdateQuestion(ctx, q.ID, QuestionPatch{IsVisible: &visible})
	if err != nil {
		t.Fatalf("UpdateQuestion visibility failed: %v", err)
	}
	if updated.IsVisible || len(updated.Hints) != 3 {
		t.Fatalf("visibility toggle must keep hints: %+v", updated)
	}
}

func TestCreateQuestionWithUnknownCategory(t *testing.T) {
	s := newTestStore(t)
	q := &domain.Question{Answer: "Oslo", CategoryID: 999, IsVisible: true}
	if err := s.CreateQuestion(context.Background(), q); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	s := newTestStore(t)
	cat, q := seedCapitals(t, s)
	ctx := context.Background()

	if err := s.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if _, err := s.GetQuestion(ctx, q.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected question to be deleted with its category, got %v", err)
	}
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("expected no questions, got %d", len(questions))
	}
}

func TestRebind(t *testing.T) {
	got := postgresDialect.rebind(`UPDATE t SET a = ?, b = ? WHERE id = ?`)
	want := `UPDATE t SET a = $1, b = $2 WHERE id = $3`
	if got != want {
		t.Errorf("rebind: expected %q, got %q", want, got)
	}
	if sqliteDialect.rebind("a = ?") != "a = ?" {
		t.Error("sqlite placeholders must be left alone")
	}
}

func TestIsConflictError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("SQLITE_BUSY: busy"), true},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		if got := IsConflictError(tt.err); got != tt.want {
			t.Errorf("IsConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
