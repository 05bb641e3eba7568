package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/hint-trivia/internal/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore implements Repository on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open creates a repository for the named driver ("sqlite" or "postgres").
func Open(driver, dsn string) (Repository, error) {
	var s *SQLStore
	var err error
	switch driver {
	case "sqlite", "":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers; foreign keys are off by default in SQLite.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, sqliteDialect)
}

// NewPostgres creates a new PostgreSQL-backed repository.
func NewPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, postgresDialect)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	if _, err := s.db.Exec(s.dialect.schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

// ListCategories returns all categories without their questions.
func (s *SQLStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, is_visible FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer closeRows(rows, "categories")

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsVisible); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		c.Questions = []domain.Question{}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category with its questions and hints.
func (s *SQLStore) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.getCategory(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	questions, err := s.listQuestions(ctx, s.db, "WHERE category_id = ?", id)
	if err != nil {
		return nil, err
	}
	c.Questions = questions
	return c, nil
}

func (s *SQLStore) getCategory(ctx context.Context, q querier, id int64) (*domain.Category, error) {
	row := q.QueryRowContext(ctx, s.q(`SELECT id, name, description, is_visible FROM categories WHERE id = ?`), id)

	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsVisible)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan category row: %w", err)
	}
	c.Questions = []domain.Question{}
	return &c, nil
}

// CreateCategory inserts a category and sets its ID.
func (s *SQLStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	now := time.Now().Unix()
	query := s.q(`
		INSERT INTO categories (name, description, is_visible, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	return withRetry(ctx, "create category", func() error {
		if err := s.db.QueryRowContext(ctx, query, c.Name, c.Description, c.IsVisible, now, now).Scan(&c.ID); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		if c.Questions == nil {
			c.Questions = []domain.Question{}
		}
		return nil
	})
}

// UpdateCategory applies a patch and returns the updated category.
func (s *SQLStore) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (*domain.Category, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.IsVisible != nil {
		sets = append(sets, "is_visible = ?")
		args = append(args, *patch.IsVisible)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix(), id)

	query := s.q(`UPDATE categories SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	err := withRetry(ctx, "update category", func() error {
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return requireRow(result, "category", id)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category along with its questions and hints.
func (s *SQLStore) DeleteCategory(ctx context.Context, id int64) error {
	query := s.q(`DELETE FROM categories WHERE id = ?`)
	return withRetry(ctx, "delete category", func() error {
		result, err := s.db.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return requireRow(result, "category", id)
	})
}

// ListQuestions returns all questions with hints ordered ascending.
func (s *SQLStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.listQuestions(ctx, s.db, "")
}

// GetQuestion returns a question with hints ordered ascending.
func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	questions, err := s.listQuestions(ctx, s.db, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	return &questions[0], nil
}

func (s *SQLStore) listQuestions(ctx context.Context, q querier, where string, args ...any) ([]domain.Question, error) {
	query := `SELECT id, answer, category_id, is_visible FROM questions ` + where + ` ORDER BY id`
	rows, err := q.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer closeRows(rows, "questions")

	questions := []domain.Question{}
	index := make(map[int64]int)
	for rows.Next() {
		var qn domain.Question
		if err := rows.Scan(&qn.ID, &qn.Answer, &qn.CategoryID, &qn.IsVisible); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		qn.Hints = []domain.Hint{}
		index[qn.ID] = len(questions)
		questions = append(questions, qn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	var hints []domain.Hint
	if len(questions) == 1 {
		hints, err = s.listHints(ctx, q, "WHERE question_id = ?", questions[0].ID)
	} else {
		hints, err = s.listHints(ctx, q, "")
	}
	if err != nil {
		return nil, err
	}
	for _, h := range hints {
		if i, ok := index[h.QuestionID]; ok {
			questions[i].Hints = append(questions[i].Hints, h)
		}
	}
	for i := range questions {
		questions[i].SortHints()
	}
	return questions, nil
}

func (s *SQLStore) listHints(ctx context.Context, q querier, where string, args ...any) ([]domain.Hint, error) {
	query := `SELECT id, question_id, content, sort_order FROM hints ` + where + ` ORDER BY question_id, sort_order`
	rows, err := q.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query hints: %w", err)
	}
	defer closeRows(rows, "hints")

	var hints []domain.Hint
	for rows.Next() {
		var h domain.Hint
		if err := rows.Scan(&h.ID, &h.QuestionID, &h.Content, &h.Order); err != nil {
			return nil, fmt.Errorf("scan hint row: %w", err)
		}
		hints = append(hints, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hints: %w", err)
	}
	return hints, nil
}

// CreateQuestion inserts a question with its hints and sets the IDs.
func (s *SQLStore) CreateQuestion(ctx context.Context, qn *domain.Question) error {
	now := time.Now().Unix()
	query := s.q(`
		INSERT INTO questions (answer, category_id, is_visible, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	return withRetry(ctx, "create question", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(ctx, query, qn.Answer, qn.CategoryID, qn.IsVisible, now, now).Scan(&qn.ID); err != nil {
				return classify(fmt.Errorf("insert question: %w", err))
			}
			hints, err := s.insertHints(ctx, tx, qn.ID, qn.Hints)
			if err != nil {
				return err
			}
			qn.Hints = hints
			return nil
		})
	})
}

// UpdateQuestion applies a patch and returns the updated question.
func (s *SQLStore) UpdateQuestion(ctx context.Context, id int64, patch QuestionPatch) (*domain.Question, error) {
	var sets []string
	var args []any
	if patch.Answer != nil {
		sets = append(sets, "answer = ?")
		args = append(args, *patch.Answer)
	}
	if patch.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *patch.CategoryID)
	}
	if patch.IsVisible != nil {
		sets = append(sets, "is_visible = ?")
		args = append(args, *patch.IsVisible)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix(), id)

	query := s.q(`UPDATE questions SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	err := withRetry(ctx, "update question", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return classify(fmt.Errorf("update question: %w", err))
			}
			if err := requireRow(result, "question", id); err != nil {
				return err
			}
			if patch.Hints == nil {
				return nil
			}
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM hints WHERE question_id = ?`), id); err != nil {
				return fmt.Errorf("delete hints: %w", err)
			}
			_, err = s.insertHints(ctx, tx, id, *patch.Hints)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuestion(ctx, id)
}

// DeleteQuestion removes a question and its hints.
func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	query := s.q(`DELETE FROM questions WHERE id = ?`)
	return withRetry(ctx, "delete question", func() error {
		result, err := s.db.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		return requireRow(result, "question", id)
	})
}

// ListContent returns every category with nested questions and ordered hints.
func (s *SQLStore) ListContent(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(categories))
	for i, c := range categories {
		index[c.ID] = i
	}
	for _, qn := range questions {
		if i, ok := index[qn.CategoryID]; ok {
			categories[i].Questions = append(categories[i].Questions, qn)
		}
	}
	return categories, nil
}

func (s *SQLStore) insertHints(ctx context.Context, tx *sql.Tx, questionID int64, hints []domain.Hint) ([]domain.Hint, error) {
	query := s.q(`INSERT INTO hints (question_id, content, sort_order) VALUES (?, ?, ?) RETURNING id`)
	stored := make([]domain.Hint, 0, len(hints))
	for i, h := range hints {
		h.QuestionID = questionID
		h.Order = i
		if err := tx.QueryRowContext(ctx, query, questionID, h.Content, h.Order).Scan(&h.ID); err != nil {
			return nil, fmt.Errorf("insert hint: %w", err)
		}
		stored = append(stored, h)
	}
	return stored, nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func classify(err error) error {
	if IsForeignKeyError(err) {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}

func requireRow(result sql.Result, entity string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "table", what, "error", err)
	}
}
