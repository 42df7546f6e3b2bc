// Package postgres provides a [curriculum.Store] backed by a PostgreSQL
// database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lisan-app/lisan/internal/curriculum"
)

// Schema is the SQL DDL for the curriculum tables used by this store. Execute
// it via [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS lessons (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    objective    TEXT NOT NULL DEFAULT '',
    lesson_order INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_lessons_order ON lessons(lesson_order);

CREATE TABLE IF NOT EXISTS user_lesson_progress (
    enrollment_id TEXT NOT NULL,
    lesson_id     TEXT NOT NULL REFERENCES lessons(id),
    status        TEXT NOT NULL DEFAULT 'in_progress',
    completed_at  TIMESTAMPTZ,
    PRIMARY KEY (enrollment_id, lesson_id)
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [curriculum.Store] backed by PostgreSQL.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ curriculum.Store = (*Store)(nil)

// New creates a Store using the given database connection or pool. The
// caller is responsible for calling [Store.Migrate] to ensure the schema
// exists before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("curriculum: migrate: %w", err)
	}
	return nil
}

// NextLesson returns the first lesson (by lesson_order) that the enrollment
// has not completed, or nil when all lessons are complete.
func (s *Store) NextLesson(ctx context.Context, enrollmentID string) (*curriculum.LessonInfo, error) {
	const query = `
		SELECT l.id, l.title, l.objective
		FROM lessons l
		WHERE l.id NOT IN (
			SELECT p.lesson_id
			FROM user_lesson_progress p
			WHERE p.enrollment_id = $1 AND p.status = 'completed'
		)
		ORDER BY l.lesson_order
		LIMIT 1`

	var info curriculum.LessonInfo
	err := s.db.QueryRow(ctx, query, enrollmentID).Scan(&info.LessonID, &info.Title, &info.Objective)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("curriculum: next lesson for %q: %w", enrollmentID, err)
	}
	return &info, nil
}

// Lesson returns the lesson with the given ID, or nil when no such lesson
// exists.
func (s *Store) Lesson(ctx context.Context, lessonID string) (*curriculum.LessonInfo, error) {
	const query = `SELECT id, title, objective FROM lessons WHERE id = $1`

	var info curriculum.LessonInfo
	err := s.db.QueryRow(ctx, query, lessonID).Scan(&info.LessonID, &info.Title, &info.Objective)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("curriculum: lesson %q: %w", lessonID, err)
	}
	return &info, nil
}

// CompleteLesson upserts a completed progress row for the enrollment/lesson
// pair. Re-completing a lesson refreshes the completion timestamp.
func (s *Store) CompleteLesson(ctx context.Context, enrollmentID, lessonID string) error {
	const query = `
		INSERT INTO user_lesson_progress (enrollment_id, lesson_id, status, completed_at)
		VALUES ($1, $2, 'completed', now())
		ON CONFLICT (enrollment_id, lesson_id)
		DO UPDATE SET status = 'completed', completed_at = now()`

	if _, err := s.db.Exec(ctx, query, enrollmentID, lessonID); err != nil {
		return fmt.Errorf("curriculum: complete lesson %q for %q: %w", lessonID, enrollmentID, err)
	}
	return nil
}
