package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements the DB interface with scripted results.
type mockDB struct {
	queryRowFunc func(sql string, args []any) pgx.Row
	execFunc     func(sql string, args []any) (pgconn.CommandTag, error)

	queries []string
	execs   []string
}

func (db *mockDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, sql)
	if db.queryRowFunc != nil {
		return db.queryRowFunc(sql, args)
	}
	return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
}

func (db *mockDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, sql)
	return nil, errors.New("not implemented")
}

func (db *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	if db.execFunc != nil {
		return db.execFunc(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func scanStrings(values ...string) func(dest ...any) error {
	return func(dest ...any) error {
		for i, v := range values {
			p, ok := dest[i].(*string)
			if !ok {
				return errors.New("scan: unexpected destination type")
			}
			*p = v
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNextLesson_ReturnsFirstUncompleted(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(_ string, args []any) pgx.Row {
			if len(args) != 1 || args[0] != "enroll-1" {
				t.Errorf("args = %v, want [enroll-1]", args)
			}
			return &mockRow{scanFunc: scanStrings("lesson-2", "Family", "Talk about relatives")}
		},
	}
	s := New(db)

	info, err := s.NextLesson(context.Background(), "enroll-1")
	if err != nil {
		t.Fatalf("NextLesson() error = %v, want nil", err)
	}
	if info == nil || info.LessonID != "lesson-2" || info.Title != "Family" {
		t.Errorf("NextLesson() = %+v, want lesson-2 Family", info)
	}
	if len(db.queries) != 1 || !strings.Contains(db.queries[0], "lesson_order") {
		t.Errorf("query should order by lesson_order, got %q", db.queries)
	}
}

func TestNextLesson_AllCompleteIsNilNotError(t *testing.T) {
	t.Parallel()

	s := New(&mockDB{}) // default QueryRow returns pgx.ErrNoRows

	info, err := s.NextLesson(context.Background(), "enroll-1")
	if err != nil {
		t.Fatalf("NextLesson() error = %v, want nil for exhausted curriculum", err)
	}
	if info != nil {
		t.Errorf("NextLesson() = %+v, want nil", info)
	}
}

func TestNextLesson_DatabaseErrorSurfaced(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection refused")
	db := &mockDB{
		queryRowFunc: func(string, []any) pgx.Row {
			return &mockRow{scanFunc: func(...any) error { return dbErr }}
		},
	}
	s := New(db)

	_, err := s.NextLesson(context.Background(), "enroll-1")
	if !errors.Is(err, dbErr) {
		t.Fatalf("NextLesson() error = %v, want wrapped %v", err, dbErr)
	}
}

func TestLesson_NotFoundIsNil(t *testing.T) {
	t.Parallel()

	s := New(&mockDB{})
	info, err := s.Lesson(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Lesson() error = %v, want nil", err)
	}
	if info != nil {
		t.Errorf("Lesson() = %+v, want nil for an unknown lesson", info)
	}
}

func TestCompleteLesson_Upserts(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	s := New(db)

	if err := s.CompleteLesson(context.Background(), "enroll-1", "lesson-1"); err != nil {
		t.Fatalf("CompleteLesson() error = %v, want nil", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "ON CONFLICT") {
		t.Errorf("CompleteLesson should upsert, got %q", db.execs)
	}
}

func TestMigrate_ExecutesSchema(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	s := New(db)

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v, want nil", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "user_lesson_progress") {
		t.Errorf("Migrate should create progress table, got %q", db.execs)
	}
}
