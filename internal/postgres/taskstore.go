package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/solacelabs/solaced/internal/task"
)

const taskColumns = `id, user_id, title, raw_content, ai_summary, confidence,
	category, bucket, completed, completed_at, is_focus, focus_date,
	due_at, remind_at, tiny, heavy, priority, keywords, subtasks,
	created_at, updated_at`

// TaskStore implements task.Store and task.HistoryStore on Postgres.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore wraps an open database handle.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// ListOpen returns the user's uncompleted tasks matching the filter.
func (s *TaskStore) ListOpen(ctx context.Context, userID string, f task.ListFilter) ([]*task.Task, error) {
	var b strings.Builder
	args := []any{userID}
	fmt.Fprintf(&b, "SELECT %s FROM tasks WHERE user_id = $1 AND NOT completed", taskColumns)

	if f.Bucket != "" {
		args = append(args, string(f.Bucket))
		fmt.Fprintf(&b, " AND bucket = $%d", len(args))
	}
	if f.DueBefore != nil {
		args = append(args, *f.DueBefore)
		fmt.Fprintf(&b, " AND due_at IS NOT NULL AND due_at < $%d", len(args))
	}
	if f.RemindBefore != nil {
		args = append(args, *f.RemindBefore)
		fmt.Fprintf(&b, " AND remind_at IS NOT NULL AND remind_at < $%d", len(args))
	}
	if len(f.Categories) > 0 {
		args = append(args, pq.Array(f.Categories))
		fmt.Fprintf(&b, " AND category = ANY($%d)", len(args))
	}

	switch f.OrderBy {
	case "due_at":
		b.WriteString(" ORDER BY due_at NULLS LAST, created_at")
	default:
		b.WriteString(" ORDER BY created_at")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get fetches a task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNotFound
	}
	return t, err
}

// Insert persists a new task.
func (s *TaskStore) Insert(ctx context.Context, t *task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		t.ID, t.UserID, t.Title, t.RawContent, t.Summary, t.Confidence,
		t.Category, string(t.Bucket), t.Completed, t.CompletedAt, t.IsFocus, t.FocusDate,
		t.DueAt, t.RemindAt, t.Tiny, t.Heavy, t.Priority,
		pq.Array(t.Keywords), pq.Array(t.Subtasks), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update rewrites the task's derived fields. raw_content is deliberately
// absent from the SET list.
func (s *TaskStore) Update(ctx context.Context, t *task.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = $2, ai_summary = $3, confidence = $4, category = $5,
			bucket = $6, completed = $7, completed_at = $8, is_focus = $9,
			focus_date = $10, due_at = $11, remind_at = $12, tiny = $13,
			heavy = $14, priority = $15, keywords = $16, subtasks = $17,
			updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.Summary, t.Confidence, t.Category,
		string(t.Bucket), t.Completed, t.CompletedAt, t.IsFocus,
		t.FocusDate, t.DueAt, t.RemindAt, t.Tiny,
		t.Heavy, t.Priority, pq.Array(t.Keywords), pq.Array(t.Subtasks))
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return checkAffected(res)
}

// SetFocus flags the task as primary focus for the given day.
func (s *TaskStore) SetFocus(ctx context.Context, id string, focusDate time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET is_focus = TRUE, focus_date = $2, updated_at = NOW()
		WHERE id = $1`, id, focusDate)
	if err != nil {
		return fmt.Errorf("set focus: %w", err)
	}
	return checkAffected(res)
}

// CompletedSince returns the user's tasks completed at or after since.
func (s *TaskStore) CompletedSince(ctx context.Context, userID string, since time.Time) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE user_id = $1 AND completed AND completed_at >= $2
		ORDER BY completed_at`, taskColumns), userID, since)
	if err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var t task.Task
	var bucket string
	var keywords, subtasks pq.StringArray
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.RawContent, &t.Summary, &t.Confidence,
		&t.Category, &bucket, &t.Completed, &t.CompletedAt, &t.IsFocus, &t.FocusDate,
		&t.DueAt, &t.RemindAt, &t.Tiny, &t.Heavy, &t.Priority,
		&keywords, &subtasks, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Bucket = task.Bucket(bucket)
	t.Keywords = keywords
	t.Subtasks = subtasks
	return &t, nil
}

var (
	_ task.Store        = (*TaskStore)(nil)
	_ task.HistoryStore = (*TaskStore)(nil)
)

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}
