package task

import (
	"context"
	"time"
)

// ListFilter narrows and orders ListOpen results.
type ListFilter struct {
	// Bucket restricts results to one schedule bucket when set.
	Bucket Bucket

	// DueBefore keeps tasks whose due date falls strictly before it.
	DueBefore *time.Time

	// RemindBefore keeps tasks whose reminder time falls strictly before it.
	RemindBefore *time.Time

	// Categories keeps tasks in any of the named categories.
	Categories []string

	// OrderBy is one of "created_at", "due_at", "" (store default).
	OrderBy string

	// Limit caps the result count when > 0.
	Limit int
}

// Store persists tasks.
type Store interface {
	// ListOpen returns the user's uncompleted tasks matching the filter.
	ListOpen(ctx context.Context, userID string, f ListFilter) ([]*Task, error)

	// Get fetches a task by id.
	Get(ctx context.Context, id string) (*Task, error)

	// Insert persists a new task.
	Insert(ctx context.Context, t *Task) error

	// Update rewrites the task's derived fields. RawContent is never
	// touched by implementations.
	Update(ctx context.Context, t *Task) error

	// SetFocus flags a task as the day's primary focus. This is the only
	// store mutation the analyzers perform.
	SetFocus(ctx context.Context, id string, focusDate time.Time) error
}

// HistoryStore exposes the completion log over a trailing window.
type HistoryStore interface {
	// CompletedSince returns the user's tasks completed at or after since.
	CompletedSince(ctx context.Context, userID string, since time.Time) ([]*Task, error)
}

// Persona captures the user's working style for focus prediction.
type Persona struct {
	// Preferences maps preferred domains (categories) to weights in [0,1].
	Preferences map[string]float64 `json:"preferences,omitempty"`

	// Avoidances maps avoided domains to weights in [0,1].
	Avoidances map[string]float64 `json:"avoidances,omitempty"`

	// Ambition is a 0-1 scalar; higher favors more substantial tasks.
	Ambition float64 `json:"ambition"`
}

// Profile is the per-user profile read by the pipeline and the predictor.
type Profile struct {
	UserID string `json:"user_id"`

	// Goal is the user's free-text stated goal.
	Goal string `json:"goal,omitempty"`

	// Categories are the user's custom category names.
	Categories []string `json:"categories,omitempty"`

	// CategoryWeights maps categories to preference weights in [0,1].
	CategoryWeights map[string]float64 `json:"category_weights,omitempty"`

	Persona Persona `json:"persona"`
}

// ProfileStore reads user profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}
