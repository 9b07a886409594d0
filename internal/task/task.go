// Package task defines the persisted task model and the store interfaces
// consumed by the capture pipeline and the analyzers.
package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors for task operations.
var (
	ErrNotFound      = errors.New("task not found")
	ErrEmptyTitle    = errors.New("task title cannot be empty")
	ErrEmptyUserID   = errors.New("user ID cannot be empty")
	ErrInvalidBucket = errors.New("invalid schedule bucket")
	ErrNoUser        = errors.New("no authenticated user")
)

// Bucket is a scheduling horizon. Every persisted task sits in exactly one.
type Bucket string

const (
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketThisWeek Bucket = "this_week"
	BucketUpcoming Bucket = "upcoming"
	BucketSomeday  Bucket = "someday"
)

// Buckets lists all valid buckets in horizon order.
func Buckets() []Bucket {
	return []Bucket{BucketToday, BucketTomorrow, BucketThisWeek, BucketUpcoming, BucketSomeday}
}

// Valid reports whether b is one of the five defined buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketToday, BucketTomorrow, BucketThisWeek, BucketUpcoming, BucketSomeday:
		return true
	}
	return false
}

// Task is a persisted task row.
//
// RawContent holds the user's capture text verbatim and is never mutated
// after insert. Everything else is derived and may be rewritten by the
// pipeline or the analyzers.
type Task struct {
	// ID is the unique task identifier (UUID).
	ID string `json:"id"`

	// UserID identifies the owning user.
	UserID string `json:"user_id"`

	// Title is the cleaned, display-ready task text.
	Title string `json:"title"`

	// RawContent is the original capture text, immutable.
	RawContent string `json:"raw_content"`

	// Summary is the derived one-line summary.
	Summary string `json:"ai_summary,omitempty"`

	// Confidence is the interpretation confidence, 0.0 to 1.0.
	Confidence float64 `json:"confidence"`

	Category string `json:"category,omitempty"`

	// Bucket is the scheduling horizon, always exactly one of the five.
	Bucket Bucket `json:"scheduled_bucket"`

	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// IsFocus marks the task as a declared daily primary focus.
	IsFocus   bool       `json:"is_focus"`
	FocusDate *time.Time `json:"focus_date,omitempty"`

	DueAt    *time.Time `json:"due_at,omitempty"`
	RemindAt *time.Time `json:"remind_at,omitempty"`

	// Tiny marks a fiesta-ready task (under five minutes).
	Tiny bool `json:"tiny"`

	// Heavy marks a large-effort task.
	Heavy bool `json:"heavy"`

	// Priority is the stored priority tier (MUST, SHOULD, COULD).
	Priority string `json:"priority,omitempty"`

	Keywords []string `json:"keywords,omitempty"`
	Subtasks []string `json:"subtasks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a task with a generated UUID and default values.
func New(userID, title, rawContent string) (*Task, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if rawContent == "" {
		rawContent = title
	}

	now := time.Now()
	return &Task{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      strings.TrimSpace(title),
		RawContent: rawContent,
		Confidence: 0.5,
		Bucket:     BucketSomeday,
		Keywords:   ExtractKeywords(title),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Validate checks the task for invalid fields.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task ID cannot be empty")
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return errors.New("invalid task ID format")
	}
	if t.UserID == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.RawContent == "" {
		return errors.New("raw content cannot be empty")
	}
	if !t.Bucket.Valid() {
		return ErrInvalidBucket
	}
	if t.Confidence < 0.0 || t.Confidence > 1.0 {
		return errors.New("confidence must be between 0.0 and 1.0")
	}
	return nil
}

// Complete marks the task done and stamps the completion time.
func (t *Task) Complete() {
	now := time.Now()
	t.Completed = true
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// keywordStopwords are common words excluded from keyword extraction.
var keywordStopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "need": {},
	"about": {}, "some": {}, "then": {}, "them": {}, "they": {}, "will": {},
	"would": {}, "should": {}, "could": {}, "there": {}, "their": {},
	"when": {}, "what": {}, "into": {}, "more": {}, "also": {}, "just": {},
}

// ExtractKeywords returns the lowercased distinct words of text longer
// than three characters, minus stopwords, in order of first appearance.
func ExtractKeywords(text string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) <= 3 {
			continue
		}
		if _, stop := keywordStopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}
