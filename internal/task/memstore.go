package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store, HistoryStore and ProfileStore.
// It backs unit tests and local development without Postgres.
type MemStore struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	order    []string
	profiles map[string]*Profile
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tasks:    make(map[string]*Task),
		profiles: make(map[string]*Profile),
	}
}

// ListOpen returns uncompleted tasks matching the filter, insertion-ordered
// unless OrderBy says otherwise.
func (s *MemStore) ListOpen(ctx context.Context, userID string, f ListFilter) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, id := range s.order {
		t := s.tasks[id]
		if t.UserID != userID || t.Completed {
			continue
		}
		if f.Bucket != "" && t.Bucket != f.Bucket {
			continue
		}
		if f.DueBefore != nil && (t.DueAt == nil || !t.DueAt.Before(*f.DueBefore)) {
			continue
		}
		if f.RemindBefore != nil && (t.RemindAt == nil || !t.RemindAt.Before(*f.RemindBefore)) {
			continue
		}
		if len(f.Categories) > 0 && !containsString(f.Categories, t.Category) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}

	if f.OrderBy == "due_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].DueAt == nil {
				return false
			}
			if out[j].DueAt == nil {
				return true
			}
			return out[i].DueAt.Before(*out[j].DueAt)
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Get fetches a task by id.
func (s *MemStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// Insert persists a new task.
func (s *MemStore) Insert(ctx context.Context, t *Task) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.tasks[t.ID] = &cp
	s.order = append(s.order, t.ID)
	return nil
}

// Update rewrites a task's derived fields, preserving RawContent.
func (s *MemStore) Update(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}

	cp := *t
	cp.RawContent = existing.RawContent // immutable
	cp.UpdatedAt = time.Now()
	s.tasks[t.ID] = &cp
	return nil
}

// SetFocus flags a task as primary focus for the given day.
func (s *MemStore) SetFocus(ctx context.Context, id string, focusDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.IsFocus = true
	t.FocusDate = &focusDate
	t.UpdatedAt = time.Now()
	return nil
}

// CompletedSince returns tasks completed at or after since.
func (s *MemStore) CompletedSince(ctx context.Context, userID string, since time.Time) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, id := range s.order {
		t := s.tasks[id]
		if t.UserID != userID || !t.Completed || t.CompletedAt == nil {
			continue
		}
		if t.CompletedAt.Before(since) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// GetProfile implements ProfileStore.Get under a distinct name so MemStore
// can satisfy all three interfaces; use Profiles() for the ProfileStore view.
func (s *MemStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return &Profile{UserID: userID}, nil
	}
	cp := *p
	return &cp, nil
}

// PutProfile stores a profile for tests.
func (s *MemStore) PutProfile(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.UserID] = &cp
}

// Profiles returns the ProfileStore view of the store.
func (s *MemStore) Profiles() ProfileStore {
	return profileView{s}
}

type profileView struct{ s *MemStore }

func (v profileView) Get(ctx context.Context, userID string) (*Profile, error) {
	return v.s.GetProfile(ctx, userID)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
