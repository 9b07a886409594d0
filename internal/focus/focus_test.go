package focus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacelabs/solaced/internal/cluster"
	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/task"
)

// A Wednesday mid-month, so no seasonal pattern fires by default.
var focusNow = time.Date(2026, 9, 16, 9, 0, 0, 0, time.UTC)

func newTestPredictor(store *task.MemStore, cfg Config) *Predictor {
	engine := cluster.NewEngine(store, daycache.New[cluster.Set](time.Hour, 16), 5)
	p := NewPredictor(store, store, store.Profiles(), engine,
		daycache.New[Result](time.Hour, 16), cfg, logging.NewNop())
	p.now = func() time.Time { return focusNow }
	return p
}

func insertTask(t *testing.T, store *task.MemStore, userID, title string, mutate func(*task.Task)) *task.Task {
	t.Helper()
	tk, err := task.New(userID, title, title)
	require.NoError(t, err)
	if mutate != nil {
		mutate(tk)
	}
	require.NoError(t, store.Insert(context.Background(), tk))
	return tk
}

func TestPredict_NoUser(t *testing.T) {
	p := newTestPredictor(task.NewMemStore(), DefaultConfig())

	res := p.Predict(context.Background(), "")
	assert.Empty(t, res.Predictions)
	require.Len(t, res.Reasoning, 1)
	assert.Contains(t, res.Reasoning[0], "no authenticated user")
}

func TestPredict_NoOpenTasks(t *testing.T) {
	p := newTestPredictor(task.NewMemStore(), DefaultConfig())

	res := p.Predict(context.Background(), "u1")
	assert.Empty(t, res.Predictions)
	assert.Contains(t, res.Reasoning, "no open tasks")
}

func TestPredict_OverdueReminderLeads(t *testing.T) {
	store := task.NewMemStore()
	yesterday := focusNow.AddDate(0, 0, -1)
	overdue := insertTask(t, store, "u1", "Renew car insurance", func(tk *task.Task) {
		tk.RemindAt = &yesterday
	})
	insertTask(t, store, "u1", "Water the plants", nil)

	p := newTestPredictor(store, DefaultConfig())
	res := p.Predict(context.Background(), "u1")

	require.NotEmpty(t, res.Predictions)
	top := res.Predictions[0]
	assert.Equal(t, overdue.ID, top.TaskID)
	assert.Contains(t, top.Reasoning, "reminder is overdue")
	assert.Contains(t, top.Reasoning, "time-based task")
	assert.Equal(t, top.Score/100, top.Confidence)
}

func TestPredict_ScoreBounds(t *testing.T) {
	store := task.NewMemStore()
	today := focusNow.Add(2 * time.Hour)
	yesterday := focusNow.AddDate(0, 0, -1)
	insertTask(t, store, "u1", "Finish deck", func(tk *task.Task) {
		tk.Category = "urgent"
		tk.DueAt = &today
		tk.RemindAt = &yesterday
	})
	// Persona boosts push the raw sum well past the nominal ceiling.
	store.PutProfile(&task.Profile{
		UserID:          "u1",
		CategoryWeights: map[string]float64{"urgent": 1},
		Persona: task.Persona{
			Preferences: map[string]float64{"urgent": 1},
			Ambition:    0.1,
		},
	})

	p := newTestPredictor(store, DefaultConfig())
	res := p.Predict(context.Background(), "u1")

	require.NotEmpty(t, res.Predictions)
	for _, pred := range res.Predictions {
		assert.GreaterOrEqual(t, pred.Score, 0.0)
		assert.LessOrEqual(t, pred.Score, 100.0)
	}
}

func TestPredict_LowScoresExcluded(t *testing.T) {
	store := task.NewMemStore()
	insertTask(t, store, "u1", "Someday reorganize the garage shelving and storage system bins", func(tk *task.Task) {
		tk.Category = "chores"
	})
	store.PutProfile(&task.Profile{
		UserID: "u1",
		Persona: task.Persona{
			Avoidances: map[string]float64{"chores": 1},
			Ambition:   1,
		},
	})

	cfg := DefaultConfig()
	cfg.MinScore = 20
	p := newTestPredictor(store, cfg)
	res := p.Predict(context.Background(), "u1")

	for _, pred := range res.Predictions {
		assert.Greater(t, pred.Score, 20.0)
	}
}

func TestPredict_UpcomingDueDateConsidered(t *testing.T) {
	store := task.NewMemStore()
	// Due in two days, no other signal: still a candidate.
	due := focusNow.Add(48 * time.Hour)
	upcoming := insertTask(t, store, "u1", "Renew passport", func(tk *task.Task) {
		tk.DueAt = &due
	})

	p := newTestPredictor(store, DefaultConfig())
	res := p.Predict(context.Background(), "u1")

	require.Len(t, res.Predictions, 1)
	assert.Equal(t, upcoming.ID, res.Predictions[0].TaskID)
	assert.Contains(t, res.Predictions[0].Reasoning, "time-based task")
}

func TestPredict_SameDayCached(t *testing.T) {
	store := task.NewMemStore()
	due := focusNow.Add(time.Hour)
	insertTask(t, store, "u1", "Submit expense report", func(tk *task.Task) {
		tk.DueAt = &due
	})

	p := newTestPredictor(store, DefaultConfig())
	first := p.Predict(context.Background(), "u1")
	require.NotEmpty(t, first.Predictions)

	// New tasks do not change the cached result within the day.
	insertTask(t, store, "u1", "Another due thing", func(tk *task.Task) {
		tk.DueAt = &due
	})
	second := p.Predict(context.Background(), "u1")
	assert.Equal(t, first, second)

	p.Invalidate("u1")
	third := p.Predict(context.Background(), "u1")
	assert.Len(t, third.Predictions, 2)
}

func TestPredict_CandidateCap(t *testing.T) {
	store := task.NewMemStore()
	due := focusNow.Add(time.Hour)
	for i := 0; i < 10; i++ {
		insertTask(t, store, "u1", fmt.Sprintf("Deliverable number %d", i), func(tk *task.Task) {
			tk.DueAt = &due
		})
	}

	p := newTestPredictor(store, DefaultConfig())
	res := p.Predict(context.Background(), "u1")
	assert.LessOrEqual(t, len(res.Predictions), 7)
}

func TestPredict_HabitSignal(t *testing.T) {
	store := task.NewMemStore()
	// Completed yesterday relative to the predictor's pinned clock, so it
	// falls inside the trailing 7-day history window.
	doneAt := focusNow.AddDate(0, 0, -1)
	completed := insertTask(t, store, "u1", "Morning workout routine", func(tk *task.Task) {
		tk.Category = "health"
		tk.Completed = true
		tk.CompletedAt = &doneAt
	})
	got, err := store.Get(context.Background(), completed.ID)
	require.NoError(t, err)
	require.True(t, got.Completed)

	match := insertTask(t, store, "u1", "Evening workout session", nil)

	p := newTestPredictor(store, DefaultConfig())
	res := p.Predict(context.Background(), "u1")

	var found *Prediction
	for i := range res.Predictions {
		if res.Predictions[i].TaskID == match.ID {
			found = &res.Predictions[i]
		}
	}
	require.NotNil(t, found)
	assert.Contains(t, found.Reasoning, "similar to tasks you completed this week")
}

func TestPredict_DegradesOnStoreFailure(t *testing.T) {
	store := task.NewMemStore()
	engine := cluster.NewEngine(store, daycache.New[cluster.Set](time.Hour, 16), 5)
	failing := &failingStore{}
	p := NewPredictor(failing, store, store.Profiles(), engine,
		daycache.New[Result](time.Hour, 16), DefaultConfig(), logging.NewNop())
	p.now = func() time.Time { return focusNow }

	res := p.Predict(context.Background(), "u1")
	assert.Empty(t, res.Predictions)
	require.Len(t, res.Reasoning, 1)
	assert.Contains(t, res.Reasoning[0], "prediction unavailable")
}

func TestPredict_SeasonalMondayReset(t *testing.T) {
	store := task.NewMemStore()
	due := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC) // a Monday
	insertTask(t, store, "u1", "Weekly planning session", func(tk *task.Task) {
		tk.DueAt = &due
	})

	p := newTestPredictor(store, DefaultConfig())
	p.now = func() time.Time { return time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC) }

	res := p.Predict(context.Background(), "u1")
	require.NotEmpty(t, res.Predictions)
	assert.Contains(t, res.Predictions[0].Reasoning, "fits a monday reset rhythm")
}

func TestCommitFocus(t *testing.T) {
	store := task.NewMemStore()
	due := focusNow.Add(time.Hour)
	tk := insertTask(t, store, "u1", "Ship the release", func(tk *task.Task) {
		tk.DueAt = &due
	})

	p := newTestPredictor(store, DefaultConfig())
	first := p.Predict(context.Background(), "u1")
	require.NotEmpty(t, first.Predictions)

	require.NoError(t, p.CommitFocus(context.Background(), "u1", tk.ID))

	got, err := store.Get(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFocus)

	// Cache was invalidated; the recomputed result sees the focus flag.
	second := p.Predict(context.Background(), "u1")
	assert.Contains(t, second.Predictions[0].Reasoning, "marked urgent or primary focus")
}

func TestTextuallySimilar(t *testing.T) {
	assert.True(t, textuallySimilar("Write report", "write report for finance"))
	assert.True(t, textuallySimilar("write report for finance", "Write report"))
	assert.False(t, textuallySimilar("Write report", "Buy milk"))
	assert.False(t, textuallySimilar("", "anything"))
}

// failingStore errors on every call.
type failingStore struct{}

func (f *failingStore) ListOpen(ctx context.Context, userID string, fl task.ListFilter) ([]*task.Task, error) {
	return nil, fmt.Errorf("store offline")
}

func (f *failingStore) Get(ctx context.Context, id string) (*task.Task, error) {
	return nil, fmt.Errorf("store offline")
}

func (f *failingStore) Insert(ctx context.Context, t *task.Task) error {
	return fmt.Errorf("store offline")
}

func (f *failingStore) Update(ctx context.Context, t *task.Task) error {
	return fmt.Errorf("store offline")
}

func (f *failingStore) SetFocus(ctx context.Context, id string, focusDate time.Time) error {
	return fmt.Errorf("store offline")
}
