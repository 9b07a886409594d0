package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/task"
)

func seedTasks(t *testing.T, store *task.MemStore, userID string, titles ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		tk, err := task.New(userID, title, title)
		require.NoError(t, err)
		require.NoError(t, store.Insert(context.Background(), tk))
		ids = append(ids, tk.ID)
	}
	return ids
}

func TestEngine_ForUser(t *testing.T) {
	store := task.NewMemStore()
	ids := seedTasks(t, store, "u1",
		"Design website landing page",
		"Write website copy",
		"Buy groceries",
	)

	e := NewEngine(store, daycache.New[Set](time.Hour, 10), 5)
	set, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, set.Clusters, 1)
	assert.Equal(t, "website", set.Clusters[0].Label)
	assert.ElementsMatch(t, []string{ids[0], ids[1]}, set.Clusters[0].TaskIDs)

	assert.True(t, set.Contains(ids[0], ids[1]))
	assert.False(t, set.Contains(ids[0], ids[2]))
	assert.Equal(t, []string{"website"}, set.LabelsFor(ids[0]))
	assert.Empty(t, set.LabelsFor(ids[2]))
}

func TestEngine_CachesPerDay(t *testing.T) {
	store := task.NewMemStore()
	seedTasks(t, store, "u1", "Plan garden layout", "Water garden beds")

	e := NewEngine(store, daycache.New[Set](time.Hour, 10), 5)
	first, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)

	// New tasks do not appear until invalidation.
	seedTasks(t, store, "u1", "Order garden soil")
	second, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ComputedAt, second.ComputedAt)
	assert.Len(t, second.Clusters[0].TaskIDs, 2)

	e.Invalidate("u1")
	third, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, third.Clusters[0].TaskIDs, 3)
}

func TestEngine_ShortWordsIgnored(t *testing.T) {
	store := task.NewMemStore()
	// "tax" is under the length floor, "return" clears it.
	seedTasks(t, store, "u1", "File tax return", "Check tax return status")

	e := NewEngine(store, daycache.New[Set](time.Hour, 10), 5)
	set, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, set.Clusters, 1)
	assert.Equal(t, "return", set.Clusters[0].Label)
}

func TestEngine_NoTasksNoClusters(t *testing.T) {
	e := NewEngine(task.NewMemStore(), daycache.New[Set](time.Hour, 10), 5)
	set, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, set.Clusters)
	assert.Empty(t, set.Labels())
}

func TestScheduler_StartStop(t *testing.T) {
	e := NewEngine(task.NewMemStore(), daycache.New[Set](time.Hour, 10), 5)
	s, err := NewScheduler(e, logging.NewNop(), WithInterval(time.Hour), WithUserIDs([]string{"u1"}))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	// Restart after stop works.
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestScheduler_RefreshRecomputes(t *testing.T) {
	store := task.NewMemStore()
	seedTasks(t, store, "u1", "Paint fence panels", "Sand fence panels")

	e := NewEngine(store, daycache.New[Set](time.Hour, 10), 5)
	_, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)

	seedTasks(t, store, "u1", "Stain fence gate")

	s, err := NewScheduler(e, logging.NewNop(), WithUserIDs([]string{"u1"}))
	require.NoError(t, err)
	s.refresh()

	set, err := e.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.NotEmpty(t, set.Clusters)
	assert.Len(t, set.Clusters[0].TaskIDs, 3)
}
