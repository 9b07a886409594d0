// Package cluster groups a user's open tasks into named keyword clusters.
// Clusters feed the focus predictor and the domino analyzer; they are
// recomputed on demand, memoized per (user, calendar day) and refreshed
// in the background on an interval.
package cluster

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/task"
)

// Cluster is one named group of task ids.
type Cluster struct {
	// Label is the shared keyword that formed the group.
	Label string

	// TaskIDs are the member tasks.
	TaskIDs []string
}

// Set is a user's clusters for one day.
type Set struct {
	Clusters   []Cluster
	ComputedAt time.Time
}

// Contains reports whether both task ids share at least one cluster.
func (s Set) Contains(a, b string) bool {
	for _, c := range s.Clusters {
		var hasA, hasB bool
		for _, id := range c.TaskIDs {
			if id == a {
				hasA = true
			}
			if id == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// LabelsFor returns the labels of every cluster containing the task id.
func (s Set) LabelsFor(id string) []string {
	var labels []string
	for _, c := range s.Clusters {
		for _, member := range c.TaskIDs {
			if member == id {
				labels = append(labels, c.Label)
				break
			}
		}
	}
	return labels
}

// Labels returns all cluster labels.
func (s Set) Labels() []string {
	labels := make([]string, 0, len(s.Clusters))
	for _, c := range s.Clusters {
		labels = append(labels, c.Label)
	}
	return labels
}

// Engine computes and caches clusters.
type Engine struct {
	store task.Store
	cache *daycache.Cache[Set]

	// minKeywordLen is the minimum keyword length for grouping.
	minKeywordLen int

	now func() time.Time
}

// NewEngine creates a cluster engine over the task store. A non-positive
// minKeywordLen defaults to 5.
func NewEngine(store task.Store, cache *daycache.Cache[Set], minKeywordLen int) *Engine {
	if minKeywordLen <= 0 {
		minKeywordLen = 5
	}
	return &Engine{
		store:         store,
		cache:         cache,
		minKeywordLen: minKeywordLen,
		now:           time.Now,
	}
}

// ForUser returns the user's clusters for today, computing and caching
// them on a miss.
func (e *Engine) ForUser(ctx context.Context, userID string) (Set, error) {
	key := daycache.DayKey(userID, e.now())
	if set, ok := e.cache.Get(key); ok {
		return set, nil
	}

	set, err := e.compute(ctx, userID)
	if err != nil {
		return Set{}, err
	}
	e.cache.Set(key, set)
	return set, nil
}

// Invalidate drops the user's cached clusters for every day.
func (e *Engine) Invalidate(userID string) {
	e.cache.DeletePrefix(userID + "|")
}

// compute groups open tasks by shared title keywords. A keyword of at
// least minKeywordLen characters appearing in two or more task titles
// forms a cluster labeled by that keyword.
func (e *Engine) compute(ctx context.Context, userID string) (Set, error) {
	tasks, err := e.store.ListOpen(ctx, userID, task.ListFilter{})
	if err != nil {
		return Set{}, err
	}

	byKeyword := make(map[string][]string)
	for _, t := range tasks {
		seen := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(t.Title)) {
			w = strings.Trim(w, ".,!?;:()[]\"'")
			if len(w) < e.minKeywordLen {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			byKeyword[w] = append(byKeyword[w], t.ID)
		}
	}

	set := Set{ComputedAt: e.now()}
	for kw, ids := range byKeyword {
		if len(ids) < 2 {
			continue
		}
		set.Clusters = append(set.Clusters, Cluster{Label: kw, TaskIDs: ids})
	}
	sort.Slice(set.Clusters, func(i, j int) bool {
		if len(set.Clusters[i].TaskIDs) != len(set.Clusters[j].TaskIDs) {
			return len(set.Clusters[i].TaskIDs) > len(set.Clusters[j].TaskIDs)
		}
		return set.Clusters[i].Label < set.Clusters[j].Label
	})
	return set, nil
}
