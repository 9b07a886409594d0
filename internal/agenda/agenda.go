// Package agenda routes scored task candidates into scheduling buckets.
// Every candidate lands in exactly one of the five buckets; the today
// bucket is capacity-limited except for declared-focus carve-outs and
// fiesta-ready admissions.
package agenda

import (
	"time"

	"github.com/solacelabs/solaced/internal/scoring"
	"github.com/solacelabs/solaced/internal/task"
)

// Item is one routable candidate.
type Item struct {
	Score    scoring.Score
	Focus    bool
	DueAt    *time.Time
	RemindAt *time.Time
}

// Result is the router's output for one batch.
type Result struct {
	// Buckets holds the assigned bucket per input index.
	Buckets []task.Bucket

	// TodayOrder lists input indices assigned to today in final order:
	// declared-focus carve-outs first in original order, then the rest
	// in assignment order.
	TodayOrder []int
}

// Router assigns buckets under a configurable today capacity.
type Router struct {
	capacity int
	now      func() time.Time
}

// NewRouter creates a router. A non-positive capacity defaults to 5.
func NewRouter(capacity int) *Router {
	if capacity <= 0 {
		capacity = 5
	}
	return &Router{capacity: capacity, now: time.Now}
}

// Route assigns every item a bucket. existingToday is the number of open
// tasks already scheduled today, counted against the capacity.
func (r *Router) Route(items []Item, existingToday int) Result {
	res := Result{Buckets: make([]task.Bucket, len(items))}
	now := r.now()
	todayCount := existingToday

	// Declared-focus tasks head today unconditionally and never count
	// against capacity.
	for i, it := range items {
		if it.Focus {
			res.Buckets[i] = task.BucketToday
			res.TodayOrder = append(res.TodayOrder, i)
		}
	}

	admitToday := func(i int, fiesta bool) task.Bucket {
		if todayCount < r.capacity || fiesta {
			todayCount++
			res.TodayOrder = append(res.TodayOrder, i)
			return task.BucketToday
		}
		return task.BucketTomorrow
	}

	for i, it := range items {
		if it.Focus {
			continue
		}

		switch {
		case it.DueAt != nil:
			res.Buckets[i] = r.routeByDate(*it.DueAt, now, i, it, admitToday)
		case it.RemindAt != nil:
			res.Buckets[i] = r.routeByDate(*it.RemindAt, now, i, it, admitToday)
		default:
			res.Buckets[i] = r.routeByMatrix(i, it, admitToday)
		}
	}

	return res
}

// routeByDate places a task by its calendar date. Past or same-day dates
// compete for today; future dates go to their calendar bucket directly.
func (r *Router) routeByDate(at, now time.Time, i int, it Item, admit func(int, bool) task.Bucket) task.Bucket {
	bucket := calendarBucket(at, now)
	if bucket == task.BucketToday {
		return admit(i, it.Score.FiestaReady)
	}
	return bucket
}

// routeByMatrix places a task with neither deadline nor reminder by its
// (priority, big, fiesta) combination.
func (r *Router) routeByMatrix(i int, it Item, admit func(int, bool) task.Bucket) task.Bucket {
	s := it.Score
	switch s.Priority {
	case scoring.PriorityMust:
		if s.BigTask {
			return task.BucketThisWeek
		}
		return admit(i, s.FiestaReady)
	case scoring.PriorityShould:
		if s.BigTask {
			return task.BucketThisWeek
		}
		if s.FiestaReady {
			return admit(i, true)
		}
		return task.BucketTomorrow
	default: // could
		if s.BigTask {
			return task.BucketUpcoming
		}
		return task.BucketSomeday
	}
}

// calendarBucket maps a timestamp to its scheduling horizon relative to
// now. Past dates count as today.
func calendarBucket(at, now time.Time) task.Bucket {
	ny, nm, nd := now.Date()
	startOfToday := time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())

	days := int(at.Sub(startOfToday).Hours() / 24)
	switch {
	case at.Before(startOfToday) || days == 0:
		return task.BucketToday
	case days == 1:
		return task.BucketTomorrow
	case days <= 7:
		return task.BucketThisWeek
	case days <= 30:
		return task.BucketUpcoming
	default:
		return task.BucketSomeday
	}
}
