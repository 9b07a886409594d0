package focus

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/cluster"
	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/task"
)

// rawCeiling is the nominal raw score ceiling used for normalization.
// Persona boosts can push the raw sum past it; normalization clamps.
const rawCeiling = 110.0

// candidate carries one task and its accumulated union signals.
type candidate struct {
	task        *task.Task
	unionScore  int
	overdue     bool
	dueToday    bool
	highPrio    bool
	habitual    bool
	clustered   bool
	habitReason string
}

// Predictor generates daily focus predictions.
type Predictor struct {
	store    task.Store
	history  task.HistoryStore
	profiles task.ProfileStore
	clusters *cluster.Engine
	cache    *daycache.Cache[Result]
	cfg      Config
	logger   *logging.Logger
	now      func() time.Time
}

// NewPredictor wires the predictor to its stores and caches.
func NewPredictor(store task.Store, history task.HistoryStore, profiles task.ProfileStore,
	clusters *cluster.Engine, cache *daycache.Cache[Result], cfg Config, logger *logging.Logger) *Predictor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Predictor{
		store:    store,
		history:  history,
		profiles: profiles,
		clusters: clusters,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Predict returns the user's focus predictions for today. Same-day calls
// hit the cache; any failure degrades to an empty result with a failure
// reasoning entry.
func (p *Predictor) Predict(ctx context.Context, userID string) Result {
	now := p.now()

	if userID == "" {
		p.logger.Debug(ctx, "focus prediction without user, returning empty")
		return Result{
			Reasoning:   []string{"no authenticated user; nothing to predict"},
			GeneratedAt: now,
		}
	}

	key := daycache.DayKey(userID, now)
	if cached, ok := p.cache.Get(key); ok {
		return cached
	}

	result, err := p.predict(ctx, userID, now)
	if err != nil {
		p.logger.Warn(ctx, "focus prediction degraded",
			zap.String("user_id", userID), zap.Error(err))
		return Result{
			Reasoning:   []string{fmt.Sprintf("prediction unavailable: %v", err)},
			GeneratedAt: now,
		}
	}

	p.cache.Set(key, result)
	return result
}

// Invalidate drops the user's cached predictions so the next Predict
// recomputes.
func (p *Predictor) Invalidate(userID string) {
	p.cache.DeletePrefix(userID + "|")
}

// CommitFocus flags the task as today's primary focus, the analyzers'
// single permitted store mutation, and invalidates the day cache.
func (p *Predictor) CommitFocus(ctx context.Context, userID, taskID string) error {
	if err := p.store.SetFocus(ctx, taskID, p.now()); err != nil {
		return fmt.Errorf("set focus: %w", err)
	}
	p.Invalidate(userID)
	return nil
}

func (p *Predictor) predict(ctx context.Context, userID string, now time.Time) (Result, error) {
	open, err := p.store.ListOpen(ctx, userID, task.ListFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("list open tasks: %w", err)
	}
	if len(open) == 0 {
		return Result{
			Reasoning:   []string{"no open tasks"},
			GeneratedAt: now,
		}, nil
	}

	completed, err := p.history.CompletedSince(ctx, userID, now.AddDate(0, 0, -7))
	if err != nil {
		return Result{}, fmt.Errorf("load completion history: %w", err)
	}

	profile, err := p.profiles.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load profile: %w", err)
	}

	clusters, err := p.clusters.ForUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load clusters: %w", err)
	}

	candidates := p.gatherCandidates(open, completed, clusters, now)
	if len(candidates) == 0 {
		return Result{
			Reasoning:   []string{"no focus candidates today"},
			GeneratedAt: now,
		}, nil
	}

	var predictions []Prediction
	for _, c := range candidates {
		pred := p.score(c, completed, profile, clusters, now)
		if pred.Score <= p.cfg.MinScore {
			continue
		}
		predictions = append(predictions, pred)
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Score > predictions[j].Score
	})

	return Result{Predictions: predictions, GeneratedAt: now}, nil
}

// gatherCandidates unions the signal sources, deduplicates by id and caps
// the set to the top MaxCandidates by union weight.
func (p *Predictor) gatherCandidates(open, completed []*task.Task, clusters cluster.Set, now time.Time) []*candidate {
	byID := make(map[string]*candidate)
	get := func(t *task.Task) *candidate {
		if c, ok := byID[t.ID]; ok {
			return c
		}
		c := &candidate{task: t}
		byID[t.ID] = c
		return c
	}

	habitTitles := make(map[string]struct{})
	habitCategories := make(map[string]struct{})
	for _, t := range completed {
		for _, kw := range t.Keywords {
			habitTitles[kw] = struct{}{}
		}
		if t.Category != "" {
			habitCategories[strings.ToLower(t.Category)] = struct{}{}
		}
	}

	lastFocus := lastFocusTask(open, now)

	for _, t := range open {
		if t.RemindAt != nil && t.RemindAt.Before(now) {
			c := get(t)
			c.overdue = true
			c.unionScore += p.cfg.OverdueWeight
		}
		if t.DueAt != nil && sameDay(*t.DueAt, now) {
			c := get(t)
			c.dueToday = true
			c.unionScore += p.cfg.DueTodayWeight
		}
		// Urgent, primary-focus and time-based tasks share one source:
		// carrying any due or remind date is itself a signal.
		if hp := isHighPriority(t); hp || t.DueAt != nil || t.RemindAt != nil {
			c := get(t)
			c.highPrio = hp
			c.unionScore += p.cfg.PriorityWeight
		}
		if reason, ok := habitMatch(t, habitTitles, habitCategories); ok {
			c := get(t)
			c.habitual = true
			c.habitReason = reason
			c.unionScore += p.cfg.HabitualWeight
		}
		if keywordsIntersect(t.Keywords, clusters.Labels()) {
			c := get(t)
			c.clustered = true
			c.unionScore += p.cfg.ClusteredWeight
		}
		if lastFocus != nil && t.ID != lastFocus.ID && textuallySimilar(t.Title, lastFocus.Title) {
			c := get(t)
			c.unionScore += p.cfg.SimilarWeight
		}
	}

	out := make([]*candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].unionScore != out[j].unionScore {
			return out[i].unionScore > out[j].unionScore
		}
		return out[i].task.CreatedAt.Before(out[j].task.CreatedAt)
	})
	if len(out) > p.cfg.MaxCandidates {
		out = out[:p.cfg.MaxCandidates]
	}
	return out
}

// score computes one candidate's normalized prediction with its
// incrementally built reasoning trail.
func (p *Predictor) score(c *candidate, completed []*task.Task, profile *task.Profile,
	clusters cluster.Set, now time.Time) Prediction {
	t := c.task
	var raw float64
	var reasoning []string

	// Priority component, capped at 40.
	var prio float64
	if t.DueAt != nil || t.RemindAt != nil {
		prio += 15
		reasoning = append(reasoning, "time-based task")
	}
	switch {
	case c.overdue:
		prio += 25
		reasoning = append(reasoning, "reminder is overdue")
	case c.dueToday:
		prio += 20
		reasoning = append(reasoning, "due today")
	}
	if c.highPrio {
		prio += 15
		reasoning = append(reasoning, "marked urgent or primary focus")
	}
	if prio > 40 {
		prio = 40
	}
	raw += prio

	if c.habitual {
		raw += 25
		reasoning = append(reasoning, c.habitReason)
	}

	if c.clustered || len(clusters.LabelsFor(t.ID)) > 0 {
		raw += 20
		reasoning = append(reasoning, "part of an active task cluster")
	}

	// Preference: stored category weight scaled into 0-15.
	if t.Category != "" && profile != nil {
		if w, ok := profile.CategoryWeights[t.Category]; ok && w > 0 {
			pref := math.Min(w*15, 15)
			raw += pref
			reasoning = append(reasoning, fmt.Sprintf("matches your %s preference", t.Category))
		}
	}

	// Seasonal: each matching pattern's weight scaled by 100, band capped
	// at 10.
	var seasonal float64
	for _, pat := range p.cfg.SeasonalPatterns {
		if pat.Match(now) {
			seasonal += pat.Weight * 100
			reasoning = append(reasoning, fmt.Sprintf("fits a %s rhythm", pat.Name))
		}
	}
	if seasonal > 10 {
		seasonal = 10
	}
	raw += seasonal

	// Cognitive load: long titles read as heavier tasks.
	if len(strings.Fields(t.Title)) > 8 {
		raw += 5
		reasoning = append(reasoning, "substantial task, best tackled fresh")
	} else {
		raw += 10
		reasoning = append(reasoning, "manageable scope")
	}

	// Persona adjustment, additive and uncapped before normalization.
	if profile != nil {
		cat := strings.ToLower(t.Category)
		if w, ok := profile.Persona.Preferences[cat]; ok && w > 0 {
			raw += w * p.cfg.PreferenceBoost
			reasoning = append(reasoning, "in a domain you lean toward")
		}
		if w, ok := profile.Persona.Avoidances[cat]; ok && w > 0 {
			raw -= w * p.cfg.AvoidancePenalty
			reasoning = append(reasoning, "in a domain you tend to avoid")
		}
		ambitionMatch := 1 - math.Abs(profile.Persona.Ambition-math.Min(float64(len(t.Title))/200, 1))
		raw += ambitionMatch * p.cfg.AmbitionBoost
	}

	score := raw * 100 / rawCeiling
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Prediction{
		TaskID:     t.ID,
		Title:      t.Title,
		Score:      score,
		Confidence: score / 100,
		Reasoning:  reasoning,
	}
}

func isHighPriority(t *task.Task) bool {
	if t.IsFocus {
		return true
	}
	switch strings.ToLower(t.Category) {
	case "urgent", "primary_focus":
		return true
	}
	return strings.EqualFold(t.Priority, "must")
}

// habitMatch reports whether the task echoes the last week's completions
// by title keyword or category.
func habitMatch(t *task.Task, titles, categories map[string]struct{}) (string, bool) {
	for _, kw := range t.Keywords {
		if _, ok := titles[kw]; ok {
			return "similar to tasks you completed this week", true
		}
	}
	if t.Category != "" {
		if _, ok := categories[strings.ToLower(t.Category)]; ok {
			return fmt.Sprintf("you have been finishing %s tasks lately", t.Category), true
		}
	}
	return "", false
}

func keywordsIntersect(keywords, labels []string) bool {
	if len(keywords) == 0 || len(labels) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToLower(l)] = struct{}{}
	}
	for _, kw := range keywords {
		if _, ok := set[strings.ToLower(kw)]; ok {
			return true
		}
	}
	return false
}

// textuallySimilar is a case-insensitive bidirectional substring check.
func textuallySimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// lastFocusTask returns the open task with the most recent focus date
// before today.
func lastFocusTask(open []*task.Task, now time.Time) *task.Task {
	var last *task.Task
	for _, t := range open {
		if !t.IsFocus || t.FocusDate == nil {
			continue
		}
		if sameDay(*t.FocusDate, now) {
			continue
		}
		if last == nil || t.FocusDate.After(*last.FocusDate) {
			last = t
		}
	}
	return last
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
