// Package domino analyzes which open tasks a given task would unlock or
// pull along. Relationships are detected by an ordered first-match-wins
// rule chain and the report is memoized per (task id, calendar day).
// Analysis never returns an error: failures degrade to an empty report
// with a failure reasoning entry.
package domino

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/cluster"
	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/task"
)

// Relationship classifies how a task connects to the primary task.
// The declaration order is the sort order of the report.
type Relationship int

const (
	RelationBlocker Relationship = iota
	RelationPrerequisite
	RelationRelated
	RelationCluster
)

func (r Relationship) String() string {
	switch r {
	case RelationBlocker:
		return "blocker"
	case RelationPrerequisite:
		return "prerequisite"
	case RelationRelated:
		return "related"
	case RelationCluster:
		return "cluster"
	default:
		return "unknown"
	}
}

// MarshalJSON emits the relationship name.
func (r Relationship) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON parses a relationship name.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "blocker":
		*r = RelationBlocker
	case "prerequisite":
		*r = RelationPrerequisite
	case "related":
		*r = RelationRelated
	case "cluster":
		*r = RelationCluster
	default:
		return fmt.Errorf("unknown relationship: %s", data)
	}
	return nil
}

// Effect is one task pulled along by the primary.
type Effect struct {
	TaskID       string       `json:"task_id"`
	Title        string       `json:"title"`
	Relationship Relationship `json:"relationship"`
	Confidence   float64      `json:"confidence"`
	Reasoning    string       `json:"reasoning"`
}

// Report is the analysis for one primary task.
type Report struct {
	TaskID  string   `json:"task_id"`
	Effects []Effect `json:"effects"`

	// Summary is the one-line rollup: empty for zero effects, singular
	// for one, plural otherwise.
	Summary string `json:"summary,omitempty"`

	// Reasoning holds report-level notes, including the stands-alone and
	// failure entries.
	Reasoning []string `json:"reasoning,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Config holds the analyzer's rule tables.
type Config struct {
	// SequencingWords mark a candidate as waiting on something.
	SequencingWords []string

	// PrerequisiteVerbs maps a primary-task verb to the follow-up verbs
	// it enables.
	PrerequisiteVerbs map[string][]string

	// KeywordThreshold is the minimum Jaccard similarity for a keyword
	// relation.
	KeywordThreshold float64
}

// DefaultConfig returns the built-in rule tables.
func DefaultConfig() Config {
	return Config{
		SequencingWords: []string{"after", "once", "when", "following", "depends on"},
		PrerequisiteVerbs: map[string][]string{
			"setup":    {"configure", "use", "deploy", "test"},
			"create":   {"edit", "review", "share", "publish"},
			"design":   {"build", "implement", "develop"},
			"research": {"decide", "choose", "buy", "write"},
			"write":    {"edit", "review", "publish", "send"},
			"draft":    {"review", "edit", "finalize", "send"},
			"plan":     {"execute", "start", "schedule", "book"},
		},
		KeywordThreshold: 0.4,
	}
}

// Analyzer computes domino reports.
type Analyzer struct {
	store    task.Store
	clusters *cluster.Engine
	cache    *daycache.Cache[Report]
	cfg      Config
	logger   *logging.Logger
	now      func() time.Time
}

// NewAnalyzer wires the analyzer to its store and caches.
func NewAnalyzer(store task.Store, clusters *cluster.Engine, cache *daycache.Cache[Report],
	cfg Config, logger *logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		store:    store,
		clusters: clusters,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze returns the domino report for the task. Same-day calls hit the
// cache; any failure degrades to an empty report with a failure entry.
func (a *Analyzer) Analyze(ctx context.Context, userID, taskID string) Report {
	now := a.now()

	if userID == "" {
		return Report{
			TaskID:      taskID,
			Reasoning:   []string{"no authenticated user; nothing to analyze"},
			GeneratedAt: now,
		}
	}

	key := daycache.DayKey(taskID, now)
	if cached, ok := a.cache.Get(key); ok {
		return cached
	}

	report, err := a.analyze(ctx, userID, taskID, now)
	if err != nil {
		a.logger.Warn(ctx, "domino analysis degraded",
			zap.String("task_id", taskID), zap.Error(err))
		return Report{
			TaskID:      taskID,
			Reasoning:   []string{fmt.Sprintf("analysis unavailable: %v", err)},
			GeneratedAt: now,
		}
	}

	a.cache.Set(key, report)
	return report
}

// Invalidate drops the task's cached reports.
func (a *Analyzer) Invalidate(taskID string) {
	a.cache.DeletePrefix(taskID + "|")
}

func (a *Analyzer) analyze(ctx context.Context, userID, taskID string, now time.Time) (Report, error) {
	primary, err := a.store.Get(ctx, taskID)
	if err != nil {
		return Report{}, fmt.Errorf("fetch primary task: %w", err)
	}

	open, err := a.store.ListOpen(ctx, userID, task.ListFilter{})
	if err != nil {
		return Report{}, fmt.Errorf("list open tasks: %w", err)
	}

	clusters, err := a.clusters.ForUser(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("load clusters: %w", err)
	}

	report := Report{TaskID: taskID, GeneratedAt: now}
	seen := make(map[string]struct{})
	for _, other := range open {
		if other.ID == primary.ID {
			continue
		}
		if _, dup := seen[other.ID]; dup {
			continue
		}
		if effect, ok := a.relate(primary, other, clusters); ok {
			seen[other.ID] = struct{}{}
			report.Effects = append(report.Effects, effect)
		}
	}

	sort.SliceStable(report.Effects, func(i, j int) bool {
		if report.Effects[i].Relationship != report.Effects[j].Relationship {
			return report.Effects[i].Relationship < report.Effects[j].Relationship
		}
		return report.Effects[i].Confidence > report.Effects[j].Confidence
	})

	report.Summary = summarize(primary.Title, len(report.Effects))
	if len(report.Effects) == 0 {
		report.Reasoning = append(report.Reasoning, "this task stands alone; completing it unlocks nothing else")
	}
	return report, nil
}

// relate applies the relationship rule chain, first match wins.
func (a *Analyzer) relate(primary, other *task.Task, clusters cluster.Set) (Effect, bool) {
	primaryLower := strings.ToLower(primary.Title)
	otherLower := strings.ToLower(other.Title)

	// 1. Blocker: the other task waits on something and shares a word
	// with the primary.
	for _, seq := range a.cfg.SequencingWords {
		if strings.Contains(otherLower, seq) && sharesWord(primaryLower, otherLower, 3) {
			return Effect{
				TaskID:       other.ID,
				Title:        other.Title,
				Relationship: RelationBlocker,
				Confidence:   0.9,
				Reasoning:    fmt.Sprintf("%q appears to be waiting on %q", other.Title, primary.Title),
			}, true
		}
	}

	// 2. Prerequisite: the primary's verb enables the other task's verb
	// and the titles share a subject.
	if followups, ok := a.cfg.PrerequisiteVerbs[firstWord(primaryLower)]; ok {
		for _, verb := range followups {
			if containsWord(otherLower, verb) && sharesWord(primaryLower, otherLower, 3) {
				return Effect{
					TaskID:       other.ID,
					Title:        other.Title,
					Relationship: RelationPrerequisite,
					Confidence:   0.8,
					Reasoning:    fmt.Sprintf("finishing %q lets you %s", primary.Title, verb),
				}, true
			}
		}
	}

	// 3. Related by keyword overlap.
	if sim := Jaccard(primary.Keywords, other.Keywords); sim > a.cfg.KeywordThreshold {
		return Effect{
			TaskID:       other.ID,
			Title:        other.Title,
			Relationship: RelationRelated,
			Confidence:   sim,
			Reasoning:    fmt.Sprintf("shares most of its topic with %q", primary.Title),
		}, true
	}

	// 4. Related by category.
	if primary.Category != "" && strings.EqualFold(primary.Category, other.Category) {
		return Effect{
			TaskID:       other.ID,
			Title:        other.Title,
			Relationship: RelationRelated,
			Confidence:   0.5,
			Reasoning:    fmt.Sprintf("both are %s tasks", primary.Category),
		}, true
	}

	// 5. Same cached cluster.
	if clusters.Contains(primary.ID, other.ID) {
		return Effect{
			TaskID:       other.ID,
			Title:        other.Title,
			Relationship: RelationCluster,
			Confidence:   0.4,
			Reasoning:    "grouped in the same task cluster today",
		}, true
	}

	return Effect{}, false
}

// Jaccard computes the Jaccard similarity of two keyword sets,
// case-insensitively. Empty sets have zero similarity.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[strings.ToLower(w)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[strings.ToLower(w)] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// summarize builds the one-line rollup.
func summarize(title string, n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Completing %q unlocks 1 other task.", title)
	default:
		return fmt.Sprintf("Completing %q unlocks %d other tasks.", title, n)
	}
}

// sharesWord reports whether the two lowercased titles share a word
// longer than minLen characters.
func sharesWord(a, b string, minLen int) bool {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		w = strings.Trim(w, ".,!?;:()[]\"'")
		if len(w) > minLen {
			words[w] = struct{}{}
		}
	}
	for _, w := range strings.Fields(b) {
		w = strings.Trim(w, ".,!?;:()[]\"'")
		if len(w) <= minLen {
			continue
		}
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

// containsWord reports whether the lowercased text contains the word as a
// whole token.
func containsWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if strings.Trim(w, ".,!?;:()[]\"'") == word {
			return true
		}
	}
	return false
}

func firstWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,!?;:()[]\"'")
}
