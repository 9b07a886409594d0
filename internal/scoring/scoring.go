// Package scoring assigns priority and effort tiers to task candidates.
// Both scorers are ordered rule chains evaluated first-match-wins, with
// the keyword tables held as data so precedence and vocabulary can be
// tuned independently of the evaluation loop.
package scoring

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/inference"
)

// Priority is a task's priority tier.
type Priority string

const (
	PriorityMust   Priority = "must"
	PriorityShould Priority = "should"
	PriorityCould  Priority = "could"
)

// Effort is a task's effort tier.
type Effort string

const (
	EffortTiny   Effort = "tiny"
	EffortSmall  Effort = "small"
	EffortMedium Effort = "medium"
	EffortLarge  Effort = "large"
)

// Input is everything the scorer looks at for one candidate.
type Input struct {
	Text        string
	Focus       bool
	Sensitivity inference.Sensitivity
	Deadline    *time.Time
	Tone        capture.Tone
	InDecisions bool
	InFollowups bool
}

// Score is the scorer's verdict for one candidate.
type Score struct {
	Priority Priority
	Effort   Effort

	// FiestaReady marks a tiny-effort task suited to rapid batch completion.
	FiestaReady bool

	// BigTask marks a large-effort task.
	BigTask bool

	// Rule names the priority rule that fired, for the reasoning trail.
	Rule string
}

// priorityRule is one predicate in the ordered chain.
type priorityRule struct {
	name  string
	match func(s *Scorer, in Input, now time.Time) (Priority, bool)
}

// Config holds the scoring keyword tables.
type Config struct {
	// MustKeywords are explicit urgency markers.
	MustKeywords []string

	// ShouldKeywords and CouldKeywords are softer markers.
	ShouldKeywords []string
	CouldKeywords  []string

	// Effort indicator tables, consulted in tier order.
	TinyIndicators   []string
	SmallIndicators  []string
	MediumIndicators []string
	LargeIndicators  []string
}

// DefaultConfig returns the built-in scoring tables.
func DefaultConfig() Config {
	return Config{
		MustKeywords: []string{
			"urgent", "asap", "critical", "immediately", "today", "now",
			"emergency", "deadline",
		},
		ShouldKeywords: []string{
			"important", "soon", "this week", "tomorrow", "need to", "should",
		},
		CouldKeywords: []string{
			"maybe", "consider", "eventually", "sometime", "would be nice",
			"if time",
		},
		TinyIndicators: []string{
			"call", "text", "email", "reply", "send", "check", "confirm",
		},
		SmallIndicators: []string{
			"review", "update", "fix", "schedule", "book", "order",
		},
		MediumIndicators: []string{
			"write", "draft", "prepare", "clean", "organize", "research",
		},
		LargeIndicators: []string{
			"build", "plan", "design", "refactor", "migrate", "launch",
			"overhaul",
		},
	}
}

// Scorer applies the priority and effort rule chains.
type Scorer struct {
	cfg   Config
	rules []priorityRule
	now   func() time.Time
}

// NewScorer creates a scorer over the given tables.
func NewScorer(cfg Config) *Scorer {
	s := &Scorer{cfg: cfg, now: time.Now}
	s.rules = []priorityRule{
		{"declared focus", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			if in.Focus {
				return PriorityMust, true
			}
			return "", false
		}},
		{"urgency keyword", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			if containsAny(in.Text, s.cfg.MustKeywords) {
				return PriorityMust, true
			}
			return "", false
		}},
		{"time sensitivity", func(s *Scorer, in Input, now time.Time) (Priority, bool) {
			if in.Sensitivity == inference.SensitivityHigh {
				return PriorityMust, true
			}
			if in.Deadline != nil {
				until := in.Deadline.Sub(now)
				if until <= 24*time.Hour {
					return PriorityMust, true
				}
				if until <= 72*time.Hour {
					return PriorityShould, true
				}
			}
			return "", false
		}},
		{"stressed tone", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			if in.Tone == capture.ToneStressed {
				return PriorityShould, true
			}
			return "", false
		}},
		{"should keyword", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			if containsAny(in.Text, s.cfg.ShouldKeywords) {
				return PriorityShould, true
			}
			return "", false
		}},
		{"could keyword", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			if containsAny(in.Text, s.cfg.CouldKeywords) {
				return PriorityCould, true
			}
			return "", false
		}},
		{"list membership", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			if in.InDecisions {
				return PriorityMust, true
			}
			if in.InFollowups {
				return PriorityShould, true
			}
			return "", false
		}},
		{"default", func(s *Scorer, in Input, _ time.Time) (Priority, bool) {
			return PriorityShould, true
		}},
	}
	return s
}

// Score runs both chains over one candidate.
func (s *Scorer) Score(in Input) Score {
	now := s.now()

	var out Score
	for _, rule := range s.rules {
		if p, ok := rule.match(s, in, now); ok {
			out.Priority = p
			out.Rule = rule.name
			break
		}
	}

	out.Effort = s.effort(in.Text)
	out.FiestaReady = out.Effort == EffortTiny
	out.BigTask = out.Effort == EffortLarge
	return out
}

var (
	minutesRe = regexp.MustCompile(`(\d+)\s*(?:min|mins|minutes?)\b`)
	hoursRe   = regexp.MustCompile(`(\d+)\s*(?:hr|hrs|hours?)\b`)
)

// effort resolves the effort tier: explicit durations first, then the
// indicator tables, then a word-count fallback.
func (s *Scorer) effort(text string) Effort {
	lower := strings.ToLower(text)

	if m := minutesRe.FindStringSubmatch(lower); m != nil {
		mins, _ := strconv.Atoi(m[1])
		switch {
		case mins <= 5:
			return EffortTiny
		case mins <= 15:
			return EffortSmall
		case mins <= 30:
			return EffortMedium
		default:
			return EffortLarge
		}
	}
	if hoursRe.MatchString(lower) {
		return EffortLarge
	}

	for _, tier := range []struct {
		indicators []string
		effort     Effort
	}{
		{s.cfg.TinyIndicators, EffortTiny},
		{s.cfg.SmallIndicators, EffortSmall},
		{s.cfg.MediumIndicators, EffortMedium},
		{s.cfg.LargeIndicators, EffortLarge},
	} {
		if containsAny(text, tier.indicators) {
			return tier.effort
		}
	}

	switch words := len(strings.Fields(text)); {
	case words <= 3:
		return EffortTiny
	case words <= 6:
		return EffortSmall
	case words <= 10:
		return EffortMedium
	default:
		return EffortLarge
	}
}

// containsAny matches single-word keywords by whole word and multi-word
// keywords by substring, case-insensitively.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	var words map[string]struct{}
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		if words == nil {
			words = make(map[string]struct{})
			for _, w := range strings.Fields(lower) {
				w = strings.Trim(w, ".,!?;:()[]\"'")
				words[w] = struct{}{}
			}
		}
		if _, ok := words[kw]; ok {
			return true
		}
	}
	return false
}
