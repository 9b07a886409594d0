package inference

import (
	"strings"
	"time"
	"unicode"
)

// Sensitivity is a task's time sensitivity.
type Sensitivity string

const (
	SensitivityHigh   Sensitivity = "high"
	SensitivityMedium Sensitivity = "medium"
	SensitivityLow    Sensitivity = "low"
)

// DeadlineRule maps a phrase to a deadline resolver. Rules are evaluated in
// order; the first phrase found in the text wins.
type DeadlineRule struct {
	Phrases []string
	Resolve func(now time.Time) time.Time
}

// Config holds the inference heuristic tables. All tables are data so they
// can be tuned without touching matching logic.
type Config struct {
	// DeadlineRules is the ordered implied-deadline phrase table.
	DeadlineRules []DeadlineRule

	// HighUrgency and MediumUrgency are the urgency keyword buckets.
	// Anything matching neither is low.
	HighUrgency   []string
	MediumUrgency []string

	// PeopleStopwords are capitalized tokens that are never people
	// (weekdays and relative-date words, mostly).
	PeopleStopwords []string

	// MinProjectKeywordLen is the minimum keyword length for grouping
	// candidates into a shared project.
	MinProjectKeywordLen int
}

// DefaultConfig returns the built-in heuristic tables.
func DefaultConfig() Config {
	return Config{
		DeadlineRules: []DeadlineRule{
			{
				Phrases: []string{"today", "asap", "now", "urgent"},
				Resolve: func(now time.Time) time.Time { return endOfDay(now) },
			},
			{
				Phrases: []string{"tomorrow"},
				Resolve: func(now time.Time) time.Time { return endOfDay(now.AddDate(0, 0, 1)) },
			},
			{
				Phrases: []string{"this friday", "by friday"},
				Resolve: func(now time.Time) time.Time { return endOfDay(nextWeekday(now, time.Friday)) },
			},
			{
				Phrases: []string{"this week", "by week end"},
				Resolve: func(now time.Time) time.Time { return endOfDay(nextWeekday(now, time.Sunday)) },
			},
			{
				Phrases: []string{"next week"},
				Resolve: func(now time.Time) time.Time { return endOfDay(now.AddDate(0, 0, 7)) },
			},
			{
				Phrases: []string{"monday"},
				Resolve: func(now time.Time) time.Time { return endOfDay(nextWeekday(now, time.Monday)) },
			},
		},
		HighUrgency: []string{
			"urgent", "asap", "immediately", "critical", "emergency",
			"deadline", "today", "now",
		},
		MediumUrgency: []string{
			"soon", "this week", "tomorrow", "important", "need to", "should",
		},
		PeopleStopwords: []string{
			"monday", "tuesday", "wednesday", "thursday", "friday",
			"saturday", "sunday", "today", "tomorrow", "tonight",
			"next", "this", "week", "month", "i",
		},
		MinProjectKeywordLen: 5,
	}
}

// ImpliedDeadline resolves the first matching deadline phrase in text,
// relative to now. Returns nil when no phrase matches.
func (c Config) ImpliedDeadline(text string, now time.Time) *time.Time {
	lower := strings.ToLower(text)
	words := wordSet(lower)
	for _, rule := range c.DeadlineRules {
		for _, phrase := range rule.Phrases {
			if matchPhrase(lower, words, phrase) {
				t := rule.Resolve(now)
				return &t
			}
		}
	}
	return nil
}

// Urgency buckets text into high, medium or low time sensitivity. A
// stressed tone forces high regardless of keywords.
func (c Config) Urgency(text string, stressed bool) Sensitivity {
	if stressed {
		return SensitivityHigh
	}
	lower := strings.ToLower(text)
	words := wordSet(lower)
	for _, kw := range c.HighUrgency {
		if matchPhrase(lower, words, kw) {
			return SensitivityHigh
		}
	}
	for _, kw := range c.MediumUrgency {
		if matchPhrase(lower, words, kw) {
			return SensitivityMedium
		}
	}
	return SensitivityLow
}

// People extracts mentioned names as capitalized tokens, skipping the
// stopword table. Capitalized common words still slip through; callers
// treat the result as a hint, not a fact.
func (c Config) People(text string) []string {
	stop := make(map[string]struct{}, len(c.PeopleStopwords))
	for _, w := range c.PeopleStopwords {
		stop[w] = struct{}{}
	}

	var people []string
	seen := make(map[string]struct{})
	for i, tok := range strings.Fields(text) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if tok == "" {
			continue
		}
		runes := []rune(tok)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		// The leading word of a capture is capitalized by convention,
		// not because it names someone.
		if i == 0 {
			continue
		}
		lower := strings.ToLower(tok)
		if _, ok := stop[lower]; ok {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		people = append(people, tok)
	}
	return people
}

// ProjectKeywords returns the candidate grouping keywords of text: words
// of at least MinProjectKeywordLen characters, lowercased, deduplicated.
func (c Config) ProjectKeywords(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len(w) < c.MinProjectKeywordLen {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// matchPhrase matches a multi-word phrase by substring and a single word
// by whole-word membership, so "now" does not match "know".
func matchPhrase(lowerText string, words map[string]struct{}, phrase string) bool {
	if strings.Contains(phrase, " ") {
		return strings.Contains(lowerText, phrase)
	}
	_, ok := words[phrase]
	return ok
}

func wordSet(lowerText string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(lowerText) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
}

// nextWeekday returns the next occurrence of day strictly after now's date
// unless today already is that day.
func nextWeekday(now time.Time, day time.Weekday) time.Time {
	diff := (int(day) - int(now.Weekday()) + 7) % 7
	if diff == 0 {
		return now
	}
	return now.AddDate(0, 0, diff)
}
