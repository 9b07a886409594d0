// Package focus predicts the task a user should treat as the day's
// primary focus. Candidate generation unions several signal sources,
// scoring blends urgency, habit, clustering, preference, seasonal and
// load components with a persona adjustment, and results are memoized
// per (user, calendar day). The predictor never returns an error: any
// failure degrades to an empty result carrying a failure reasoning entry.
package focus

import (
	"time"
)

// Prediction is one ranked focus suggestion.
type Prediction struct {
	TaskID     string   `json:"task_id"`
	Title      string   `json:"title"`
	Score      float64  `json:"score"`      // 0-100
	Confidence float64  `json:"confidence"` // score/100
	Reasoning  []string `json:"reasoning"`
}

// Result is the predictor's output for one user and day.
type Result struct {
	Predictions []Prediction `json:"predictions"`

	// Reasoning holds result-level notes, including the failure entry
	// when prediction degraded.
	Reasoning []string `json:"reasoning,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// SeasonalPattern is one calendar rhythm the scorer recognizes.
type SeasonalPattern struct {
	// Name labels the pattern in reasoning trails.
	Name string

	// Match reports whether the pattern applies on the given day.
	Match func(day time.Time) bool

	// Weight in [0, 0.1]; scaled by 100 into the seasonal band.
	Weight float64
}

// Config holds the predictor's tunables. The union weights and component
// bands preserve relative ordering; the literal values are configuration,
// not contract.
type Config struct {
	// MinScore excludes predictions at or below it, post-normalization.
	MinScore float64

	// MaxCandidates caps the candidate set by union weight.
	MaxCandidates int

	// Union weights per candidate source.
	OverdueWeight   int
	DueTodayWeight  int
	PriorityWeight  int
	HabitualWeight  int
	ClusteredWeight int
	SimilarWeight   int

	// Persona adjustment scales.
	PreferenceBoost  float64
	AvoidancePenalty float64
	AmbitionBoost    float64

	SeasonalPatterns []SeasonalPattern
}

// DefaultConfig returns the built-in predictor tunables.
func DefaultConfig() Config {
	return Config{
		MinScore:      20,
		MaxCandidates: 7,

		OverdueWeight:   100,
		DueTodayWeight:  50,
		PriorityWeight:  25,
		HabitualWeight:  10,
		ClusteredWeight: 5,
		SimilarWeight:   5,

		PreferenceBoost:  20,
		AvoidancePenalty: 15,
		AmbitionBoost:    10,

		SeasonalPatterns: []SeasonalPattern{
			{
				Name:   "monday reset",
				Match:  func(day time.Time) bool { return day.Weekday() == time.Monday },
				Weight: 0.08,
			},
			{
				Name: "weekend",
				Match: func(day time.Time) bool {
					return day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
				},
				Weight: 0.05,
			},
			{
				Name:   "month start",
				Match:  func(day time.Time) bool { return day.Day() <= 3 },
				Weight: 0.06,
			},
			{
				Name:   "month end",
				Match:  func(day time.Time) bool { return day.Day() >= 27 },
				Weight: 0.06,
			},
		},
	}
}
