package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/inference"
)

var scoreNow = time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	s := NewScorer(DefaultConfig())
	s.now = func() time.Time { return scoreNow }
	return s
}

func deadline(hoursAhead int) *time.Time {
	t := scoreNow.Add(time.Duration(hoursAhead) * time.Hour)
	return &t
}

func TestScore_PriorityChain(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name     string
		in       Input
		want     Priority
		wantRule string
	}{
		{"declared focus wins over everything", Input{Text: "maybe clean garage", Focus: true}, PriorityMust, "declared focus"},
		{"urgency keyword", Input{Text: "submit the form asap"}, PriorityMust, "urgency keyword"},
		{"high sensitivity", Input{Text: "water plants", Sensitivity: inference.SensitivityHigh}, PriorityMust, "time sensitivity"},
		{"deadline within 24h", Input{Text: "water plants", Deadline: deadline(12)}, PriorityMust, "time sensitivity"},
		{"deadline within 72h", Input{Text: "water plants", Deadline: deadline(48)}, PriorityShould, "time sensitivity"},
		{"deadline beyond 72h falls through", Input{Text: "water plants", Deadline: deadline(100)}, PriorityShould, "default"},
		{"stressed tone", Input{Text: "water plants", Tone: capture.ToneStressed}, PriorityShould, "stressed tone"},
		{"should keyword", Input{Text: "need to renew passport"}, PriorityShould, "should keyword"},
		{"could keyword", Input{Text: "maybe repaint the fence"}, PriorityCould, "could keyword"},
		{"decision membership", Input{Text: "switch banks", InDecisions: true}, PriorityMust, "list membership"},
		{"followup membership", Input{Text: "ping recruiter", InFollowups: true}, PriorityShould, "list membership"},
		{"default", Input{Text: "water plants"}, PriorityShould, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.in)
			assert.Equal(t, tt.want, got.Priority)
			assert.Equal(t, tt.wantRule, got.Rule)
		})
	}
}

func TestScore_Effort(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		text string
		want Effort
	}{
		{"tidy desk 5 min", EffortTiny},
		{"stretch for 10 minutes", EffortSmall},
		{"walk for 25 mins", EffortMedium},
		{"workout for 45 minutes", EffortLarge},
		{"deep clean for 2 hours", EffortLarge},
		{"call dentist about the appointment next month sometime", EffortTiny},
		{"review the onboarding doc Priya shared with the team", EffortSmall},
		{"draft next quarter goals", EffortMedium},
		{"plan the apartment move", EffortLarge},
		{"groceries", EffortTiny},
		{"pick up dry cleaning downtown", EffortSmall},
		{"figure out why the kitchen tap keeps dripping", EffortMedium},
		{"go through every box in the attic and decide what stays", EffortLarge},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, s.effort(tt.text))
		})
	}
}

func TestScore_Flags(t *testing.T) {
	s := newTestScorer()

	tiny := s.Score(Input{Text: "text Mom back"})
	assert.True(t, tiny.FiestaReady)
	assert.False(t, tiny.BigTask)

	big := s.Score(Input{Text: "plan the wedding"})
	assert.False(t, big.FiestaReady)
	assert.True(t, big.BigTask)
}

func TestScore_CallDentistToday(t *testing.T) {
	s := newTestScorer()

	got := s.Score(Input{Text: "Call dentist today"})
	assert.Equal(t, PriorityMust, got.Priority)
	assert.Equal(t, "urgency keyword", got.Rule)
	assert.Equal(t, EffortTiny, got.Effort)
	assert.True(t, got.FiestaReady)
}

func TestContainsAny(t *testing.T) {
	// Single words match whole words only.
	assert.False(t, containsAny("I know the answer", []string{"now"}))
	assert.True(t, containsAny("do it now", []string{"now"}))
	// Multi-word keywords match as substrings.
	assert.True(t, containsAny("would be nice to repaint", []string{"would be nice"}))
	// Punctuation is stripped.
	assert.True(t, containsAny("Do it today!", []string{"today"}))
}
