package inference

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/interpret"
	"github.com/solacelabs/solaced/internal/logging"
)

// Wednesday, so next Friday and next Monday are unambiguous.
var testNow = time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

func TestImpliedDeadline(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		text    string
		wantDay int
		none    bool
	}{
		{"finish the report today", 2, false},
		{"pay rent asap", 2, false},
		{"do it now", 2, false},
		{"call plumber tomorrow", 3, false},
		{"submit expenses by friday", 4, false},
		{"clean garage this week", 6, false},
		{"plan trip next week", 9, false},
		{"gym session monday", 7, false},
		{"I know the answer", 0, true},
		{"read that book", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := cfg.ImpliedDeadline(tt.text, testNow)
			if tt.none {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDay, got.Day())
			assert.Equal(t, 23, got.Hour())
		})
	}
}

func TestUrgency(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, SensitivityHigh, cfg.Urgency("this is urgent", false))
	assert.Equal(t, SensitivityHigh, cfg.Urgency("deadline is looming", false))
	assert.Equal(t, SensitivityMedium, cfg.Urgency("should get to this soon", false))
	assert.Equal(t, SensitivityMedium, cfg.Urgency("important but not burning", false))
	assert.Equal(t, SensitivityLow, cfg.Urgency("read a book someday", false))

	// Stressed tone forces high regardless of keywords.
	assert.Equal(t, SensitivityHigh, cfg.Urgency("water the plants", true))
}

func TestPeople(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple mention", "Call Sarah about the contract", []string{"Sarah"}},
		{"weekday excluded", "Meet Jake on Friday", []string{"Jake"}},
		{"relative words excluded", "Email Priya Tomorrow about Next steps", []string{"Priya"}},
		{"leading word skipped", "Dentist appointment", nil},
		{"dedup", "Ask Sam, then remind Sam again", []string{"Sam"}},
		{"nothing capitalized", "buy more coffee beans", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.People(tt.text))
		})
	}
}

func TestInfer_Aggregate(t *testing.T) {
	inf := NewInferencer(DefaultConfig(), nil, logging.NewNop())
	inf.now = func() time.Time { return testNow }

	cands := []capture.Candidate{
		{CleanText: "Draft the website redesign brief"},
		{CleanText: "Review website copy with Dana tomorrow"},
		{CleanText: "Buy groceries", Category: "errands"},
	}

	cm := inf.Infer(context.Background(), cands, capture.ToneOK)

	// Shared keyword "website" appears in two tasks.
	require.Contains(t, cm.Projects, "website")
	assert.ElementsMatch(t, []int{0, 1}, cm.Projects["website"])
	assert.Equal(t, "website", cands[0].Project)

	assert.Equal(t, []string{"Dana"}, cm.People)

	// "tomorrow" implies a deadline on candidate 1 only.
	require.Contains(t, cm.Deadlines, 1)
	assert.Equal(t, 3, cm.Deadlines[1].Day())
	assert.NotContains(t, cm.Deadlines, 0)

	assert.Equal(t, SensitivityMedium, cm.Sensitivity[1])
	assert.Equal(t, SensitivityLow, cm.Sensitivity[2])

	assert.Equal(t, []int{2}, cm.Categories["errands"])
}

func TestInfer_StressedToneForcesHigh(t *testing.T) {
	inf := NewInferencer(DefaultConfig(), nil, logging.NewNop())
	inf.now = func() time.Time { return testNow }

	cands := []capture.Candidate{{CleanText: "water the plants"}}
	cm := inf.Infer(context.Background(), cands, capture.ToneStressed)

	assert.Equal(t, SensitivityHigh, cm.Sensitivity[0])
}

func TestInfer_ExplicitProjectWins(t *testing.T) {
	inf := NewInferencer(DefaultConfig(), nil, logging.NewNop())
	inf.now = func() time.Time { return testNow }

	cands := []capture.Candidate{
		{CleanText: "Sketch website wireframes", Project: "relaunch"},
		{CleanText: "Write website launch post"},
	}
	cm := inf.Infer(context.Background(), cands, capture.ToneOK)

	assert.Equal(t, []int{0}, cm.Projects["relaunch"])
	assert.NotContains(t, cm.Projects["website"], 0)
}

func TestInfer_ExistingDueAtPreserved(t *testing.T) {
	inf := NewInferencer(DefaultConfig(), nil, logging.NewNop())
	inf.now = func() time.Time { return testNow }

	explicit := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	cands := []capture.Candidate{{CleanText: "File taxes today", DueAt: &explicit}}
	cm := inf.Infer(context.Background(), cands, capture.ToneOK)

	assert.Equal(t, explicit, cm.Deadlines[0])
}

type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Complete(ctx context.Context, req interpret.Request) (string, error) {
	return s.response, s.err
}

func (s *stubProvider) Available() bool { return true }

func TestInfer_BackendEnrichment(t *testing.T) {
	response := `{"tasks": [{"index": 0, "category": "health", "tags": ["errand", "phone-call"]}]}`
	client := interpret.NewClient(&stubProvider{response: response}, time.Second)
	inf := NewInferencer(DefaultConfig(), client, logging.NewNop())
	inf.now = func() time.Time { return testNow }

	cands := []capture.Candidate{{CleanText: "Call dentist"}}
	cm := inf.Infer(context.Background(), cands, capture.ToneOK)

	assert.Equal(t, "health", cands[0].Category)
	assert.Equal(t, []string{"errand", "phone-call"}, cands[0].ContextTags)
	assert.Equal(t, []int{0}, cm.Categories["health"])
}

func TestInfer_BackendFailureKeepsHeuristics(t *testing.T) {
	client := interpret.NewClient(&stubProvider{err: fmt.Errorf("backend down")}, time.Second)
	logger := logging.NewTestLogger()
	inf := NewInferencer(DefaultConfig(), client, logger.Logger)
	inf.now = func() time.Time { return testNow }

	cands := []capture.Candidate{{CleanText: "Email Maria today"}}
	cm := inf.Infer(context.Background(), cands, capture.ToneOK)

	assert.Equal(t, []string{"Maria"}, cm.People)
	assert.Contains(t, cm.Deadlines, 0)
	assert.Empty(t, cands[0].Category)
}

func TestNextWeekday(t *testing.T) {
	// testNow is a Wednesday.
	assert.Equal(t, time.Friday, nextWeekday(testNow, time.Friday).Weekday())
	assert.Equal(t, 4, nextWeekday(testNow, time.Friday).Day())
	assert.Equal(t, 7, nextWeekday(testNow, time.Monday).Day())
	// Same weekday resolves to today.
	assert.Equal(t, 2, nextWeekday(testNow, time.Wednesday).Day())
}
