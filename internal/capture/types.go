// Package capture turns freeform text into task candidates. It holds the
// first two pipeline stages: extraction (raw text to candidates, ideas,
// decisions and emotional tone) and classification (tiny versus complex,
// with generated subtasks). Both stages call the interpretation backend
// and degrade to documented deterministic fallbacks on any failure.
package capture

import "time"

// Tone is the emotional tone read from a capture.
type Tone string

const (
	ToneStressed  Tone = "stressed"
	ToneOK        Tone = "ok"
	ToneMotivated Tone = "motivated"
)

// Valid reports whether t is a defined tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneStressed, ToneOK, ToneMotivated:
		return true
	}
	return false
}

// Candidate is an ephemeral task candidate flowing through the pipeline.
type Candidate struct {
	// RawText is the candidate's slice of the original capture, verbatim.
	RawText string

	// CleanText is the normalized task phrasing.
	CleanText string

	DueAt    *time.Time
	RemindAt *time.Time

	Category string
	Project  string

	People      []string
	ContextTags []string

	// Focus marks a candidate the user declared as the day's primary focus.
	Focus bool

	// Tiny is set by the classifier for under-five-minute tasks.
	Tiny bool

	// Subtasks holds 2-4 generated steps for complex candidates.
	Subtasks []string

	// Confidence is the interpretation confidence, 0.0 to 1.0.
	Confidence float64
}

// Result is the extractor's output for one capture.
type Result struct {
	Candidates []Candidate
	Ideas      []string
	Decisions  []string

	// Followups are actions the user promised or deferred, scored one
	// tier below decisions.
	Followups []string

	Questions []string
	Tone      Tone

	// FallbackUsed records that the deterministic fallback produced the
	// candidates. Internal signal only; it is never surfaced to the user.
	FallbackUsed bool `json:"-"`
}

// UserContext is the caller-supplied context for extraction.
type UserContext struct {
	// Goal is the user's free-text stated goal.
	Goal string

	// Categories are the user's custom category names.
	Categories []string

	// RecentConversation holds the last few companion exchanges.
	RecentConversation []string
}
