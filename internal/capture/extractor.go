package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/interpret"
	"github.com/solacelabs/solaced/internal/logging"
)

// ErrEmptyCapture is returned when the capture text is blank.
var ErrEmptyCapture = errors.New("capture text cannot be empty")

// ErrCaptureTooLong is returned when the capture text exceeds the bound.
var ErrCaptureTooLong = errors.New("capture text too long")

// extractPrompt fixes the extraction response schema.
const extractPrompt = `You are the task-understanding engine of a personal companion app.

Given a freeform capture from the user, extract:
- "tasks": actionable items, each with "text" (cleaned phrasing), optional
  "category", "project", "due" and "remind" (RFC 3339), "people" and "tags"
  (arrays of strings), "focus" (true only if the user declares it their main
  thing for today), and "confidence" (0.0 to 1.0)
- "ideas": non-actionable thoughts worth keeping
- "decisions": decisions the user has made
- "followups": actions the user promised or deferred to later
- "tone": one of "stressed", "ok", "motivated"
- "questions": clarifying questions, only when who or when is missing and
  genuinely matters

Respond ONLY with the JSON object, no additional text.`

// extractResponse is the JSON schema the backend must return.
type extractResponse struct {
	Tasks []struct {
		Text       string   `json:"text"`
		Category   string   `json:"category,omitempty"`
		Project    string   `json:"project,omitempty"`
		Due        string   `json:"due,omitempty"`
		Remind     string   `json:"remind,omitempty"`
		People     []string `json:"people,omitempty"`
		Tags       []string `json:"tags,omitempty"`
		Focus      bool     `json:"focus,omitempty"`
		Confidence float64  `json:"confidence,omitempty"`
	} `json:"tasks"`
	Ideas     []string `json:"ideas,omitempty"`
	Decisions []string `json:"decisions,omitempty"`
	Followups []string `json:"followups,omitempty"`
	Tone      string   `json:"tone,omitempty"`
	Questions []string `json:"questions,omitempty"`
}

// Extractor is the first pipeline stage.
type Extractor struct {
	client *interpret.Client
	logger *logging.Logger
	maxLen int
}

// NewExtractor creates an extractor. maxLen bounds capture length in bytes;
// zero means 8192.
func NewExtractor(client *interpret.Client, logger *logging.Logger, maxLen int) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxLen <= 0 {
		maxLen = 8192
	}
	return &Extractor{client: client, logger: logger, maxLen: maxLen}
}

// Extract interprets raw capture text into candidates. On backend failure
// it falls back to one candidate per non-empty line; the raw input is
// preserved verbatim in either case. The only errors returned are input
// validation errors.
func (e *Extractor) Extract(ctx context.Context, text string, uc UserContext) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyCapture
	}
	if len(text) > e.maxLen {
		return Result{}, fmt.Errorf("%w: %d bytes (max %d)", ErrCaptureTooLong, len(text), e.maxLen)
	}

	var resp extractResponse
	req := interpret.Request{
		System: extractPrompt,
		User:   buildExtractInput(text, uc),
	}
	if err := e.client.Interpret(ctx, req, &resp); err != nil {
		e.logger.Warn(ctx, "extraction backend failed, using line fallback", zap.Error(err))
		return lineFallback(text), nil
	}

	result := Result{
		Ideas:     resp.Ideas,
		Decisions: resp.Decisions,
		Followups: resp.Followups,
		Questions: resp.Questions,
		Tone:      Tone(resp.Tone),
	}
	if !result.Tone.Valid() {
		result.Tone = ToneOK
	}

	for _, t := range resp.Tasks {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		c := Candidate{
			RawText:     t.Text,
			CleanText:   strings.TrimSpace(t.Text),
			Category:    t.Category,
			Project:     t.Project,
			People:      t.People,
			ContextTags: t.Tags,
			Focus:       t.Focus,
			Confidence:  t.Confidence,
		}
		if c.Confidence <= 0 || c.Confidence > 1.0 {
			c.Confidence = 0.8
		}
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			c.DueAt = &due
		}
		if remind, err := time.Parse(time.RFC3339, t.Remind); err == nil {
			c.RemindAt = &remind
		}
		result.Candidates = append(result.Candidates, c)
	}

	// A backend response with zero usable tasks is treated like a failure.
	if len(result.Candidates) == 0 {
		e.logger.Warn(ctx, "extraction returned no candidates, using line fallback")
		return lineFallback(text), nil
	}

	return result, nil
}

// buildExtractInput assembles the user turn from the capture and context.
func buildExtractInput(text string, uc UserContext) string {
	var b strings.Builder
	if uc.Goal != "" {
		fmt.Fprintf(&b, "User goal: %s\n", uc.Goal)
	}
	if len(uc.Categories) > 0 {
		fmt.Fprintf(&b, "Custom categories: %s\n", strings.Join(uc.Categories, ", "))
	}
	if len(uc.RecentConversation) > 0 {
		fmt.Fprintf(&b, "Recent conversation:\n%s\n", strings.Join(uc.RecentConversation, "\n"))
	}
	fmt.Fprintf(&b, "\nCapture:\n%s", text)
	return b.String()
}

// lineFallback splits the capture into one candidate per non-empty line.
// A single-line capture becomes one candidate holding the whole text.
func lineFallback(text string) Result {
	result := Result{Tone: ToneOK, FallbackUsed: true}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			RawText:    line,
			CleanText:  trimmed,
			Confidence: 0.5,
		})
	}
	if len(result.Candidates) == 0 {
		result.Candidates = []Candidate{{
			RawText:    text,
			CleanText:  strings.TrimSpace(text),
			Confidence: 0.5,
		}}
	}
	return result
}
