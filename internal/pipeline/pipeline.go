// Package pipeline orchestrates the capture flow: extraction,
// classification, context inference, scoring, routing and persistence.
// Every stage before persistence isolates its own failures behind a
// deterministic fallback; persistence is the only stage allowed to
// surface an error, because silently dropping a captured task is not
// acceptable.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/agenda"
	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/inference"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/scoring"
	"github.com/solacelabs/solaced/internal/task"
)

// Input is one capture request.
type Input struct {
	UserID string
	Text   string

	// Context is optional caller-supplied framing for extraction.
	Context capture.UserContext
}

// Output is the pipeline's result for one capture.
type Output struct {
	// Tasks are the persisted rows, in candidate order.
	Tasks []*task.Task

	Ideas     []string
	Decisions []string
	Followups []string
	Questions []string
	Tone      capture.Tone

	// TodayOrder lists indices into Tasks routed to today, focus
	// carve-outs first.
	TodayOrder []int
}

// Pipeline wires the capture stages together.
type Pipeline struct {
	extractor  *capture.Extractor
	classifier *capture.Classifier
	inferencer *inference.Inferencer
	scorer     *scoring.Scorer
	router     *agenda.Router
	store      task.Store
	metrics    *Metrics
	logger     *logging.Logger
	now        func() time.Time
}

// New assembles the pipeline.
func New(extractor *capture.Extractor, classifier *capture.Classifier,
	inferencer *inference.Inferencer, scorer *scoring.Scorer, router *agenda.Router,
	store task.Store, metrics *Metrics, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pipeline{
		extractor:  extractor,
		classifier: classifier,
		inferencer: inferencer,
		scorer:     scorer,
		router:     router,
		store:      store,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Capture runs the full pipeline for one capture. The only errors it
// returns are input validation failures and persistence failures.
func (p *Pipeline) Capture(ctx context.Context, in Input) (Output, error) {
	if in.UserID == "" {
		return Output{}, task.ErrEmptyUserID
	}
	p.metrics.capture()
	start := p.now()

	// Stage 1: extraction.
	result, err := p.extractor.Extract(ctx, in.Text, in.Context)
	if err != nil {
		return Output{}, err
	}
	if result.FallbackUsed {
		p.metrics.fallback("extract")
	}

	// Stage 2: classification, per candidate.
	for i := range result.Candidates {
		p.classifier.Classify(ctx, &result.Candidates[i])
	}

	// Stage 3: context inference.
	cm := p.inferencer.Infer(ctx, result.Candidates, result.Tone)

	// Stage 4: scoring.
	scores := make([]scoring.Score, len(result.Candidates))
	for i, c := range result.Candidates {
		scores[i] = p.scorer.Score(scoring.Input{
			Text:        c.CleanText,
			Focus:       c.Focus,
			Sensitivity: cm.Sensitivity[i],
			Deadline:    c.DueAt,
			Tone:        result.Tone,
			InDecisions: mentionedIn(c.CleanText, result.Decisions),
			InFollowups: mentionedIn(c.CleanText, result.Followups),
		})
	}

	// Stage 5: routing, against today's existing load.
	existingToday, err := p.countToday(ctx, in.UserID)
	if err != nil {
		p.logger.Warn(ctx, "could not count today's tasks, routing against empty day",
			zap.Error(err))
		p.metrics.fallback("route")
		existingToday = 0
	}
	items := make([]agenda.Item, len(result.Candidates))
	for i, c := range result.Candidates {
		items[i] = agenda.Item{
			Score:    scores[i],
			Focus:    c.Focus,
			DueAt:    c.DueAt,
			RemindAt: c.RemindAt,
		}
	}
	routed := p.router.Route(items, existingToday)

	// Stage 6: persistence. Errors here propagate.
	out := Output{
		Ideas:      result.Ideas,
		Decisions:  result.Decisions,
		Followups:  result.Followups,
		Questions:  result.Questions,
		Tone:       result.Tone,
		TodayOrder: routed.TodayOrder,
	}
	now := p.now()
	for i, c := range result.Candidates {
		t, err := task.New(in.UserID, c.CleanText, c.RawText)
		if err != nil {
			return Output{}, fmt.Errorf("build task: %w", err)
		}
		t.Summary = c.CleanText
		t.Confidence = c.Confidence
		t.Category = c.Category
		t.Bucket = routed.Buckets[i]
		t.DueAt = c.DueAt
		t.RemindAt = c.RemindAt
		t.Tiny = c.Tiny || scores[i].FiestaReady
		t.Heavy = scores[i].BigTask
		t.Priority = strings.ToUpper(string(scores[i].Priority))
		t.Subtasks = c.Subtasks
		if c.Focus {
			t.IsFocus = true
			t.FocusDate = &now
		}

		if err := p.store.Insert(ctx, t); err != nil {
			p.metrics.persistenceFailure()
			return Output{}, fmt.Errorf("persist task: %w", err)
		}
		p.metrics.taskPersisted()
		out.Tasks = append(out.Tasks, t)
	}

	p.logger.Info(ctx, "capture processed",
		zap.Int("tasks", len(out.Tasks)),
		zap.String("tone", string(out.Tone)),
		zap.Duration("duration", p.now().Sub(start)))
	return out, nil
}

func (p *Pipeline) countToday(ctx context.Context, userID string) (int, error) {
	open, err := p.store.ListOpen(ctx, userID, task.ListFilter{Bucket: task.BucketToday})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range open {
		if !t.IsFocus {
			n++
		}
	}
	return n, nil
}

// mentionedIn reports whether the text appears in any list entry, either
// direction, case-insensitively.
func mentionedIn(text string, list []string) bool {
	lower := strings.ToLower(text)
	for _, entry := range list {
		e := strings.ToLower(entry)
		if strings.Contains(e, lower) || strings.Contains(lower, e) {
			return true
		}
	}
	return false
}
