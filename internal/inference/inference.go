// Package inference derives structure from task candidates: people
// mentions, implied deadlines, project groupings and urgency. The per-task
// heuristics are deterministic data tables; an optional backend pass
// refines categories and context tags and falls back to the heuristics
// alone on any failure.
package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/interpret"
	"github.com/solacelabs/solaced/internal/logging"
)

// ContextMap is the batch-aggregate view over one capture's candidates.
// Task references are indices into the candidate slice.
type ContextMap struct {
	// Projects maps a project name to the candidates it groups.
	Projects map[string][]int

	// Categories maps a category name to its candidates.
	Categories map[string][]int

	// People are all mentioned names across the batch, deduplicated.
	People []string

	// Deadlines maps candidate index to its implied deadline.
	Deadlines map[int]time.Time

	// Sensitivity maps candidate index to its time sensitivity.
	Sensitivity map[int]Sensitivity
}

// enrichPrompt fixes the context-refinement response schema.
const enrichPrompt = `You refine task metadata for a personal companion app.

For each numbered task, suggest a "category" (one or two lowercase words)
and up to 3 "tags" (lowercase context labels like "errand", "deep-work",
"waiting-on-reply").

Respond ONLY with a JSON object:
{"tasks": [{"index": 0, "category": "...", "tags": ["..."]}]}`

type enrichResponse struct {
	Tasks []struct {
		Index    int      `json:"index"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	} `json:"tasks"`
}

// Inferencer is the third pipeline stage.
type Inferencer struct {
	cfg    Config
	client *interpret.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewInferencer creates an inferencer. A nil client skips backend
// refinement entirely.
func NewInferencer(cfg Config, client *interpret.Client, logger *logging.Logger) *Inferencer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inferencer{cfg: cfg, client: client, logger: logger, now: time.Now}
}

// Infer fills per-candidate context in place and returns the batch
// aggregate. It never fails: backend trouble only costs the refinement
// pass.
func (inf *Inferencer) Infer(ctx context.Context, cands []capture.Candidate, tone capture.Tone) ContextMap {
	cm := ContextMap{
		Projects:    make(map[string][]int),
		Categories:  make(map[string][]int),
		Deadlines:   make(map[int]time.Time),
		Sensitivity: make(map[int]Sensitivity),
	}
	if len(cands) == 0 {
		return cm
	}

	now := inf.now()
	stressed := tone == capture.ToneStressed

	peopleSeen := make(map[string]struct{})
	for i := range cands {
		c := &cands[i]

		if len(c.People) == 0 {
			c.People = inf.cfg.People(c.CleanText)
		}
		for _, p := range c.People {
			key := strings.ToLower(p)
			if _, ok := peopleSeen[key]; !ok {
				peopleSeen[key] = struct{}{}
				cm.People = append(cm.People, p)
			}
		}

		if c.DueAt == nil {
			if implied := inf.cfg.ImpliedDeadline(c.CleanText, now); implied != nil {
				c.DueAt = implied
			}
		}
		if c.DueAt != nil {
			cm.Deadlines[i] = *c.DueAt
		}

		cm.Sensitivity[i] = inf.cfg.Urgency(c.CleanText, stressed)
	}

	inf.groupProjects(cands, &cm)
	inf.enrich(ctx, cands)

	for i := range cands {
		if cands[i].Category != "" {
			cm.Categories[cands[i].Category] = append(cm.Categories[cands[i].Category], i)
		}
	}

	return cm
}

// groupProjects assigns candidates to projects: an explicit project name
// wins; otherwise candidates sharing a long keyword present in at least
// two tasks are grouped under that keyword.
func (inf *Inferencer) groupProjects(cands []capture.Candidate, cm *ContextMap) {
	byKeyword := make(map[string][]int)
	for i := range cands {
		if cands[i].Project != "" {
			cm.Projects[cands[i].Project] = append(cm.Projects[cands[i].Project], i)
			continue
		}
		for _, kw := range inf.cfg.ProjectKeywords(cands[i].CleanText) {
			byKeyword[kw] = append(byKeyword[kw], i)
		}
	}

	assigned := make(map[int]struct{})
	for _, idxs := range cm.Projects {
		for _, i := range idxs {
			assigned[i] = struct{}{}
		}
	}
	for kw, idxs := range byKeyword {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			if _, ok := assigned[i]; ok {
				continue
			}
			assigned[i] = struct{}{}
			cm.Projects[kw] = append(cm.Projects[kw], i)
			cands[i].Project = kw
		}
	}
}

// enrich asks the backend for categories and context tags, filling only
// fields the extractor left empty.
func (inf *Inferencer) enrich(ctx context.Context, cands []capture.Candidate) {
	if inf.client == nil || !inf.client.Available() {
		return
	}

	var b strings.Builder
	for i := range cands {
		fmt.Fprintf(&b, "%d. %s\n", i, cands[i].CleanText)
	}

	var resp enrichResponse
	req := interpret.Request{System: enrichPrompt, User: b.String()}
	if err := inf.client.Interpret(ctx, req, &resp); err != nil {
		inf.logger.Warn(ctx, "context refinement failed, keeping heuristic context",
			zap.Error(err))
		return
	}

	for _, t := range resp.Tasks {
		if t.Index < 0 || t.Index >= len(cands) {
			continue
		}
		c := &cands[t.Index]
		if c.Category == "" {
			c.Category = strings.ToLower(strings.TrimSpace(t.Category))
		}
		if len(c.ContextTags) == 0 && len(t.Tags) > 0 {
			if len(t.Tags) > 3 {
				t.Tags = t.Tags[:3]
			}
			c.ContextTags = t.Tags
		}
	}
}
