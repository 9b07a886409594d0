package capture

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/interpret"
	"github.com/solacelabs/solaced/internal/logging"
)

// classifyPrompt fixes the classification response schema.
const classifyPrompt = `You classify a single task for a personal companion app.

Decide whether the task is "tiny" (completable in under five minutes) or
complex. For complex tasks, break it into 2 to 4 concrete subtasks.

Respond ONLY with a JSON object:
{"tiny": bool, "subtasks": ["..."]}

Rules:
- tiny tasks get an empty subtasks array
- complex tasks get 2 to 4 subtasks, each a short actionable step
- never more than 4 subtasks`

type classifyResponse struct {
	Tiny     bool     `json:"tiny"`
	Subtasks []string `json:"subtasks"`
}

// Classifier is the second pipeline stage. It decides tiny versus complex
// and generates subtasks for complex candidates.
type Classifier struct {
	client *interpret.Client
	logger *logging.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(client *interpret.Client, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{client: client, logger: logger}
}

// Classify fills in Tiny and Subtasks on the candidate. It never fails:
// on backend error the candidate is left non-tiny with no subtasks.
func (c *Classifier) Classify(ctx context.Context, cand *Candidate) {
	var resp classifyResponse
	req := interpret.Request{
		System: classifyPrompt,
		User:   fmt.Sprintf("Task: %s", cand.CleanText),
	}
	if err := c.client.Interpret(ctx, req, &resp); err != nil {
		c.logger.Warn(ctx, "classification backend failed, leaving task unclassified",
			zap.Error(err))
		cand.Tiny = false
		cand.Subtasks = nil
		return
	}

	cand.Tiny = resp.Tiny
	if resp.Tiny {
		cand.Subtasks = nil
		return
	}

	subtasks := make([]string, 0, len(resp.Subtasks))
	for _, s := range resp.Subtasks {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		subtasks = append(subtasks, s)
	}
	if len(subtasks) > 4 {
		subtasks = subtasks[:4]
	}
	// A single subtask adds nothing over the task itself.
	if len(subtasks) < 2 {
		subtasks = nil
	}
	cand.Subtasks = subtasks
}
