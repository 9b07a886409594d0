package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/pipeline"
	"github.com/solacelabs/solaced/internal/task"
)

// CaptureRequest is the body of POST /api/v1/capture.
type CaptureRequest struct {
	UserID  string `json:"user_id"`
	Text    string `json:"text"`
	Context struct {
		Goal               string   `json:"goal,omitempty"`
		Categories         []string `json:"categories,omitempty"`
		RecentConversation []string `json:"recent_conversation,omitempty"`
	} `json:"context,omitempty"`
}

// CaptureResponse is the body of a successful capture.
type CaptureResponse struct {
	Tasks      []*task.Task `json:"tasks"`
	Ideas      []string     `json:"ideas,omitempty"`
	Decisions  []string     `json:"decisions,omitempty"`
	Followups  []string     `json:"followups,omitempty"`
	Questions  []string     `json:"questions,omitempty"`
	Tone       string       `json:"tone"`
	TodayOrder []int        `json:"today_order,omitempty"`
}

func (s *Server) handleCapture(c echo.Context) error {
	var req CaptureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	ctx := logging.WithUserID(c.Request().Context(), req.UserID)
	out, err := s.pipeline.Capture(ctx, pipeline.Input{
		UserID: req.UserID,
		Text:   req.Text,
		Context: capture.UserContext{
			Goal:               req.Context.Goal,
			Categories:         req.Context.Categories,
			RecentConversation: req.Context.RecentConversation,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrEmptyCapture):
			return echo.NewHTTPError(http.StatusBadRequest, "text is required")
		case errors.Is(err, capture.ErrCaptureTooLong):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "text too long")
		default:
			s.logger.Error(ctx, "capture failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "could not save your capture")
		}
	}

	return c.JSON(http.StatusOK, CaptureResponse{
		Tasks:      out.Tasks,
		Ideas:      out.Ideas,
		Decisions:  out.Decisions,
		Followups:  out.Followups,
		Questions:  out.Questions,
		Tone:       string(out.Tone),
		TodayOrder: out.TodayOrder,
	})
}

func (s *Server) handleFocus(c echo.Context) error {
	userID := c.QueryParam("user_id")
	ctx := logging.WithUserID(c.Request().Context(), userID)
	result := s.predictor.Predict(ctx, userID)
	return c.JSON(http.StatusOK, result)
}

// FocusInvalidateRequest is the body of POST /api/v1/focus/invalidate.
type FocusInvalidateRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleFocusInvalidate(c echo.Context) error {
	var req FocusInvalidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	s.predictor.Invalidate(req.UserID)
	return c.NoContent(http.StatusNoContent)
}

// FocusCommitRequest is the body of POST /api/v1/focus/commit.
type FocusCommitRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

func (s *Server) handleFocusCommit(c echo.Context) error {
	var req FocusCommitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.TaskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and task_id are required")
	}

	ctx := logging.WithUserID(c.Request().Context(), req.UserID)
	if err := s.predictor.CommitFocus(ctx, req.UserID, req.TaskID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error(ctx, "focus commit failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not set focus")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDomino(c echo.Context) error {
	userID := c.QueryParam("user_id")
	taskID := c.Param("id")
	ctx := logging.WithUserID(c.Request().Context(), userID)
	report := s.analyzer.Analyze(ctx, userID, taskID)
	return c.JSON(http.StatusOK, report)
}
