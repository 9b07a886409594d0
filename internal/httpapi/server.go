// Package httpapi exposes the capture pipeline and the analyzers over
// HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/domino"
	"github.com/solacelabs/solaced/internal/focus"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/pipeline"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the solaced HTTP endpoints.
type Server struct {
	echo      *echo.Echo
	pipeline  *pipeline.Pipeline
	predictor *focus.Predictor
	analyzer  *domino.Analyzer
	logger    *logging.Logger
	config    Config
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(p *pipeline.Pipeline, predictor *focus.Predictor, analyzer *domino.Analyzer,
	logger *logging.Logger, cfg Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if predictor == nil {
		return nil, fmt.Errorf("predictor cannot be nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9180
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			ctx := logging.WithRequestID(c.Request().Context(),
				c.Response().Header().Get(echo.HeaderXRequestID))
			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)))
			return err
		}
	})

	s := &Server{
		echo:      e,
		pipeline:  p,
		predictor: predictor,
		analyzer:  analyzer,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/capture", s.handleCapture)
	v1.GET("/focus", s.handleFocus)
	v1.POST("/focus/invalidate", s.handleFocusInvalidate)
	v1.POST("/focus/commit", s.handleFocusCommit)
	v1.GET("/tasks/:id/domino", s.handleDomino)
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
