package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solacelabs/solaced/internal/logging"
)

// Scheduler refreshes cluster sets in the background so the first focus
// or domino call of the day does not pay the compute cost.
//
// All public methods are thread-safe; running state is mutex-protected
// so Start and Stop can race safely.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	userIDs  []string
	logger   *logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the refresh interval. Defaults to 24 hours.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

// WithUserIDs sets the users to refresh on each run.
func WithUserIDs(userIDs []string) SchedulerOption {
	return func(s *Scheduler) {
		s.userIDs = userIDs
	}
}

// NewScheduler creates a scheduler. Call Start to begin refresh runs.
func NewScheduler(engine *Engine, logger *logging.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Scheduler{
		engine:   engine,
		logger:   logger,
		interval: 24 * time.Hour,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins background refresh runs. Returns an error when already
// running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.stopCh = make(chan struct{})
	s.running = true

	s.logger.Info(context.Background(), "cluster scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("users", len(s.userIDs)))

	go s.run()
	return nil
}

// Stop signals the background goroutine to exit. Idempotent.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	return nil
}

func (s *Scheduler) run() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(context.Background(), "cluster scheduler panicked",
				zap.Any("panic", r), zap.Stack("stack"))
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.safeRefresh()
		case <-s.stopCh:
			return
		}
	}
}

// safeRefresh wraps refresh with panic recovery so one bad run does not
// kill the scheduler.
func (s *Scheduler) safeRefresh() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(context.Background(), "cluster refresh panicked",
				zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	s.refresh()
}

func (s *Scheduler) refresh() {
	if len(s.userIDs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, userID := range s.userIDs {
		s.engine.Invalidate(userID)
		set, err := s.engine.ForUser(ctx, userID)
		if err != nil {
			s.logger.Error(ctx, "cluster refresh failed",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		s.logger.Info(ctx, "clusters refreshed",
			zap.String("user_id", userID),
			zap.Int("clusters", len(set.Clusters)))
	}
}
