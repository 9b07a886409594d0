// Solaced is the task-intelligence daemon behind the solace companion.
//
// It serves the capture pipeline, the focus predictor and the domino
// analyzer over HTTP. Configuration comes from an optional YAML file and
// environment overrides; see internal/config.
//
// Usage:
//
//	# Start with defaults (in-memory store, interpretation disabled)
//	solaced
//
//	# With a config file
//	solaced -config /etc/solaced/config.yaml
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/solacelabs/solaced/internal/agenda"
	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/cluster"
	"github.com/solacelabs/solaced/internal/config"
	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/domino"
	"github.com/solacelabs/solaced/internal/focus"
	"github.com/solacelabs/solaced/internal/httpapi"
	"github.com/solacelabs/solaced/internal/inference"
	"github.com/solacelabs/solaced/internal/interpret"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/pipeline"
	"github.com/solacelabs/solaced/internal/postgres"
	"github.com/solacelabs/solaced/internal/scoring"
	"github.com/solacelabs/solaced/internal/task"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	memStore := flag.Bool("memstore", false, "use the in-memory store instead of Postgres")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *memStore); err != nil && err != http.ErrServerClosed {
		log.Fatalf("solaced: %v", err)
	}
}

func run(ctx context.Context, configPath string, memStore bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// Stores.
	var (
		taskStore    task.Store
		historyStore task.HistoryStore
		profileStore task.ProfileStore
		db           *sql.DB
	)
	if memStore {
		mem := task.NewMemStore()
		taskStore, historyStore, profileStore = mem, mem, mem.Profiles()
	} else {
		db, err = postgres.Open(ctx, cfg.Database.ConnString())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		ts := postgres.NewTaskStore(db)
		taskStore, historyStore = ts, ts
		profileStore = postgres.NewProfileStore(db)
	}

	// Interpretation backend.
	provider, err := interpret.NewProvider(interpret.Config{
		Provider:  cfg.Interpreter.Provider,
		Model:     cfg.Interpreter.Model,
		APIKey:    cfg.Interpreter.APIKey.Value(),
		BaseURL:   cfg.Interpreter.BaseURL,
		MaxTokens: cfg.Interpreter.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("init interpretation provider: %w", err)
	}
	client := interpret.NewClient(provider, time.Duration(cfg.Interpreter.Timeout))

	// Pipeline.
	metrics := pipeline.NewMetrics(prometheus.DefaultRegisterer)
	pipe := pipeline.New(
		capture.NewExtractor(client, logger.Named("extract"), cfg.Pipeline.MaxCaptureLen),
		capture.NewClassifier(client, logger.Named("classify")),
		inference.NewInferencer(inference.DefaultConfig(), client, logger.Named("infer")),
		scoring.NewScorer(scoring.DefaultConfig()),
		agenda.NewRouter(cfg.Pipeline.TodayCapacity),
		taskStore, metrics, logger.Named("pipeline"),
	)

	// Analyzers and cluster maintenance.
	cacheMetrics := daycache.NewCacheMetrics(prometheus.DefaultRegisterer)
	clusterCache := daycache.New[cluster.Set](time.Duration(cfg.Cluster.CacheTTL), 1024).
		WithMetrics(cacheMetrics.For("cluster"))
	engine := cluster.NewEngine(taskStore, clusterCache, cfg.Cluster.MinKeywordLen)

	scheduler, err := cluster.NewScheduler(engine, logger.Named("cluster"),
		cluster.WithInterval(time.Duration(cfg.Cluster.RecomputeInterval)),
		cluster.WithUserIDs(cfg.Cluster.UserIDs))
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	focusCfg := focus.DefaultConfig()
	focusCfg.MinScore = cfg.Focus.MinScore
	focusCfg.MaxCandidates = cfg.Focus.MaxCandidates
	focusCfg.PreferenceBoost = cfg.Focus.PreferenceBoost
	focusCfg.AvoidancePenalty = cfg.Focus.AvoidancePenalty
	focusCfg.AmbitionBoost = cfg.Focus.AmbitionBoost
	predictor := focus.NewPredictor(taskStore, historyStore, profileStore, engine,
		daycache.New[focus.Result](time.Duration(cfg.Focus.CacheTTL), 1024).
			WithMetrics(cacheMetrics.For("focus")),
		focusCfg, logger.Named("focus"))

	analyzer := domino.NewAnalyzer(taskStore, engine,
		daycache.New[domino.Report](24*time.Hour, 1024).
			WithMetrics(cacheMetrics.For("domino")),
		domino.DefaultConfig(), logger.Named("domino"))

	// HTTP server.
	srv, err := httpapi.NewServer(pipe, predictor, analyzer, logger.Named("http"), httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
