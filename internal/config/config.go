// Package config provides configuration loading for solaced.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and hardcoded defaults. Heuristic keyword tables ship with
// defaults in their owning packages; this package carries the tunables
// an operator is expected to touch.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete solaced configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Interpreter InterpreterConfig `koanf:"interpreter"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Focus       FocusConfig       `koanf:"focus"`
	Cluster     ClusterConfig     `koanf:"cluster"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection configuration.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password Secret `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// ConnString builds a lib/pq connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password.Value(), d.SSLMode)
}

// InterpreterConfig holds interpretation backend configuration.
//
// Provider is one of "disabled", "anthropic", "openai". When disabled,
// every pipeline stage runs its deterministic fallback.
type InterpreterConfig struct {
	Provider  string   `koanf:"provider"`
	Model     string   `koanf:"model"`
	APIKey    Secret   `koanf:"api_key"`
	BaseURL   string   `koanf:"base_url"`
	MaxTokens int      `koanf:"max_tokens"`
	Timeout   Duration `koanf:"timeout"`
}

// PipelineConfig holds capture pipeline tunables.
type PipelineConfig struct {
	// TodayCapacity bounds the "today" bucket, excluding primary-focus
	// carve-outs and fiesta-ready admissions.
	TodayCapacity int `koanf:"today_capacity"`

	// MaxCaptureLen bounds raw capture text, in bytes.
	MaxCaptureLen int `koanf:"max_capture_len"`
}

// FocusConfig holds focus predictor tunables.
type FocusConfig struct {
	// MinScore excludes predictions at or below this normalized score.
	MinScore float64 `koanf:"min_score"`

	// MaxCandidates caps the candidate set per prediction run.
	MaxCandidates int `koanf:"max_candidates"`

	// PreferenceBoost scales persona preference-domain weight.
	PreferenceBoost float64 `koanf:"preference_boost"`

	// AvoidancePenalty scales persona avoidance-domain weight.
	AvoidancePenalty float64 `koanf:"avoidance_penalty"`

	// AmbitionBoost scales the persona ambition-match component.
	AmbitionBoost float64 `koanf:"ambition_boost"`

	CacheTTL Duration `koanf:"cache_ttl"`
}

// ClusterConfig holds cluster maintenance configuration.
type ClusterConfig struct {
	RecomputeInterval Duration `koanf:"recompute_interval"`
	MinKeywordLen     int      `koanf:"min_keyword_len"`
	CacheTTL          Duration `koanf:"cache_ttl"`

	// UserIDs are the users whose clusters the background job refreshes.
	// Empty means on-demand only.
	UserIDs []string `koanf:"user_ids"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9180
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "solace"
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "solace"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Interpreter.Provider == "" {
		cfg.Interpreter.Provider = "disabled"
	}
	if cfg.Interpreter.MaxTokens == 0 {
		cfg.Interpreter.MaxTokens = 1024
	}
	if cfg.Interpreter.Timeout == 0 {
		cfg.Interpreter.Timeout = Duration(20 * time.Second)
	}

	if cfg.Pipeline.TodayCapacity == 0 {
		cfg.Pipeline.TodayCapacity = 5
	}
	if cfg.Pipeline.MaxCaptureLen == 0 {
		cfg.Pipeline.MaxCaptureLen = 8192
	}

	if cfg.Focus.MinScore == 0 {
		cfg.Focus.MinScore = 20
	}
	if cfg.Focus.MaxCandidates == 0 {
		cfg.Focus.MaxCandidates = 7
	}
	if cfg.Focus.PreferenceBoost == 0 {
		cfg.Focus.PreferenceBoost = 20
	}
	if cfg.Focus.AvoidancePenalty == 0 {
		cfg.Focus.AvoidancePenalty = 15
	}
	if cfg.Focus.AmbitionBoost == 0 {
		cfg.Focus.AmbitionBoost = 10
	}
	if cfg.Focus.CacheTTL == 0 {
		cfg.Focus.CacheTTL = Duration(24 * time.Hour)
	}

	if cfg.Cluster.RecomputeInterval == 0 {
		cfg.Cluster.RecomputeInterval = Duration(24 * time.Hour)
	}
	if cfg.Cluster.MinKeywordLen == 0 {
		cfg.Cluster.MinKeywordLen = 5
	}
	if cfg.Cluster.CacheTTL == 0 {
		cfg.Cluster.CacheTTL = Duration(24 * time.Hour)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}

	switch c.Interpreter.Provider {
	case "disabled", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown interpreter provider: %s", c.Interpreter.Provider)
	}
	if c.Interpreter.Provider != "disabled" && !c.Interpreter.APIKey.IsSet() {
		return fmt.Errorf("interpreter provider %q requires an API key", c.Interpreter.Provider)
	}

	if c.Pipeline.TodayCapacity < 1 {
		return fmt.Errorf("pipeline today_capacity must be >= 1, got %d", c.Pipeline.TodayCapacity)
	}
	if c.Pipeline.MaxCaptureLen < 1 {
		return fmt.Errorf("pipeline max_capture_len must be >= 1, got %d", c.Pipeline.MaxCaptureLen)
	}

	if c.Focus.MinScore < 0 || c.Focus.MinScore > 100 {
		return fmt.Errorf("focus min_score must be 0-100, got %v", c.Focus.MinScore)
	}
	if c.Focus.MaxCandidates < 1 {
		return fmt.Errorf("focus max_candidates must be >= 1, got %d", c.Focus.MaxCandidates)
	}

	if c.Cluster.MinKeywordLen < 2 {
		return fmt.Errorf("cluster min_keyword_len must be >= 2, got %d", c.Cluster.MinKeywordLen)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}
