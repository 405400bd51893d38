// Package config loads runtime configuration from the environment.
// Sensitive values may use ${VAR} references resolved strictly: a
// reference to an unset variable is a startup error, not an empty
// string.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/abzanganeh/mlsite/cache"
	"github.com/abzanganeh/mlsite/progress"
)

// Config is the full runtime configuration.
type Config struct {
	// StoragePath is the SQLite database file backing the artifact
	// cache, progress records, and demo state.
	StoragePath string `env:"MLSITE_DB_PATH" envDefault:"mlsite.db"`

	// Cache TTLs and sweep cadence.
	VisualizationTTL time.Duration `env:"MLSITE_CACHE_VISUALIZATION_TTL" envDefault:"2h"`
	APIResponseTTL   time.Duration `env:"MLSITE_CACHE_API_RESPONSE_TTL" envDefault:"30m"`
	MaxTTL           time.Duration `env:"MLSITE_CACHE_MAX_TTL" envDefault:"24h"`
	SweepInterval    time.Duration `env:"MLSITE_CACHE_SWEEP_INTERVAL" envDefault:"10m"`

	// GenerationTimeout bounds a single visualization generation.
	GenerationTimeout time.Duration `env:"MLSITE_GENERATION_TIMEOUT" envDefault:"30s"`

	// ClearCompletedOnRegress drops a unit's completion timestamp when
	// progress later falls below 100. Off by default: completion is
	// permanent.
	ClearCompletedOnRegress bool `env:"MLSITE_CLEAR_COMPLETED_ON_REGRESS" envDefault:"false"`

	// QuizFeedbackBands overrides the stock quiz encouragement copy.
	// Each entry is "min:message", semicolon separated, e.g.
	// "60:Pass;0:Try again". Empty keeps the defaults.
	QuizFeedbackBands []string `env:"MLSITE_QUIZ_FEEDBACK_BANDS" envSeparator:";"`

	// Operator credentials for maintenance endpoints. Values may be
	// ${VAR} references.
	APIKeys   []string `env:"MLSITE_API_KEYS" envSeparator:","`
	JWTSecret string   `env:"MLSITE_JWT_SECRET"`

	// Observability.
	ServiceName     string `env:"MLSITE_SERVICE_NAME" envDefault:"mlsite"`
	TracingExporter string `env:"MLSITE_TRACING_EXPORTER" envDefault:"none"`
	MetricsExporter string `env:"MLSITE_METRICS_EXPORTER" envDefault:"none"`
	OTLPEndpoint    string `env:"MLSITE_OTLP_ENDPOINT"`
	LogLevel        string `env:"MLSITE_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from the environment and resolves ${VAR}
// references in sensitive values.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	var err error
	if cfg.JWTSecret, err = ExpandEnvStrict(cfg.JWTSecret); err != nil {
		return Config{}, fmt.Errorf("config: MLSITE_JWT_SECRET: %w", err)
	}
	for i, key := range cfg.APIKeys {
		if cfg.APIKeys[i], err = ExpandEnvStrict(key); err != nil {
			return Config{}, fmt.Errorf("config: MLSITE_API_KEYS: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("config: storage path is required")
	}
	if c.VisualizationTTL <= 0 || c.APIResponseTTL <= 0 {
		return fmt.Errorf("config: cache TTLs must be positive")
	}
	if c.MaxTTL > 0 && (c.VisualizationTTL > c.MaxTTL || c.APIResponseTTL > c.MaxTTL) {
		return fmt.Errorf("config: cache TTLs exceed max TTL %s", c.MaxTTL)
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("config: generation timeout must be positive")
	}
	switch c.TracingExporter {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("config: unknown tracing exporter %q", c.TracingExporter)
	}
	switch c.MetricsExporter {
	case "stdout", "otlp", "prometheus", "none":
	default:
		return fmt.Errorf("config: unknown metrics exporter %q", c.MetricsExporter)
	}
	if _, err := c.feedbackBands(); err != nil {
		return err
	}
	return nil
}

// TrackerConfig maps the progress settings onto tracker policy.
func (c Config) TrackerConfig() (progress.TrackerConfig, error) {
	bands, err := c.feedbackBands()
	if err != nil {
		return progress.TrackerConfig{}, err
	}
	return progress.TrackerConfig{
		ClearCompletedOnRegress: c.ClearCompletedOnRegress,
		FeedbackBands:           bands,
	}, nil
}

func (c Config) feedbackBands() ([]progress.FeedbackBand, error) {
	bands := make([]progress.FeedbackBand, 0, len(c.QuizFeedbackBands))
	for _, raw := range c.QuizFeedbackBands {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		threshold, message, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(message) == "" {
			return nil, fmt.Errorf("config: feedback band %q is not min:message", raw)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(threshold), 64)
		if err != nil {
			return nil, fmt.Errorf("config: feedback band %q: bad threshold: %w", raw, err)
		}
		bands = append(bands, progress.FeedbackBand{Min: min, Message: strings.TrimSpace(message)})
	}
	return bands, nil
}

// CachePolicy maps the configured TTLs onto a cache policy.
func (c Config) CachePolicy() cache.Policy {
	policy := cache.DefaultPolicy()
	policy.VisualizationTTL = c.VisualizationTTL
	policy.APIResponseTTL = c.APIResponseTTL
	policy.MaxTTL = c.MaxTTL
	return policy
}
