package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoragePath != "mlsite.db" {
		t.Errorf("StoragePath = %q", cfg.StoragePath)
	}
	if cfg.VisualizationTTL != 2*time.Hour {
		t.Errorf("VisualizationTTL = %v, want 2h", cfg.VisualizationTTL)
	}
	if cfg.APIResponseTTL != 30*time.Minute {
		t.Errorf("APIResponseTTL = %v, want 30m", cfg.APIResponseTTL)
	}
	if cfg.GenerationTimeout != 30*time.Second {
		t.Errorf("GenerationTimeout = %v, want 30s", cfg.GenerationTimeout)
	}
	if cfg.ClearCompletedOnRegress {
		t.Error("ClearCompletedOnRegress should default to false")
	}
	if cfg.TracingExporter != "none" || cfg.MetricsExporter != "none" {
		t.Errorf("exporters = %q/%q, want none/none", cfg.TracingExporter, cfg.MetricsExporter)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MLSITE_DB_PATH", "/var/lib/mlsite/site.db")
	t.Setenv("MLSITE_CACHE_VISUALIZATION_TTL", "45m")
	t.Setenv("MLSITE_CLEAR_COMPLETED_ON_REGRESS", "true")
	t.Setenv("MLSITE_API_KEYS", "key-one,key-two")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoragePath != "/var/lib/mlsite/site.db" {
		t.Errorf("StoragePath = %q", cfg.StoragePath)
	}
	if cfg.VisualizationTTL != 45*time.Minute {
		t.Errorf("VisualizationTTL = %v, want 45m", cfg.VisualizationTTL)
	}
	if !cfg.ClearCompletedOnRegress {
		t.Error("ClearCompletedOnRegress should be true")
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[0] != "key-one" {
		t.Errorf("APIKeys = %v", cfg.APIKeys)
	}
}

func TestLoad_SecretExpansion(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN", "s3cr3t")
	t.Setenv("MLSITE_JWT_SECRET", "${OPERATOR_TOKEN}")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.JWTSecret != "s3cr3t" {
		t.Errorf("JWTSecret = %q, want expanded secret", cfg.JWTSecret)
	}
}

func TestLoad_MissingSecretErrors(t *testing.T) {
	t.Setenv("MLSITE_JWT_SECRET", "${MLSITE_TEST_UNSET_VAR}")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when a referenced variable is unset")
	}
}

func TestLoad_InvalidExporter(t *testing.T) {
	t.Setenv("MLSITE_METRICS_EXPORTER", "statsd")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject an unknown metrics exporter")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		StoragePath:       "site.db",
		VisualizationTTL:  time.Hour,
		APIResponseTTL:    30 * time.Minute,
		MaxTTL:            24 * time.Hour,
		GenerationTimeout: 30 * time.Second,
		TracingExporter:   "none",
		MetricsExporter:   "none",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"empty path", func(c *Config) { c.StoragePath = "" }, "storage path"},
		{"zero ttl", func(c *Config) { c.VisualizationTTL = 0 }, "TTLs must be positive"},
		{"ttl over max", func(c *Config) { c.VisualizationTTL = 48 * time.Hour }, "exceed max"},
		{"zero timeout", func(c *Config) { c.GenerationTimeout = 0 }, "timeout"},
		{"bad tracing", func(c *Config) { c.TracingExporter = "jaeger" }, "tracing exporter"},
		{"band without message", func(c *Config) { c.QuizFeedbackBands = []string{"70"} }, "min:message"},
		{"band bad threshold", func(c *Config) { c.QuizFeedbackBands = []string{"high:Pass"} }, "bad threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestTrackerConfig_FeedbackBands(t *testing.T) {
	t.Setenv("MLSITE_QUIZ_FEEDBACK_BANDS", "60:Pass;0:Try again")
	t.Setenv("MLSITE_CLEAR_COMPLETED_ON_REGRESS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tc, err := cfg.TrackerConfig()
	if err != nil {
		t.Fatalf("TrackerConfig failed: %v", err)
	}
	if !tc.ClearCompletedOnRegress {
		t.Error("ClearCompletedOnRegress should carry through")
	}
	if len(tc.FeedbackBands) != 2 {
		t.Fatalf("bands = %v, want 2", tc.FeedbackBands)
	}
	if tc.FeedbackBands[0].Min != 60 || tc.FeedbackBands[0].Message != "Pass" {
		t.Errorf("bands[0] = %+v", tc.FeedbackBands[0])
	}
	if tc.FeedbackBands[1].Min != 0 || tc.FeedbackBands[1].Message != "Try again" {
		t.Errorf("bands[1] = %+v", tc.FeedbackBands[1])
	}
}

func TestTrackerConfig_DefaultBands(t *testing.T) {
	var cfg Config
	tc, err := cfg.TrackerConfig()
	if err != nil {
		t.Fatalf("TrackerConfig failed: %v", err)
	}
	if len(tc.FeedbackBands) != 0 {
		t.Errorf("bands = %v, want none so the tracker falls back to its defaults", tc.FeedbackBands)
	}
}

func TestCachePolicy(t *testing.T) {
	cfg := Config{
		VisualizationTTL: time.Hour,
		APIResponseTTL:   10 * time.Minute,
		MaxTTL:           12 * time.Hour,
	}
	policy := cfg.CachePolicy()
	if policy.VisualizationTTL != time.Hour {
		t.Errorf("VisualizationTTL = %v", policy.VisualizationTTL)
	}
	if policy.APIResponseTTL != 10*time.Minute {
		t.Errorf("APIResponseTTL = %v", policy.APIResponseTTL)
	}
	if policy.MaxTTL != 12*time.Hour {
		t.Errorf("MaxTTL = %v", policy.MaxTTL)
	}
}
