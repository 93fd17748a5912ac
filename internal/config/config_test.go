package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databasePathEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()

	if cfg.Storage.DatabasePath != "storage/articles.db" {
		t.Fatalf("database path = %q", cfg.Storage.DatabasePath)
	}
	if cfg.Storage.RetentionDays != 7 {
		t.Fatalf("retention days = %d", cfg.Storage.RetentionDays)
	}
	if cfg.Scheduler.Staleness.Std() != 15*time.Minute {
		t.Fatalf("staleness = %v", cfg.Scheduler.Staleness.Std())
	}
	if len(cfg.Groq.Models) != 3 || cfg.Groq.Models[0] != "llama3-70b-8192" {
		t.Fatalf("models = %v", cfg.Groq.Models)
	}
	if cfg.Groq.Pacing.Std() != 400*time.Millisecond {
		t.Fatalf("pacing = %v", cfg.Groq.Pacing.Std())
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Name != "newsapi" {
		t.Fatalf("providers = %v", cfg.Providers)
	}
}

func TestLoadMergesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
logging:
  level: debug
storage:
  retentionDays: 3
scheduler:
  staleness: 5m
groq:
  models:
    - only-model
  pacing: 1s
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(logLevelEnv, "")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.Storage.RetentionDays != 3 {
		t.Fatalf("retention days = %d", cfg.Storage.RetentionDays)
	}
	if cfg.Scheduler.Staleness.Std() != 5*time.Minute {
		t.Fatalf("staleness = %v", cfg.Scheduler.Staleness.Std())
	}
	if len(cfg.Groq.Models) != 1 || cfg.Groq.Models[0] != "only-model" {
		t.Fatalf("models = %v", cfg.Groq.Models)
	}
	if cfg.Groq.Pacing.Std() != time.Second {
		t.Fatalf("pacing = %v", cfg.Groq.Pacing.Std())
	}

	// Untouched sections keep their defaults.
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.NewsAPI.PageSize != 100 {
		t.Fatalf("page size = %d", cfg.NewsAPI.PageSize)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  databasePath: from-file.db\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databasePathEnv, "from-env.db")
	t.Setenv(groqAPIKeyEnv, "gsk_test")
	t.Setenv(serverAddrEnv, ":9999")

	cfg := Load()

	if cfg.Storage.DatabasePath != "from-env.db" {
		t.Fatalf("database path = %q, env must win", cfg.Storage.DatabasePath)
	}
	if cfg.Groq.APIKey != "gsk_test" {
		t.Fatalf("groq key = %q", cfg.Groq.APIKey)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadToleratesBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{{ not yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Storage.DatabasePath != "storage/articles.db" {
		t.Fatalf("broken file must fall back to defaults, got %q", cfg.Storage.DatabasePath)
	}
}

func TestDurationYAMLRoundtrip(t *testing.T) {
	t.Parallel()

	var parsed struct {
		Interval Duration `yaml:"interval"`
	}
	if err := yaml.Unmarshal([]byte("interval: 90s\n"), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Interval.Std() != 90*time.Second {
		t.Fatalf("interval = %v", parsed.Interval.Std())
	}

	out, err := yaml.Marshal(parsed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "interval: 1m30s\n" {
		t.Fatalf("marshalled = %q", out)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	t.Parallel()

	var parsed struct {
		Interval Duration `yaml:"interval"`
	}
	if err := yaml.Unmarshal([]byte("interval: soonish\n"), &parsed); err == nil {
		t.Fatalf("expected parse error")
	}
}
