package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizmap-service/internal/contentgen"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
storage:
  driver: sqlite
sqlite:
  path: /tmp/quizmap.db
redis:
  addr: localhost:6379
  ttl: 5m
rules:
  review_points: 3
  score_thresholds: [50, 150]
contentgen:
  provider: mock
  timeout: 10s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env port, got %q", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Log.Level)
	}
	if cfg.StorageDriver() != DriverSQLite || cfg.SQLite.Path != "/tmp/quizmap.db" {
		t.Fatalf("unexpected storage %q %q", cfg.StorageDriver(), cfg.SQLite.Path)
	}
	if cfg.Rules.ReviewPoints != 3 || len(cfg.Rules.ScoreThresholds) != 2 {
		t.Fatalf("unexpected rules %+v", cfg.Rules)
	}
	if cfg.ContentGen.Provider != contentgen.ProviderMock || cfg.ContentGen.Timeout != 10*time.Second {
		t.Fatalf("unexpected contentgen %+v", cfg.ContentGen)
	}
	// Defaults survive a partial contentgen section.
	if cfg.ContentGen.Gemini.Model != "gemini-flash" {
		t.Fatalf("expected default gemini model, got %q", cfg.ContentGen.Gemini.Model)
	}
	if TTLDuration(cfg.Redis.TTL, time.Minute) != 5*time.Minute {
		t.Fatalf("unexpected redis ttl %q", cfg.Redis.TTL)
	}
}

func TestStorageDriverInference(t *testing.T) {
	cfg := Default()
	if cfg.StorageDriver() != DriverMemory {
		t.Fatalf("expected memory default, got %q", cfg.StorageDriver())
	}
	cfg.SQLite.Path = "quizmap.db"
	if cfg.StorageDriver() != DriverSQLite {
		t.Fatalf("expected sqlite, got %q", cfg.StorageDriver())
	}
	cfg.Postgres.URL = "postgres://localhost/quizmap"
	if cfg.StorageDriver() != DriverPostgres {
		t.Fatalf("expected postgres, got %q", cfg.StorageDriver())
	}
}

func TestValidateRejectsMisconfiguration(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = DriverRedis
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected redis driver without addr to fail")
	}

	cfg = Default()
	cfg.Storage.Driver = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}

	cfg = Default()
	cfg.ContentGen.Provider = contentgen.ProviderGemini
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected gemini without key to fail")
	}
}

func TestApplyEnvModelFollowsProvider(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"CONTENTGEN_PROVIDER": "openai",
		"OPENAI_API_KEY":      "sk-test",
		"CONTENTGEN_MODEL":    "gpt-4o",
		"REDIS_DB":            "2",
	}
	applyEnv(&cfg, func(k string) string { return env[k] })

	if cfg.ContentGen.OpenAI.Model != "gpt-4o" || cfg.ContentGen.OpenAI.APIKey != "sk-test" {
		t.Fatalf("unexpected openai config %+v", cfg.ContentGen.OpenAI)
	}
	if cfg.ContentGen.Gemini.Model != "gemini-flash" {
		t.Fatalf("other providers must keep their model")
	}
	if cfg.Redis.DB != 2 {
		t.Fatalf("expected redis db 2, got %d", cfg.Redis.DB)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
