package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"quizmap-service/internal/contentgen"
)

// Storage drivers for the key-value store.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Storage struct {
		// Driver selects the key-value store. Empty picks the first configured
		// backend in the order postgres, sqlite, memory.
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Catalog struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalog"`
	Rules      Rules             `yaml:"rules"`
	ContentGen contentgen.Config `yaml:"contentgen"`
}

// Rules overrides game constants. Zero values keep the built-in defaults.
type Rules struct {
	ReviewPoints      int   `yaml:"review_points"`
	ExtraTimeSeconds  int   `yaml:"extra_time_seconds"`
	StreakBonusPerDay int   `yaml:"streak_bonus_per_day"`
	ScoreThresholds   []int `yaml:"score_thresholds"`
	LeaderboardSize   int   `yaml:"leaderboard_size"`
}

func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.ContentGen = contentgen.DefaultConfig()
	return cfg
}

// Load reads YAML config from path and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Port, "PORT")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Storage.Driver, "STORAGE_DRIVER")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Postgres.URL, "POSTGRES_URL")
	set(&cfg.SQLite.Path, "SQLITE_PATH")
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}

	set(&cfg.ContentGen.Provider, "CONTENTGEN_PROVIDER")
	set(&cfg.ContentGen.Gemini.APIKey, "GEMINI_API_KEY")
	set(&cfg.ContentGen.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&cfg.ContentGen.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&cfg.ContentGen.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	if m := getenv("CONTENTGEN_MODEL"); m != "" {
		switch cfg.ContentGen.Provider {
		case contentgen.ProviderGemini:
			cfg.ContentGen.Gemini.Model = m
		case contentgen.ProviderOpenAI:
			cfg.ContentGen.OpenAI.Model = m
		case contentgen.ProviderAnthropic:
			cfg.ContentGen.Anthropic.Model = m
		}
	}
}

func (c Config) Validate() error {
	switch c.StorageDriver() {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage driver postgres needs postgres.url")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage driver redis needs redis.addr")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if err := c.ContentGen.Validate(); err != nil {
		return fmt.Errorf("contentgen: %w", err)
	}
	return nil
}

// StorageDriver resolves the configured or implied storage backend.
func (c Config) StorageDriver() string {
	if c.Storage.Driver != "" {
		return strings.ToLower(c.Storage.Driver)
	}
	switch {
	case c.Postgres.URL != "":
		return DriverPostgres
	case c.SQLite.Path != "":
		return DriverSQLite
	default:
		return DriverMemory
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
