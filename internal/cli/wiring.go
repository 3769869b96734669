package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"quizmap-service/internal/app"
	"quizmap-service/internal/config"
	"quizmap-service/internal/contentgen"
	"quizmap-service/internal/infra/memory"
	"quizmap-service/internal/infra/postgres"
	redisinfra "quizmap-service/internal/infra/redis"
	"quizmap-service/internal/infra/sqlite"
)

// deps is the wired service plus everything that must be closed on exit.
type deps struct {
	service *app.Service
	closers []func() error
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, redisClient.Close)
	}

	store, err := openStore(ctx, cfg, redisClient, d)
	if err != nil {
		d.Close()
		return nil, err
	}

	loader := app.NewStoreCatalogLoader(store)
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	attemptTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	var (
		catalogs app.CatalogRepository
		attempts app.AttemptRegistry
	)
	if redisClient != nil {
		catalogs = redisinfra.NewCatalogRepository(redisClient, loader, catalogTTL)
		attempts = redisinfra.NewAttemptRegistry(redisClient, attemptTTL)
	} else {
		catalogs = memory.NewCatalogRepository(loader, catalogTTL)
		attempts = memory.NewAttemptRegistry()
	}

	provider, err := contentgen.NewProvider(ctx, cfg.ContentGen)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("content generation: %w", err)
	}

	d.service = app.NewService(store, catalogs, attempts,
		app.WithRules(rulesFromConfig(cfg.Rules)),
		app.WithGenerator(contentgen.NewLLMGenerator(provider, cfg.ContentGen, logger)),
		app.WithLogger(logger),
	)
	if err := d.service.Ready(ctx); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info("service ready",
		"storage", cfg.StorageDriver(),
		"redis", redisClient != nil,
		"contentgen", cfg.ContentGen.Provider,
	)
	return d, nil
}

func openStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, d *deps) (app.Store, error) {
	switch cfg.StorageDriver() {
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
		return postgres.NewStore(pool), nil
	case config.DriverSQLite:
		s, err := sqlite.OpenFile(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, s.Close)
		return s, nil
	case config.DriverRedis:
		return redisinfra.NewStore(redisClient), nil
	default:
		return memory.NewStore(), nil
	}
}

func rulesFromConfig(r config.Rules) app.Rules {
	rules := app.DefaultRules()
	if r.ReviewPoints > 0 {
		rules.Attempt.ReviewPoints = r.ReviewPoints
	}
	if r.ExtraTimeSeconds > 0 {
		rules.Attempt.ExtraTimeSeconds = r.ExtraTimeSeconds
	}
	if r.StreakBonusPerDay > 0 {
		rules.Ledger.StreakBonusPerDay = r.StreakBonusPerDay
	}
	if len(r.ScoreThresholds) > 0 {
		rules.Ledger.ScoreThresholds = r.ScoreThresholds
	}
	if r.LeaderboardSize > 0 {
		rules.LeaderboardSize = r.LeaderboardSize
	}
	return rules
}
