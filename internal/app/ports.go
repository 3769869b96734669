package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizmap-service/internal/catalog"
	"quizmap-service/internal/domain"
	"quizmap-service/internal/quiz"
)

// Store is the key-value persistence port. Load returns domain.ErrNotFound for
// keys that were never saved.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CatalogRepository serves the subject catalog, usually from a cache.
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
	// Invalidate drops any cached copy after the stored catalog changed.
	Invalidate(ctx context.Context) error
}

// AttemptRegistry holds the live attempt of each player.
type AttemptRegistry interface {
	Put(player string, a *quiz.Attempt)
	Get(player string) (*quiz.Attempt, bool)
	Delete(player string)
}

const (
	KeyRoster      = "players"
	KeyLeaderboard = "leaderboard"
	KeyCatalog     = "catalog"
)

func IdentityKey(token string) string { return "identity:" + token }

// StoreCatalogLoader reads the catalog from a Store and seeds the default
// catalog the first time it is asked for.
type StoreCatalogLoader struct {
	store Store
}

func NewStoreCatalogLoader(store Store) *StoreCatalogLoader {
	return &StoreCatalogLoader{store: store}
}

func (l *StoreCatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	c, found, err := loadJSON[domain.Catalog](ctx, l.store, KeyCatalog)
	if err != nil {
		return domain.Catalog{}, err
	}
	if found {
		return c, nil
	}
	c = catalog.DefaultCatalog()
	if err := saveJSON(ctx, l.store, KeyCatalog, c); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

func loadJSON[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var v T
	raw, err := store.Load(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

func saveJSON(ctx context.Context, store Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Save(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
