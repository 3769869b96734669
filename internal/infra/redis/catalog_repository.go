package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quizmap-service/internal/domain"
)

// CatalogLoader fetches the catalog from the backing store.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// CatalogRepository caches the catalog in Redis and falls back to a loader on a miss.
// Subjects are stored as: HSET quizmap:catalog s:{subjectKey} {subject JSON}
// Display order is kept in the field "order" as a JSON list of keys.
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	// gen is bumped by Invalidate; a load that started under an older gen does not fill the hash.
	gen atomic.Uint64
}

const (
	catalogKey = "quizmap:catalog"
	orderField = "order"
)

func subjectField(key string) string { return "s:" + key }

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	if c, ok := r.cached(ctx); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if c, ok := r.cached(ctx); ok {
			return c, nil
		}

		gen := r.gen.Load()
		c, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}

		// A failed cache fill only costs a reload next time.
		if r.gen.Load() == gen {
			_ = r.fill(ctx, c)
		}
		return c, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog).Clone(), nil
}

func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	r.gen.Add(1)
	r.sf.Forget(catalogKey)
	return r.client.Del(ctx, catalogKey).Err()
}

func (r *CatalogRepository) fill(ctx context.Context, c domain.Catalog) error {
	order, err := json.Marshal(c.Keys())
	if err != nil {
		return err
	}
	fields := make([]interface{}, 0, 2*(c.Len()+1))
	fields = append(fields, orderField, order)
	for _, s := range c.Subjects {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode subject %q: %w", s.Key, err)
		}
		fields = append(fields, subjectField(s.Key), raw)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, catalogKey)
	pipe.HSet(ctx, catalogKey, fields...)
	if ttl := r.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, catalogKey, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *CatalogRepository) cached(ctx context.Context) (domain.Catalog, bool) {
	fields, err := r.client.HGetAll(ctx, catalogKey).Result()
	if err != nil || len(fields) == 0 {
		return domain.Catalog{}, false
	}
	c, err := buildCatalogFromCache(fields)
	if err != nil {
		return domain.Catalog{}, false
	}
	return c, true
}

func buildCatalogFromCache(fields map[string]string) (domain.Catalog, error) {
	var order []string
	if err := json.Unmarshal([]byte(fields[orderField]), &order); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode catalog order: %w", err)
	}
	subjects := make([]domain.Subject, 0, len(order))
	for _, key := range order {
		raw, ok := fields[subjectField(key)]
		if !ok {
			return domain.Catalog{}, fmt.Errorf("catalog cache missing subject %q", key)
		}
		var s domain.Subject
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return domain.Catalog{}, fmt.Errorf("decode subject %q: %w", key, err)
		}
		subjects = append(subjects, s)
	}
	return domain.Catalog{Subjects: subjects}, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
