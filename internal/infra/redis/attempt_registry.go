package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizmap-service/internal/quiz"
)

// AttemptRegistry is a Redis-aware implementation of app.AttemptRegistry.
// Attempts hold a running countdown, so they stay in this process; Redis only
// carries a liveness marker per player that other instances and operators can see.
type AttemptRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*quiz.Attempt
}

func NewAttemptRegistry(client *redis.Client, ttl time.Duration) *AttemptRegistry {
	return &AttemptRegistry{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*quiz.Attempt),
	}
}

func (r *AttemptRegistry) Put(player string, a *quiz.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[player] = a
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(player), a.ID(), r.ttl).Err()
}

func (r *AttemptRegistry) Get(player string) (*quiz.Attempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[player]
	return a, ok
}

func (r *AttemptRegistry) Delete(player string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[player]; !ok {
		return
	}
	delete(r.attempts, player)
	_ = r.client.Del(context.Background(), r.key(player)).Err()
}

func (r *AttemptRegistry) key(player string) string {
	return "quizmap:attempt:" + player
}
