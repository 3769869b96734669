package memory

import (
	"sync"

	"quizmap-service/internal/quiz"
)

// AttemptRegistry is an in-memory implementation of app.AttemptRegistry.
type AttemptRegistry struct {
	mu       sync.RWMutex
	attempts map[string]*quiz.Attempt
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		attempts: make(map[string]*quiz.Attempt),
	}
}

func (r *AttemptRegistry) Put(player string, a *quiz.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[player] = a
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
	delete(r.attempts, player)
}
