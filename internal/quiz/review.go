package quiz

import (
	"math/rand"
	"sort"

	"quizmap-service/internal/domain"
)

// BuildReview gathers every weak question across subjects into one shuffled list.
// Each question keeps the subject it came from in OriginalCategory.
func BuildReview(p domain.PlayerProfile, rnd *rand.Rand) ([]domain.Question, error) {
	keys := make([]string, 0, len(p.WeakQuestions))
	for k := range p.WeakQuestions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pool []domain.Question
	for _, k := range keys {
		for _, q := range p.WeakQuestions[k] {
			q = q.Clone()
			if q.OriginalCategory == "" {
				q.OriginalCategory = k
			}
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return nil, domain.ErrEmptyAttempt
	}
	rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool, nil
}
