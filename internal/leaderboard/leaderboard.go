package leaderboard

import (
	"slices"

	"quizmap-service/internal/domain"
)

// DefaultSize caps the number of ranked entries.
const DefaultSize = 30

// Record replaces name's entry with its latest score and returns the re-ranked board.
// Equal scores keep their relative insertion order. The input slice is not modified.
func Record(entries []domain.LeaderboardEntry, name string, score int, avatar string, size int) []domain.LeaderboardEntry {
	next := make([]domain.LeaderboardEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.Name != name {
			next = append(next, e)
		}
	}
	next = append(next, domain.LeaderboardEntry{Name: name, Score: score, Avatar: avatar})
	return Normalize(next, size)
}

// Reset returns an empty board.
func Reset() []domain.LeaderboardEntry {
	return []domain.LeaderboardEntry{}
}

// Normalize sorts by score descending and truncates to size. It is applied to
// stored boards on load so that hand-edited or legacy data is ranked again.
func Normalize(entries []domain.LeaderboardEntry, size int) []domain.LeaderboardEntry {
	if size <= 0 {
		size = DefaultSize
	}
	out := slices.Clone(entries)
	if out == nil {
		out = []domain.LeaderboardEntry{}
	}
	slices.SortStableFunc(out, func(a, b domain.LeaderboardEntry) int {
		return b.Score - a.Score
	})
	if len(out) > size {
		out = out[:size]
	}
	return out
}
