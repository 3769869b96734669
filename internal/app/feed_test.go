package app

import (
	"testing"

	"quizmap-service/internal/domain"
)

func TestFeedDropsStaleUpdatesForSlowSubscribers(t *testing.T) {
	feed := newLeaderboardFeed()
	ch, cancel := feed.subscribe(nil)
	defer cancel()

	// Never read: the buffer fills and older snapshots give way to newer ones.
	for score := 1; score <= 20; score++ {
		feed.broadcast([]domain.LeaderboardEntry{{Name: "ada", Score: score}})
	}

	var last []domain.LeaderboardEntry
	for len(ch) > 0 {
		last = <-ch
	}
	if len(last) != 1 || last[0].Score != 20 {
		t.Fatalf("expected latest snapshot to survive, got %+v", last)
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	feed := newLeaderboardFeed()
	ch, cancel := feed.subscribe([]domain.LeaderboardEntry{{Name: "ada", Score: 3}})

	initial := <-ch
	if len(initial) != 1 || initial[0].Score != 3 {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	feed.broadcast(nil)
}

func TestFeedSnapshotsAreIndependent(t *testing.T) {
	feed := newLeaderboardFeed()
	a, cancelA := feed.subscribe(nil)
	defer cancelA()
	b, cancelB := feed.subscribe(nil)
	defer cancelB()
	<-a
	<-b

	entries := []domain.LeaderboardEntry{{Name: "ada", Score: 1}}
	feed.broadcast(entries)
	got := <-a
	got[0].Score = 99
	if other := <-b; other[0].Score != 1 {
		t.Fatalf("subscribers share backing arrays")
	}
	if entries[0].Score != 1 {
		t.Fatalf("broadcast mutated caller slice")
	}
}
