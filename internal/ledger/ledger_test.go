package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quizmap-service/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func question(prompt string) domain.Question {
	return domain.Question{Prompt: prompt, CorrectAnswer: "x", Body: domain.FillInTheBlank{}}
}

func result(q domain.Question, correct bool) domain.SessionResult {
	return domain.SessionResult{Question: q, UserAnswer: "a", IsCorrect: correct}
}

func TestApply_FirstPerfectAttempt(t *testing.T) {
	profile := NewProfile("Ada", "🦊")
	attempt := Attempt{SubjectKey: "Animals", RawPoints: 65, Correct: 5, Total: 5}

	res := Apply(profile, attempt, day("2024-03-01"), DefaultRules())
	p := res.Profile

	assert.Equal(t, 65, p.Score)
	assert.Equal(t, 65, res.PointsGained)
	assert.Equal(t, 1, p.Streak)
	assert.Nil(t, res.Streak)
	assert.Equal(t, "2024-03-01", p.LastQuizDate)
	assert.Equal(t, []string{"Animals"}, p.CompletedSubjects)
	assert.Equal(t, domain.SubjectProgress{Correct: 5, Total: 5}, p.SubjectProgress["Animals"])
	assert.Equal(t, []string{"first_quiz", "perfect_score", "animals_master"}, p.Badges)
	assert.Equal(t, p.Badges, res.NewBadges)

	assert.Equal(t, 0, profile.Score, "input profile must not change")
	assert.Empty(t, profile.CompletedSubjects)
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name       string
		last       string
		streak     int
		today      string
		wantStreak int
		wantBonus  int
	}{
		{"consecutive day", "2024-01-01", 3, "2024-01-02", 4, 20},
		{"gap resets", "2024-01-01", 3, "2024-01-05", 1, 0},
		{"same day unchanged", "2024-01-01", 3, "2024-01-01", 3, 15},
		{"never played", "", 0, "2024-01-01", 1, 0},
		{"month boundary", "2024-02-29", 1, "2024-03-01", 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := NewProfile("Ada", "")
			profile.LastQuizDate = tt.last
			profile.Streak = tt.streak

			res := Apply(profile, Attempt{SubjectKey: "Space", RawPoints: 10, Correct: 1, Total: 2}, day(tt.today), DefaultRules())
			assert.Equal(t, tt.wantStreak, res.Profile.Streak)
			assert.Equal(t, tt.today, res.Profile.LastQuizDate)
			assert.Equal(t, 10+tt.wantBonus, res.PointsGained)
			assert.Equal(t, 10+tt.wantBonus, res.Profile.Score)
			if tt.wantBonus == 0 {
				assert.Nil(t, res.Streak)
			} else {
				require.NotNil(t, res.Streak)
				assert.Equal(t, StreakNotice{Days: tt.wantStreak, Bonus: tt.wantBonus}, *res.Streak)
			}
		})
	}
}

func TestApply_WeakQuestionsDeduplicated(t *testing.T) {
	q := question("A baby kangaroo is called a ___.")
	profile := NewProfile("Ada", "")
	attempt := Attempt{SubjectKey: "Animals", Correct: 0, Total: 1, Results: []domain.SessionResult{result(q, false)}}

	first := Apply(profile, attempt, day("2024-01-01"), DefaultRules())
	second := Apply(first.Profile, attempt, day("2024-01-02"), DefaultRules())

	weak := second.Profile.WeakQuestions["Animals"]
	require.Len(t, weak, 1)
	assert.Equal(t, "Animals", weak[0].OriginalCategory)
}

func TestApply_ReviewRemovesOnlyCorrect(t *testing.T) {
	fixed := question("Bats are blind.")
	stuck := question("The fastest land animal is the ___.")
	other := question("What is the name of our galaxy?")

	profile := NewProfile("Ada", "")
	profile.Score = 40
	profile.CompletedSubjects = []string{"Animals", "Space"}
	profile.SubjectProgress = map[string]domain.SubjectProgress{"Animals": {Correct: 3, Total: 5}}
	profile.WeakQuestions = map[string][]domain.Question{
		"Animals": {tagged(fixed, "Animals"), tagged(stuck, "Animals")},
		"Space":   {tagged(other, "Space")},
	}

	attempt := Attempt{
		SubjectKey: "Personalized Review",
		Review:     true,
		RawPoints:  10,
		Correct:    2,
		Total:      3,
		Results: []domain.SessionResult{
			result(tagged(fixed, "Animals"), true),
			result(tagged(stuck, "Animals"), false),
			result(tagged(other, "Space"), true),
		},
	}
	res := Apply(profile, attempt, day("2024-01-01"), DefaultRules())
	p := res.Profile

	require.Len(t, p.WeakQuestions["Animals"], 1)
	assert.Equal(t, stuck.Prompt, p.WeakQuestions["Animals"][0].Prompt)
	assert.NotContains(t, p.WeakQuestions, "Space")

	assert.Equal(t, 50, p.Score)
	assert.Empty(t, p.Badges, "review attempts award no badges")
	assert.Equal(t, []string{"Animals", "Space"}, p.CompletedSubjects)
	assert.NotContains(t, p.SubjectProgress, "Personalized Review")
	assert.Equal(t, domain.SubjectProgress{Correct: 3, Total: 5}, p.SubjectProgress["Animals"])

	assert.Len(t, profile.WeakQuestions["Animals"], 2, "input profile must not change")
}

func tagged(q domain.Question, key string) domain.Question {
	q.OriginalCategory = key
	return q
}

func TestApply_SnapshotReplacedAndCompletionIdempotent(t *testing.T) {
	profile := NewProfile("Ada", "")
	first := Apply(profile, Attempt{SubjectKey: "Space", Correct: 5, Total: 5, RawPoints: 80}, day("2024-01-01"), DefaultRules())
	second := Apply(first.Profile, Attempt{SubjectKey: "Space", Correct: 1, Total: 5, RawPoints: 15}, day("2024-01-01"), DefaultRules())

	p := second.Profile
	assert.Equal(t, []string{"Space"}, p.CompletedSubjects)
	assert.Equal(t, domain.SubjectProgress{Correct: 1, Total: 5}, p.SubjectProgress["Space"])
	assert.Equal(t, 95, p.Score)
	assert.Equal(t, []string{"first_quiz", "perfect_score", "space_master"}, p.Badges)
	assert.Empty(t, second.NewBadges)
}

func TestApply_ScoreThresholdsUseUpdatedScore(t *testing.T) {
	profile := NewProfile("Ada", "")
	profile.Score = 490
	profile.LastQuizDate = "2024-01-01"
	profile.Streak = 1

	// The streak bonus alone pushes the score over 500.
	res := Apply(profile, Attempt{SubjectKey: "Space", Correct: 0, Total: 3}, day("2024-01-02"), DefaultRules())
	assert.Equal(t, 500, res.Profile.Score)
	assert.Contains(t, res.NewBadges, "score_100")
	assert.Contains(t, res.NewBadges, "score_500")
	assert.NotContains(t, res.NewBadges, "score_1000")
	assert.NotContains(t, res.NewBadges, "perfect_score")
}

func TestApply_MasteryWithoutQuestions(t *testing.T) {
	res := Apply(NewProfile("Ada", ""), Attempt{SubjectKey: "Empty Room"}, day("2024-01-01"), DefaultRules())
	assert.Contains(t, res.Profile.Badges, "empty_room_master")
	assert.NotContains(t, res.Profile.Badges, "perfect_score")
}

func TestApply_ScoreNeverDecreases(t *testing.T) {
	profile := NewProfile("Ada", "")
	profile.Score = 30
	res := Apply(profile, Attempt{SubjectKey: "Space", RawPoints: -50, Total: 1}, day("2024-01-01"), DefaultRules())
	assert.Equal(t, 30, res.Profile.Score)
	assert.Equal(t, 0, res.PointsGained)
}

func TestAwardBadge(t *testing.T) {
	p, added := AwardBadge(NewProfile("Ada", ""), domain.BadgeKindness)
	assert.True(t, added)
	p, added = AwardBadge(p, domain.BadgeKindness)
	assert.False(t, added)
	assert.Equal(t, []string{"kindness_badge"}, p.Badges)
}

func TestMasteryBadgeID(t *testing.T) {
	assert.Equal(t, "general_knowledge_master", MasteryBadgeID("General Knowledge"))
	assert.Equal(t, "a__b_master", MasteryBadgeID("A \tB"))
}
