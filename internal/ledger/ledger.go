// Package ledger folds finished attempts into a player's persistent profile.
package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"quizmap-service/internal/domain"
)

const dateLayout = "2006-01-02"

// Rules are the scoring constants applied by the ledger.
type Rules struct {
	StreakBonusPerDay int
	ScoreThresholds   []int
}

func DefaultRules() Rules {
	return Rules{StreakBonusPerDay: 5, ScoreThresholds: []int{100, 500, 1000}}
}

// Attempt is a finished attempt as seen by the ledger.
type Attempt struct {
	SubjectKey string
	Review     bool
	RawPoints  int
	Correct    int
	Total      int
	Results    []domain.SessionResult
}

// StreakNotice is surfaced to the player when a streak bonus applies. It is not stored.
type StreakNotice struct {
	Days  int `json:"days"`
	Bonus int `json:"bonus"`
}

// Result is the updated profile plus what changed, for display.
type Result struct {
	Profile      domain.PlayerProfile `json:"profile"`
	PointsGained int                  `json:"pointsGained"`
	Streak       *StreakNotice        `json:"streak,omitempty"`
	NewBadges    []string             `json:"newBadges"`
}

// NewProfile is the empty career created on first name entry.
func NewProfile(name, avatar string) domain.PlayerProfile {
	return domain.PlayerProfile{
		Name:              name,
		Avatar:            avatar,
		CompletedSubjects: []string{},
		SubjectProgress:   map[string]domain.SubjectProgress{},
		Badges:            []string{},
		WeakQuestions:     map[string][]domain.Question{},
	}
}

// Apply folds attempt into a copy of profile. The input profile is never modified.
//
// Order matters: the streak bonus is added to the attempt points before the
// score update, and badges are evaluated against the updated score, so a
// streak bonus alone can cross a score threshold.
func Apply(profile domain.PlayerProfile, attempt Attempt, today time.Time, rules Rules) Result {
	p := profile.Clone()
	res := Result{NewBadges: []string{}}

	p.Streak = StreakAfter(p.LastQuizDate, p.Streak, today)
	p.LastQuizDate = today.Format(dateLayout)

	points := attempt.RawPoints
	if p.Streak > 1 {
		bonus := p.Streak * rules.StreakBonusPerDay
		points += bonus
		res.Streak = &StreakNotice{Days: p.Streak, Bonus: bonus}
	}

	trackWeakQuestions(&p, attempt)

	if !attempt.Review {
		p.SubjectProgress[attempt.SubjectKey] = domain.SubjectProgress{
			Correct: attempt.Correct,
			Total:   attempt.Total,
		}
		if !p.HasCompleted(attempt.SubjectKey) {
			p.CompletedSubjects = append(p.CompletedSubjects, attempt.SubjectKey)
		}
	}

	points = max(0, points)
	p.Score += points
	res.PointsGained = points

	if !attempt.Review {
		perfect := attempt.Correct == attempt.Total
		award := func(id string, ok bool) {
			if ok && !p.HasBadge(id) {
				p.Badges = append(p.Badges, id)
				res.NewBadges = append(res.NewBadges, id)
			}
		}
		award(domain.BadgeFirstQuiz, true)
		award(domain.BadgePerfectScore, perfect && attempt.Total > 0)
		award(MasteryBadgeID(attempt.SubjectKey), perfect)
		for _, threshold := range rules.ScoreThresholds {
			award(ScoreBadgeID(threshold), p.Score >= threshold)
		}
	}

	res.Profile = p
	return res
}

// trackWeakQuestions files each result under the subject it originally came from.
// Review attempts clear correctly answered questions; normal attempts add wrong ones.
func trackWeakQuestions(p *domain.PlayerProfile, attempt Attempt) {
	for _, r := range attempt.Results {
		key := r.Question.OriginalCategory
		if key == "" {
			key = attempt.SubjectKey
		}
		weak := p.WeakQuestions[key]

		switch {
		case attempt.Review && r.IsCorrect:
			weak = slices.DeleteFunc(weak, func(q domain.Question) bool { return q.Prompt == r.Question.Prompt })
		case !attempt.Review && !r.IsCorrect:
			if slices.ContainsFunc(weak, func(q domain.Question) bool { return q.Prompt == r.Question.Prompt }) {
				continue
			}
			q := r.Question.Clone()
			q.OriginalCategory = key
			weak = append(weak, q)
		default:
			continue
		}

		if len(weak) == 0 {
			delete(p.WeakQuestions, key)
		} else {
			p.WeakQuestions[key] = weak
		}
	}
}

// StreakAfter computes the streak for an attempt made on today given the previous
// attempt date. A same-day repeat keeps the streak, yesterday extends it and
// anything else starts over at 1.
func StreakAfter(lastQuizDate string, streak int, today time.Time) int {
	todayStr := today.Format(dateLayout)
	switch lastQuizDate {
	case "":
		return 1
	case todayStr:
		return streak
	case today.AddDate(0, 0, -1).Format(dateLayout):
		return streak + 1
	}
	return 1
}

// AwardBadge adds a badge outside of quiz scoring, such as a story reward.
// It reports whether the badge was new.
func AwardBadge(profile domain.PlayerProfile, id string) (domain.PlayerProfile, bool) {
	p := profile.Clone()
	if id == "" || p.HasBadge(id) {
		return p, false
	}
	p.Badges = append(p.Badges, id)
	return p, true
}

var lower = cases.Lower(language.Und)

// MasteryBadgeID derives the per-subject mastery badge id, e.g. "General Knowledge" -> "general_knowledge_master".
func MasteryBadgeID(subjectKey string) string {
	id := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, lower.String(subjectKey))
	return id + "_master"
}

func ScoreBadgeID(threshold int) string {
	return fmt.Sprintf("score_%d", threshold)
}
