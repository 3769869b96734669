package domain

import "slices"

// Badge ids awarded by the progress ledger.
const (
	BadgeFirstQuiz    = "first_quiz"
	BadgePerfectScore = "perfect_score"
	BadgeKindness     = "kindness_badge"
)

// Achievement is the display metadata for a badge id.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Achievements is the static catalog shown to players, in display order.
var Achievements = []Achievement{
	{ID: BadgeFirstQuiz, Name: "First Step", Description: "Complete your very first quiz!", Icon: "🌟"},
	{ID: BadgePerfectScore, Name: "Quiz Whiz", Description: "Achieve a perfect score on any quiz!", Icon: "💯"},
	{ID: "general_knowledge_master", Name: "General Knowledge Guru", Description: "Master the General Knowledge subject!", Icon: "🧠"},
	{ID: "animals_master", Name: "Animal Kingdom Expert", Description: "Master the Animals subject!", Icon: "🐾"},
	{ID: "space_master", Name: "Cosmic Explorer", Description: "Master the Space subject!", Icon: "🌌"},
	{ID: "score_100", Name: "Score Seeker (100)", Description: "Reach a total score of 100 points!", Icon: "🏆"},
	{ID: "score_500", Name: "Score Seeker (500)", Description: "Reach a total score of 500 points!", Icon: "🏅"},
	{ID: "score_1000", Name: "Score Seeker (1000)", Description: "Reach a total score of 1000 points!", Icon: "💎"},
	{ID: BadgeKindness, Name: "Kindness Champion", Description: "Show kindness in a story!", Icon: "💖"},
}

// SplitAchievements partitions the catalog into earned and upcoming entries.
// Badge ids with no catalog entry (mastery of admin-added subjects) are not listed.
func SplitAchievements(badges []string) (earned, upcoming []Achievement) {
	earned = []Achievement{}
	upcoming = []Achievement{}
	for _, a := range Achievements {
		if slices.Contains(badges, a.ID) {
			earned = append(earned, a)
		} else {
			upcoming = append(upcoming, a)
		}
	}
	return earned, upcoming
}
