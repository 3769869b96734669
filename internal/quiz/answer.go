package quiz

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"quizmap-service/internal/domain"
)

var fold = cases.Lower(language.Und)

// Normalize trims surrounding whitespace and lowercases an answer for comparison.
func Normalize(answer string) string {
	return fold.String(strings.TrimSpace(answer))
}

// Matches reports whether the submitted answer equals the correct one after normalization.
// The rule is the same for every question kind, including literal "true"/"false".
func Matches(q domain.Question, answer string) bool {
	return Normalize(answer) == Normalize(q.CorrectAnswer)
}

// TimeoutSentinel is the recorded answer when the countdown expires.
func TimeoutSentinel(kind domain.QuestionKind) string {
	switch kind {
	case domain.KindMultipleChoice:
		return "timed_out_mcq"
	case domain.KindTrueFalse:
		return "timed_out_true_false"
	default:
		return "timed_out_fill_blank"
	}
}
