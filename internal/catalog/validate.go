package catalog

import (
	"fmt"
	"slices"
	"strings"

	"quizmap-service/internal/domain"
)

// Validate performs every structural check on the catalog and returns a
// *domain.ValidationError listing all problems, or nil if the catalog is valid.
func Validate(c domain.Catalog) error {
	var problems []string

	keys := make(map[string]bool, c.Len())
	for _, s := range c.Subjects {
		if strings.TrimSpace(s.Key) == "" {
			problems = append(problems, "subject key must not be empty")
			continue
		}
		if keys[s.Key] {
			problems = append(problems, fmt.Sprintf("duplicate subject %q", s.Key))
		}
		keys[s.Key] = true
	}

	for _, s := range c.Subjects {
		for _, prereq := range s.Prerequisites {
			switch {
			case prereq == s.Key:
				problems = append(problems, fmt.Sprintf("subject %q lists itself as a prerequisite", s.Key))
			case !keys[prereq]:
				problems = append(problems, fmt.Sprintf("subject %q references nonexistent prerequisite %q", s.Key, prereq))
			}
		}
		for i, q := range s.Questions {
			for _, p := range ValidateQuestion(q) {
				problems = append(problems, fmt.Sprintf("subject %q question %d: %s", s.Key, i+1, p))
			}
		}
	}

	if _, err := TopologicalOrder(c); err != nil {
		problems = append(problems, err.Error())
	}

	return domain.NewValidationError(problems)
}

// ValidateQuestion lists the structural problems of a single question.
func ValidateQuestion(q domain.Question) []string {
	var problems []string
	if strings.TrimSpace(q.Prompt) == "" {
		problems = append(problems, "question text must not be empty")
	}
	answer := strings.TrimSpace(q.CorrectAnswer)
	if answer == "" {
		problems = append(problems, "correct answer must not be empty")
	}
	if q.Points < 0 {
		problems = append(problems, fmt.Sprintf("points must be >= 0, got %d", q.Points))
	}
	if q.TimeLimit < 0 {
		problems = append(problems, fmt.Sprintf("time limit must be >= 0, got %d", q.TimeLimit))
	}

	switch body := q.Body.(type) {
	case domain.MultipleChoice:
		if len(body.Options) < 2 {
			problems = append(problems, fmt.Sprintf("multiple-choice needs at least 2 options, got %d", len(body.Options)))
		}
		if answer != "" && !slices.ContainsFunc(body.Options, func(o string) bool {
			return strings.EqualFold(strings.TrimSpace(o), answer)
		}) {
			problems = append(problems, fmt.Sprintf("correct answer %q is not one of the options", q.CorrectAnswer))
		}
	case domain.TrueFalse:
		if answer != "" && !strings.EqualFold(answer, "true") && !strings.EqualFold(answer, "false") {
			problems = append(problems, fmt.Sprintf("true-false answer must be true or false, got %q", q.CorrectAnswer))
		}
	}
	return problems
}
