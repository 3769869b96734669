package catalog

import (
	"fmt"
	"slices"
	"strings"

	"quizmap-service/internal/domain"
)

// DefaultPosition is where a new subject lands on the map when no position is given.
var DefaultPosition = domain.MapPosition{Top: "50%", Left: "50%"}

// AddSubject appends an empty subject named key. The key doubles as its title.
func AddSubject(c domain.Catalog, key string, pos domain.MapPosition) (domain.Catalog, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return c, &domain.ValidationError{Problems: []string{"subject name must not be empty"}}
	}
	if c.Has(key) {
		return c, &domain.ValidationError{Problems: []string{fmt.Sprintf("subject %q already exists", key)}}
	}
	if pos == (domain.MapPosition{}) {
		pos = DefaultPosition
	}

	next := c.Clone()
	next.Subjects = append(next.Subjects, domain.Subject{
		Key:           key,
		Title:         key,
		Prerequisites: []string{},
		MapPosition:   pos,
		Questions:     []domain.Question{},
	})
	return next, nil
}

// UpdateSubject replaces the questions, map position and prerequisites of key.
// Prerequisite names are trimmed and deduplicated; empty names are dropped.
func UpdateSubject(c domain.Catalog, key string, questions []domain.Question, pos domain.MapPosition, prereqs []string) (domain.Catalog, error) {
	idx := slices.IndexFunc(c.Subjects, func(s domain.Subject) bool { return s.Key == key })
	if idx < 0 {
		return c, fmt.Errorf("update %q: %w", key, domain.ErrSubjectNotFound)
	}

	cleaned := make([]string, 0, len(prereqs))
	for _, p := range prereqs {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(cleaned, p) {
			cleaned = append(cleaned, p)
		}
	}

	next := c.Clone()
	subject := &next.Subjects[idx]
	subject.Prerequisites = cleaned
	subject.MapPosition = pos
	subject.Questions = make([]domain.Question, len(questions))
	for i, q := range questions {
		subject.Questions[i] = q.Clone()
	}

	if err := Validate(next); err != nil {
		return c, err
	}
	return next, nil
}

// DeleteSubject removes key and strips it from every other subject's prerequisites.
func DeleteSubject(c domain.Catalog, key string) (domain.Catalog, error) {
	if !c.Has(key) {
		return c, fmt.Errorf("delete %q: %w", key, domain.ErrSubjectNotFound)
	}
	next := domain.Catalog{Subjects: make([]domain.Subject, 0, c.Len()-1)}
	for _, s := range c.Subjects {
		if s.Key == key {
			continue
		}
		s = s.Clone()
		s.Prerequisites = slices.DeleteFunc(s.Prerequisites, func(p string) bool { return p == key })
		next.Subjects = append(next.Subjects, s)
	}
	return next, nil
}

// AppendQuestions adds drafts (usually generated ones) to the end of key's question list.
func AppendQuestions(c domain.Catalog, key string, drafts []domain.Question) (domain.Catalog, error) {
	s, ok := c.Get(key)
	if !ok {
		return c, fmt.Errorf("append to %q: %w", key, domain.ErrSubjectNotFound)
	}
	questions := append(slices.Clone(s.Questions), drafts...)
	return UpdateSubject(c, key, questions, s.MapPosition, s.Prerequisites)
}
