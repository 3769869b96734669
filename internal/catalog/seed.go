package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
	"quizmap-service/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Subjects []seedSubject `yaml:"subjects"`
}

type seedSubject struct {
	Key           string                  `yaml:"key"`
	Title         string                  `yaml:"title"`
	Prerequisites []string                `yaml:"prerequisites"`
	MapPosition   domain.MapPosition      `yaml:"mapPosition"`
	Questions     []domain.QuestionRecord `yaml:"questions"`
}

// LoadSeed decodes a YAML catalog and validates it.
func LoadSeed(r io.Reader) (domain.Catalog, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode seed: %w", err)
	}

	c := domain.Catalog{Subjects: make([]domain.Subject, 0, len(file.Subjects))}
	for _, s := range file.Subjects {
		subject := domain.Subject{
			Key:           s.Key,
			Title:         s.Title,
			Prerequisites: append([]string{}, s.Prerequisites...),
			MapPosition:   s.MapPosition,
			Questions:     make([]domain.Question, 0, len(s.Questions)),
		}
		if subject.Title == "" {
			subject.Title = s.Key
		}
		for i, rec := range s.Questions {
			q, err := rec.ToQuestion()
			if err != nil {
				return domain.Catalog{}, fmt.Errorf("subject %q question %d: %w", s.Key, i+1, err)
			}
			subject.Questions = append(subject.Questions, q)
		}
		c.Subjects = append(c.Subjects, subject)
	}

	if err := Validate(c); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog restored on first start and on full reset.
func DefaultCatalog() domain.Catalog {
	c, err := LoadSeed(bytes.NewReader(seedYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded seed catalog is invalid: %v", err))
	}
	return c
}
