package contentgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quizmap-service/internal/catalog"
	"quizmap-service/internal/domain"
)

// Generator produces draft questions for a topic. Drafts are never stored by
// the generator; the caller decides whether to append them to a subject.
type Generator interface {
	Generate(ctx context.Context, topic string) ([]domain.Question, error)
}

const systemPrompt = "You write short quiz questions for young learners. Answers must be unambiguous."

var questionsSchema = &Schema{
	Name:        "quiz_questions",
	Description: "A batch of quiz questions",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"type", "question", "options", "correctAnswer", "points", "timeLimit"},
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": []any{
								string(domain.KindMultipleChoice),
								string(domain.KindFillInTheBlank),
								string(domain.KindTrueFalse),
							},
						},
						"question":      map[string]any{"type": "string"},
						"options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"correctAnswer": map[string]any{"type": "string"},
						"points":        map[string]any{"type": "integer"},
						"timeLimit":     map[string]any{"type": "integer"},
					},
				},
			},
		},
	},
}

type generated struct {
	Questions []domain.QuestionRecord `json:"questions"`
}

type LLMGenerator struct {
	provider  Provider
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

func NewLLMGenerator(provider Provider, cfg Config, logger *slog.Logger) *LLMGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &LLMGenerator{provider: provider, maxTokens: cfg.MaxTokens, timeout: cfg.Timeout, logger: logger}
}

func Prompt(topic string) string {
	return fmt.Sprintf(
		"Generate 3-5 diverse quiz questions (multiple-choice, fill-in-the-blank, true-false) about %q. Return them as a JSON array under \"questions\". "+
			"Use an empty options list for questions that are not multiple-choice.",
		topic,
	)
}

func (g *LLMGenerator) Generate(ctx context.Context, topic string) ([]domain.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewValidationError([]string{"topic is required"})
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.provider.Generate(ctx, Request{
		System:    systemPrompt,
		Prompt:    Prompt(topic),
		Schema:    questionsSchema,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNoQuestionsGenerated, err)
	}

	var out generated
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrNoQuestionsGenerated, err)
	}

	drafts := make([]domain.Question, 0, len(out.Questions))
	for i, rec := range out.Questions {
		q, err := rec.ToQuestion()
		if err != nil {
			g.logger.Warn("dropping generated question", "topic", topic, "index", i, "error", err)
			continue
		}
		if problems := catalog.ValidateQuestion(q); len(problems) > 0 {
			g.logger.Warn("dropping generated question", "topic", topic, "index", i, "problems", problems)
			continue
		}
		drafts = append(drafts, q)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no usable drafts for %q", domain.ErrNoQuestionsGenerated, topic)
	}

	g.logger.Info("generated questions", "topic", topic, "model", resp.Model, "count", len(drafts))
	return drafts, nil
}

// IsTransient reports whether err is a generation failure the caller may retry.
func IsTransient(err error) bool {
	var unavailable *ErrProviderUnavailable
	var invalid *ErrInvalidResponse
	return errors.As(err, &unavailable) || errors.As(err, &invalid)
}
