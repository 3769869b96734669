package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// QuestionKind names one of the three supported question formats.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple-choice"
	KindFillInTheBlank QuestionKind = "fill-in-the-blank"
	KindTrueFalse      QuestionKind = "true-false"
)

const (
	// DefaultPoints is awarded for a correct answer when a question has no explicit value.
	DefaultPoints = 10
	// DefaultTimeLimit is the per-question countdown in seconds when none is configured.
	DefaultTimeLimit = 15
)

// QuestionBody carries the fields that only make sense for one question kind.
type QuestionBody interface {
	Kind() QuestionKind
	isQuestionBody()
}

// MultipleChoice is the only kind that carries an option list.
type MultipleChoice struct {
	Options []string
}

// FillInTheBlank is answered with free text.
type FillInTheBlank struct{}

// TrueFalse is answered with the literal "true" or "false".
type TrueFalse struct{}

func (MultipleChoice) Kind() QuestionKind { return KindMultipleChoice }
func (FillInTheBlank) Kind() QuestionKind { return KindFillInTheBlank }
func (TrueFalse) Kind() QuestionKind      { return KindTrueFalse }

func (MultipleChoice) isQuestionBody() {}
func (FillInTheBlank) isQuestionBody() {}
func (TrueFalse) isQuestionBody()      {}

// Question is a single authored quiz item.
type Question struct {
	Prompt           string
	CorrectAnswer    string
	Points           int // DefaultPoints when zero
	TimeLimit        int // seconds, DefaultTimeLimit when zero
	ImageURL         string
	OriginalCategory string // set when copied into a weak-question list
	Body             QuestionBody
}

// Kind reports the question format. A question without a body is treated as fill-in-the-blank.
func (q Question) Kind() QuestionKind {
	if q.Body == nil {
		return KindFillInTheBlank
	}
	return q.Body.Kind()
}

// Options returns a copy of the option list for multiple-choice questions and nil otherwise.
func (q Question) Options() []string {
	if mc, ok := q.Body.(MultipleChoice); ok {
		return slices.Clone(mc.Options)
	}
	return nil
}

// EffectivePoints applies the default point value.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// EffectiveTimeLimit applies the default countdown length.
func (q Question) EffectiveTimeLimit() int {
	if q.TimeLimit <= 0 {
		return DefaultTimeLimit
	}
	return q.TimeLimit
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	if mc, ok := q.Body.(MultipleChoice); ok {
		q.Body = MultipleChoice{Options: slices.Clone(mc.Options)}
	}
	return q
}

// QuestionRecord is the flat wire/storage shape of a question.
type QuestionRecord struct {
	Type             QuestionKind `json:"type" yaml:"type"`
	Question         string       `json:"question" yaml:"question"`
	Options          []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer    string       `json:"correctAnswer" yaml:"correctAnswer"`
	Points           int          `json:"points,omitempty" yaml:"points,omitempty"`
	TimeLimit        int          `json:"timeLimit,omitempty" yaml:"timeLimit,omitempty"`
	ImageURL         string       `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	OriginalCategory string       `json:"originalCategory,omitempty" yaml:"originalCategory,omitempty"`
}

// ToQuestion converts the record into the tagged form. Options on non multiple-choice
// records are dropped.
func (r QuestionRecord) ToQuestion() (Question, error) {
	q := Question{
		Prompt:           r.Question,
		CorrectAnswer:    r.CorrectAnswer,
		Points:           r.Points,
		TimeLimit:        r.TimeLimit,
		ImageURL:         r.ImageURL,
		OriginalCategory: r.OriginalCategory,
	}
	switch r.Type {
	case KindMultipleChoice:
		q.Body = MultipleChoice{Options: slices.Clone(r.Options)}
	case KindFillInTheBlank:
		q.Body = FillInTheBlank{}
	case KindTrueFalse:
		q.Body = TrueFalse{}
	default:
		return Question{}, fmt.Errorf("unknown question type %q", r.Type)
	}
	return q, nil
}

// Record flattens the question for storage.
func (q Question) Record() QuestionRecord {
	return QuestionRecord{
		Type:             q.Kind(),
		Question:         q.Prompt,
		Options:          q.Options(),
		CorrectAnswer:    q.CorrectAnswer,
		Points:           q.Points,
		TimeLimit:        q.TimeLimit,
		ImageURL:         q.ImageURL,
		OriginalCategory: q.OriginalCategory,
	}
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Record())
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var rec QuestionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	parsed, err := rec.ToQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// SessionResult is the outcome of one question inside an attempt.
type SessionResult struct {
	Question   Question
	UserAnswer string
	TimedOut   bool
	IsCorrect  bool
}

type sessionResultWire struct {
	QuestionRecord
	UserAnswer string `json:"userAnswer"`
	TimedOut   bool   `json:"timedOut,omitempty"`
	IsCorrect  bool   `json:"isCorrect"`
}

func (r SessionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionResultWire{
		QuestionRecord: r.Question.Record(),
		UserAnswer:     r.UserAnswer,
		TimedOut:       r.TimedOut,
		IsCorrect:      r.IsCorrect,
	})
}

func (r *SessionResult) UnmarshalJSON(data []byte) error {
	var w sessionResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	q, err := w.QuestionRecord.ToQuestion()
	if err != nil {
		return err
	}
	*r = SessionResult{Question: q, UserAnswer: w.UserAnswer, TimedOut: w.TimedOut, IsCorrect: w.IsCorrect}
	return nil
}
