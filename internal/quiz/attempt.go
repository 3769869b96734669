package quiz

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizmap-service/internal/domain"
)

// ReviewKey is the subject key reported by personalized-review attempts.
const ReviewKey = "Personalized Review"

// State is the position of an attempt in its question flow.
type State int

const (
	AwaitingAnswer State = iota
	AnswerRevealed
	Complete
	Abandoned
)

func (s State) String() string {
	switch s {
	case AwaitingAnswer:
		return "awaiting_answer"
	case AnswerRevealed:
		return "answer_revealed"
	case Complete:
		return "complete"
	case Abandoned:
		return "abandoned"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Rules are the tunable constants of an attempt.
type Rules struct {
	ReviewPoints     int
	ExtraTimeSeconds int
	TickInterval     time.Duration
}

func DefaultRules() Rules {
	return Rules{ReviewPoints: 5, ExtraTimeSeconds: 15, TickInterval: time.Second}
}

// EventKind distinguishes countdown notifications.
type EventKind string

const (
	EventTick    EventKind = "tick"
	EventTimeout EventKind = "timeout"
)

// Event is delivered to the attempt listener from the countdown goroutine.
type Event struct {
	Kind      EventKind
	Index     int
	Remaining int
	Reveal    *Reveal // set for EventTimeout
}

// Reveal is what the player learns after answering (or running out of time).
type Reveal struct {
	Index         int                  `json:"index"`
	Result        domain.SessionResult `json:"result"`
	PointsAwarded int                  `json:"pointsAwarded"`
	CorrectAnswer string               `json:"correctAnswer"`
	Last          bool                 `json:"last"`
}

// View is a snapshot of the current question as presented to the player.
type View struct {
	AttemptID           string              `json:"attemptId"`
	SubjectKey          string              `json:"subjectKey"`
	Review              bool                `json:"review"`
	State               State               `json:"state"`
	Index               int                 `json:"index"`
	Total               int                 `json:"total"`
	Kind                domain.QuestionKind `json:"type"`
	Prompt              string              `json:"question"`
	ImageURL            string              `json:"imageUrl,omitempty"`
	Options             []string            `json:"options,omitempty"`
	Points              int                 `json:"points"`
	Remaining           int                 `json:"remaining"`
	FiftyFiftyAvailable bool                `json:"fiftyFiftyAvailable"`
	ExtraTimeAvailable  bool                `json:"extraTimeAvailable"`
}

// Outcome is the engine's output once every question has been revealed.
type Outcome struct {
	SubjectKey string
	Review     bool
	RawPoints  int
	Correct    int
	Total      int
	Results    []domain.SessionResult
}

// TickerFunc starts a periodic source and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Option func(*Attempt)

// AsReview scores every correct answer with the fixed review value.
func AsReview() Option { return func(a *Attempt) { a.review = true } }

func WithRules(r Rules) Option { return func(a *Attempt) { a.rules = r } }

func WithTicker(f TickerFunc) Option { return func(a *Attempt) { a.ticker = f } }

func WithRand(r *rand.Rand) Option { return func(a *Attempt) { a.rnd = r } }

// WithListener receives countdown events. It is called without the attempt lock held.
func WithListener(fn func(Event)) Option { return func(a *Attempt) { a.listener = fn } }

// Attempt drives one pass through a question list. It is safe for concurrent use.
type Attempt struct {
	id         string
	subjectKey string
	review     bool
	questions  []domain.Question
	rules      Rules
	ticker     TickerFunc
	rnd        *rand.Rand
	listener   func(Event)

	mu        sync.Mutex
	started   bool
	state     State
	index     int
	remaining int
	options   []string
	rawPoints int
	correct   int
	results   []domain.SessionResult
	fiftyUsed bool
	extraUsed bool
	gen       uint64
	stop      func()
}

// NewAttempt refuses to build an attempt without questions.
func NewAttempt(subjectKey string, questions []domain.Question, opts ...Option) (*Attempt, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyAttempt
	}
	a := &Attempt{
		id:         uuid.NewString(),
		subjectKey: subjectKey,
		questions:  make([]domain.Question, len(questions)),
		rules:      DefaultRules(),
		ticker:     realTicker,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		state:      AwaitingAnswer,
	}
	for i, q := range questions {
		a.questions[i] = q.Clone()
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rules.TickInterval <= 0 {
		a.rules.TickInterval = time.Second
	}
	return a, nil
}

func (a *Attempt) ID() string         { return a.id }
func (a *Attempt) SubjectKey() string { return a.subjectKey }
func (a *Attempt) IsReview() bool     { return a.review }

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Finished reports whether the attempt can no longer change.
func (a *Attempt) Finished() bool {
	s := a.State()
	return s == Complete || s == Abandoned
}

// Start presents the first question and arms its countdown.
func (a *Attempt) Start() (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return View{}, domain.ErrInvalidTransition
	}
	a.started = true
	a.presentLocked(0)
	return a.viewLocked(), nil
}

// Current returns the question currently on screen.
func (a *Attempt) Current() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

// Submit scores answer against the current question and reveals the result.
func (a *Attempt) Submit(answer string) (Reveal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started || a.state != AwaitingAnswer {
		return Reveal{}, domain.ErrInvalidTransition
	}
	a.cancelLocked()
	return a.revealLocked(answer, false), nil
}

// Continue moves past a revealed answer to the next question or to Complete.
func (a *Attempt) Continue() (State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AnswerRevealed {
		return a.state, domain.ErrInvalidTransition
	}
	if a.index < len(a.questions)-1 {
		a.presentLocked(a.index + 1)
		return a.state, nil
	}
	a.state = Complete
	return a.state, nil
}

// UseFiftyFifty removes up to two incorrect options from the current
// multiple-choice question. An unavailable lifeline is not consumed.
func (a *Attempt) UseFiftyFifty() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started || a.state != AwaitingAnswer || a.fiftyUsed {
		return nil, domain.ErrLifelineUnavailable
	}
	q := a.questions[a.index]
	if q.Kind() != domain.KindMultipleChoice {
		return nil, domain.ErrLifelineUnavailable
	}

	var incorrect []string
	for _, opt := range a.options {
		if !Matches(q, opt) {
			incorrect = append(incorrect, opt)
		}
	}
	a.rnd.Shuffle(len(incorrect), func(i, j int) { incorrect[i], incorrect[j] = incorrect[j], incorrect[i] })
	removed := incorrect[:min(2, len(incorrect))]
	a.options = slices.DeleteFunc(a.options, func(o string) bool { return slices.Contains(removed, o) })
	a.fiftyUsed = true
	return removed, nil
}

// UseExtraTime extends the current countdown once per attempt and returns the new remaining time.
func (a *Attempt) UseExtraTime() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started || a.state != AwaitingAnswer || a.extraUsed {
		return 0, domain.ErrLifelineUnavailable
	}
	a.remaining += a.rules.ExtraTimeSeconds
	a.extraUsed = true
	return a.remaining, nil
}

// Abandon stops the countdown and discards the attempt. Finished attempts are left as is.
func (a *Attempt) Abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Complete || a.state == Abandoned {
		return
	}
	a.cancelLocked()
	a.state = Abandoned
}

// Outcome is only available once the attempt is Complete.
func (a *Attempt) Outcome() (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Complete {
		return Outcome{}, domain.ErrInvalidTransition
	}
	return Outcome{
		SubjectKey: a.subjectKey,
		Review:     a.review,
		RawPoints:  a.rawPoints,
		Correct:    a.correct,
		Total:      len(a.questions),
		Results:    slices.Clone(a.results),
	}, nil
}

func (a *Attempt) presentLocked(index int) {
	a.index = index
	a.state = AwaitingAnswer
	q := a.questions[index]
	a.options = q.Options()
	a.rnd.Shuffle(len(a.options), func(i, j int) { a.options[i], a.options[j] = a.options[j], a.options[i] })
	a.remaining = q.EffectiveTimeLimit()
	a.armLocked()
}

func (a *Attempt) revealLocked(answer string, timedOut bool) Reveal {
	q := a.questions[a.index]
	correct := !timedOut && Matches(q, answer)
	points := 0
	if correct {
		points = q.EffectivePoints()
		if a.review {
			points = a.rules.ReviewPoints
		}
		a.correct++
	}
	a.rawPoints += points

	result := domain.SessionResult{
		Question:   q.Clone(),
		UserAnswer: answer,
		TimedOut:   timedOut,
		IsCorrect:  correct,
	}
	a.results = append(a.results, result)
	a.state = AnswerRevealed
	return Reveal{
		Index:         a.index,
		Result:        result,
		PointsAwarded: points,
		CorrectAnswer: q.CorrectAnswer,
		Last:          a.index == len(a.questions)-1,
	}
}

func (a *Attempt) viewLocked() View {
	q := a.questions[a.index]
	points := q.EffectivePoints()
	if a.review {
		points = a.rules.ReviewPoints
	}
	active := a.started && a.state == AwaitingAnswer
	return View{
		AttemptID:           a.id,
		SubjectKey:          a.subjectKey,
		Review:              a.review,
		State:               a.state,
		Index:               a.index,
		Total:               len(a.questions),
		Kind:                q.Kind(),
		Prompt:              q.Prompt,
		ImageURL:            q.ImageURL,
		Options:             slices.Clone(a.options),
		Points:              points,
		Remaining:           a.remaining,
		FiftyFiftyAvailable: active && !a.fiftyUsed && q.Kind() == domain.KindMultipleChoice,
		ExtraTimeAvailable:  active && !a.extraUsed,
	}
}
