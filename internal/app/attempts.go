package app

import (
	"context"
	"fmt"
	"math/rand"

	"quizmap-service/internal/catalog"
	"quizmap-service/internal/domain"
	"quizmap-service/internal/leaderboard"
	"quizmap-service/internal/ledger"
	"quizmap-service/internal/quiz"
)

// Report is everything a player sees after finishing an attempt.
type Report struct {
	Result      ledger.Result             `json:"result"`
	Review      []domain.SessionResult    `json:"review"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// StartAttempt begins a quiz on an unlocked subject. listener receives
// countdown events and may be nil.
func (s *Service) StartAttempt(ctx context.Context, name, subjectKey string, listener func(quiz.Event)) (*quiz.Attempt, quiz.View, error) {
	profile, err := s.Profile(ctx, name)
	if err != nil {
		return nil, quiz.View{}, err
	}
	c, err := s.catalogs.GetCatalog(ctx)
	if err != nil {
		return nil, quiz.View{}, err
	}
	subj, ok := c.Get(subjectKey)
	if !ok {
		return nil, quiz.View{}, fmt.Errorf("%w: %s", domain.ErrSubjectNotFound, subjectKey)
	}
	if !catalog.IsUnlocked(c, subjectKey, profile.CompletedSubjects) {
		return nil, quiz.View{}, fmt.Errorf("%w: %s", domain.ErrSubjectLocked, subjectKey)
	}
	return s.begin(name, subjectKey, subj.Questions, listener)
}

// StartReview begins a personalized review over the player's weak questions.
func (s *Service) StartReview(ctx context.Context, name string, listener func(quiz.Event)) (*quiz.Attempt, quiz.View, error) {
	profile, err := s.Profile(ctx, name)
	if err != nil {
		return nil, quiz.View{}, err
	}
	rnd := rand.New(rand.NewSource(s.now().UnixNano()))
	questions, err := quiz.BuildReview(profile, rnd)
	if err != nil {
		return nil, quiz.View{}, err
	}
	return s.begin(name, quiz.ReviewKey, questions, listener, quiz.AsReview())
}

func (s *Service) begin(name, subjectKey string, questions []domain.Question, listener func(quiz.Event), extra ...quiz.Option) (*quiz.Attempt, quiz.View, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if live, ok := s.attempts.Get(name); ok {
		if !live.Finished() {
			return nil, quiz.View{}, domain.ErrAttemptInProgress
		}
		s.attempts.Delete(name)
	}

	opts := []quiz.Option{quiz.WithRules(s.rules.Attempt)}
	opts = append(opts, s.attemptOpts...)
	opts = append(opts, extra...)
	if listener != nil {
		opts = append(opts, quiz.WithListener(listener))
	}
	a, err := quiz.NewAttempt(subjectKey, questions, opts...)
	if err != nil {
		return nil, quiz.View{}, err
	}
	view, err := a.Start()
	if err != nil {
		return nil, quiz.View{}, err
	}
	s.attempts.Put(name, a)
	s.logger.Info("attempt started", "player", name, "subject", subjectKey, "attempt", a.ID(), "questions", view.Total)
	return a, view, nil
}

// Attempt returns the player's live attempt.
func (s *Service) Attempt(name string) (*quiz.Attempt, error) {
	a, ok := s.attempts.Get(name)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (s *Service) Submit(name, answer string) (quiz.Reveal, error) {
	a, err := s.Attempt(name)
	if err != nil {
		return quiz.Reveal{}, err
	}
	return a.Submit(answer)
}

// Continue advances the attempt and returns the next question, if any.
func (s *Service) Continue(name string) (quiz.View, error) {
	a, err := s.Attempt(name)
	if err != nil {
		return quiz.View{}, err
	}
	// A Complete attempt is still registered only when finishing it failed;
	// reporting Complete again lets the caller retry FinishAttempt.
	if a.State() == quiz.Complete {
		return a.Current(), nil
	}
	if _, err := a.Continue(); err != nil {
		return quiz.View{}, err
	}
	return a.Current(), nil
}

func (s *Service) UseFiftyFifty(name string) ([]string, error) {
	a, err := s.Attempt(name)
	if err != nil {
		return nil, err
	}
	return a.UseFiftyFifty()
}

func (s *Service) UseExtraTime(name string) (int, error) {
	a, err := s.Attempt(name)
	if err != nil {
		return 0, err
	}
	return a.UseExtraTime()
}

// Abandon discards the live attempt without touching the profile.
func (s *Service) Abandon(name string) {
	a, ok := s.attempts.Get(name)
	if !ok {
		return
	}
	a.Abandon()
	s.attempts.Delete(name)
	s.logger.Info("attempt abandoned", "player", name, "attempt", a.ID())
}

// AbandonAttempt abandons the live attempt only if it is the one identified by
// attemptID, so a closing connection cannot end an attempt started elsewhere.
func (s *Service) AbandonAttempt(name, attemptID string) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	a, ok := s.attempts.Get(name)
	if !ok || a.ID() != attemptID {
		return
	}
	a.Abandon()
	s.attempts.Delete(name)
	s.logger.Info("attempt abandoned", "player", name, "attempt", attemptID)
}

// FinishAttempt folds a completed attempt into the player's profile and the
// leaderboard, persists both and notifies leaderboard subscribers.
func (s *Service) FinishAttempt(ctx context.Context, name string) (Report, error) {
	a, err := s.Attempt(name)
	if err != nil {
		return Report{}, err
	}
	outcome, err := a.Outcome()
	if err != nil {
		return Report{}, err
	}

	s.writeMu.Lock()
	roster, err := s.roster(ctx)
	if err != nil {
		s.writeMu.Unlock()
		return Report{}, err
	}
	profile, ok := roster.Get(name)
	if !ok {
		s.writeMu.Unlock()
		return Report{}, domain.ErrPlayerNotFound
	}

	result := ledger.Apply(profile, ledger.Attempt{
		SubjectKey: outcome.SubjectKey,
		Review:     outcome.Review,
		RawPoints:  outcome.RawPoints,
		Correct:    outcome.Correct,
		Total:      outcome.Total,
		Results:    outcome.Results,
	}, s.now(), s.rules.Ledger)

	board, err := s.Leaderboard(ctx)
	if err != nil {
		s.writeMu.Unlock()
		return Report{}, err
	}
	board = leaderboard.Record(board, name, result.Profile.Score, result.Profile.Avatar, s.rules.LeaderboardSize)

	// The board is written first: it is derived from the profile score, so a
	// retry after a failed roster save records the same entry again.
	if err := saveJSON(ctx, s.store, KeyLeaderboard, board); err != nil {
		s.writeMu.Unlock()
		return Report{}, err
	}
	if err := saveJSON(ctx, s.store, KeyRoster, roster.Put(result.Profile)); err != nil {
		s.writeMu.Unlock()
		return Report{}, err
	}
	s.attempts.Delete(name)
	s.feed.broadcast(board)
	s.writeMu.Unlock()

	s.logger.Info("attempt finished",
		"player", name,
		"subject", outcome.SubjectKey,
		"correct", outcome.Correct,
		"total", outcome.Total,
		"points", result.PointsGained,
		"badges", result.NewBadges,
	)
	return Report{Result: result, Review: outcome.Results, Leaderboard: board}, nil
}
