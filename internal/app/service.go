package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizmap-service/internal/catalog"
	"quizmap-service/internal/domain"
	"quizmap-service/internal/leaderboard"
	"quizmap-service/internal/ledger"
	"quizmap-service/internal/quiz"
)

// QuestionGenerator drafts questions for a topic. Drafts are returned to the
// admin and never stored directly.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string) ([]domain.Question, error)
}

// Rules gathers every tunable game constant.
type Rules struct {
	Attempt         quiz.Rules
	Ledger          ledger.Rules
	LeaderboardSize int
}

func DefaultRules() Rules {
	return Rules{
		Attempt:         quiz.DefaultRules(),
		Ledger:          ledger.DefaultRules(),
		LeaderboardSize: leaderboard.DefaultSize,
	}
}

type Option func(*Service)

func WithRules(r Rules) Option { return func(s *Service) { s.rules = r } }

func WithGenerator(g QuestionGenerator) Option { return func(s *Service) { s.generator = g } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithAttemptOptions adds engine options to every attempt the service starts.
func WithAttemptOptions(opts ...quiz.Option) Option {
	return func(s *Service) { s.attemptOpts = append(s.attemptOpts, opts...) }
}

// Service contains the player, attempt and admin use cases.
type Service struct {
	store     Store
	catalogs  CatalogRepository
	attempts  AttemptRegistry
	generator QuestionGenerator
	rules     Rules
	now       func() time.Time
	logger    *slog.Logger

	attemptOpts []quiz.Option
	feed        *leaderboardFeed

	// writeMu serializes every read-modify-write of roster, leaderboard and catalog.
	writeMu sync.Mutex
	// startMu makes the in-progress check and registration of an attempt atomic.
	startMu sync.Mutex
}

func NewService(store Store, catalogs CatalogRepository, attempts AttemptRegistry, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalogs: catalogs,
		attempts: attempts,
		rules:    DefaultRules(),
		now:      time.Now,
		logger:   slog.Default(),
		feed:     newLeaderboardFeed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready loads every persisted table once. A failure here blocks startup.
func (s *Service) Ready(ctx context.Context) error {
	if _, err := s.roster(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if _, err := s.Leaderboard(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if _, err := s.catalogs.GetCatalog(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// RegisterPlayer issues a device identity for name. The profile is created on
// first entry; re-entering an existing name only refreshes the avatar.
func (s *Service) RegisterPlayer(ctx context.Context, name, avatar string) (domain.Identity, domain.PlayerProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Identity{}, domain.PlayerProfile{}, domain.ErrInvalidName
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	roster, err := s.roster(ctx)
	if err != nil {
		return domain.Identity{}, domain.PlayerProfile{}, err
	}
	profile, ok := roster.Get(name)
	if !ok {
		profile = ledger.NewProfile(name, avatar)
		s.logger.Info("player registered", "player", name)
	} else if avatar != "" {
		profile.Avatar = avatar
	}
	if err := saveJSON(ctx, s.store, KeyRoster, roster.Put(profile)); err != nil {
		return domain.Identity{}, domain.PlayerProfile{}, err
	}

	identity := domain.Identity{Token: uuid.NewString(), Name: name, Avatar: profile.Avatar}
	if err := saveJSON(ctx, s.store, IdentityKey(identity.Token), identity); err != nil {
		return domain.Identity{}, domain.PlayerProfile{}, err
	}
	return identity, profile.Clone(), nil
}

// Identify resolves a device token saved by RegisterPlayer.
func (s *Service) Identify(ctx context.Context, token string) (domain.Identity, error) {
	if _, err := uuid.Parse(token); err != nil {
		return domain.Identity{}, domain.ErrPlayerNotFound
	}
	identity, found, err := loadJSON[domain.Identity](ctx, s.store, IdentityKey(token))
	if err != nil {
		return domain.Identity{}, err
	}
	if !found {
		return domain.Identity{}, domain.ErrPlayerNotFound
	}
	return identity, nil
}

func (s *Service) Profile(ctx context.Context, name string) (domain.PlayerProfile, error) {
	roster, err := s.roster(ctx)
	if err != nil {
		return domain.PlayerProfile{}, err
	}
	p, ok := roster.Get(name)
	if !ok {
		return domain.PlayerProfile{}, domain.ErrPlayerNotFound
	}
	return p.Clone(), nil
}

// MapNode is one subject as it appears on a player's learning map.
type MapNode struct {
	Key           string             `json:"key"`
	Title         string             `json:"title"`
	Prerequisites []string           `json:"prerequisites"`
	Position      domain.MapPosition `json:"position"`
	QuestionCount int                `json:"questionCount"`
	Unlocked      bool               `json:"unlocked"`
	Completed     bool               `json:"completed"`
	Progress      int                `json:"progress"` // percent correct in the last attempt
}

func (s *Service) SubjectMap(ctx context.Context, name string) ([]MapNode, error) {
	profile, err := s.Profile(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := s.catalogs.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make([]MapNode, 0, c.Len())
	for _, subj := range c.Subjects {
		node := MapNode{
			Key:           subj.Key,
			Title:         subj.Title,
			Prerequisites: append([]string{}, subj.Prerequisites...),
			Position:      subj.MapPosition,
			QuestionCount: len(subj.Questions),
			Unlocked:      catalog.IsUnlocked(c, subj.Key, profile.CompletedSubjects),
			Completed:     profile.HasCompleted(subj.Key),
		}
		if prog, ok := profile.SubjectProgress[subj.Key]; ok && prog.Total > 0 {
			node.Progress = prog.Correct * 100 / prog.Total
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// AwardStoryBadge grants a badge earned outside of quizzes, such as finishing a story.
func (s *Service) AwardStoryBadge(ctx context.Context, name, badge string) (domain.PlayerProfile, bool, error) {
	if !knownAchievement(badge) {
		return domain.PlayerProfile{}, false, domain.NewValidationError([]string{fmt.Sprintf("unknown badge %q", badge)})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	roster, err := s.roster(ctx)
	if err != nil {
		return domain.PlayerProfile{}, false, err
	}
	profile, ok := roster.Get(name)
	if !ok {
		return domain.PlayerProfile{}, false, domain.ErrPlayerNotFound
	}
	profile, awarded := ledger.AwardBadge(profile, badge)
	if !awarded {
		return profile, false, nil
	}
	if err := saveJSON(ctx, s.store, KeyRoster, roster.Put(profile)); err != nil {
		return domain.PlayerProfile{}, false, err
	}
	s.logger.Info("badge awarded", "player", name, "badge", badge)
	return profile, true, nil
}

func knownAchievement(id string) bool {
	for _, a := range domain.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Leaderboard returns the stored board, normalized.
func (s *Service) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	entries, _, err := loadJSON[[]domain.LeaderboardEntry](ctx, s.store, KeyLeaderboard)
	if err != nil {
		return nil, err
	}
	return leaderboard.Normalize(entries, s.rules.LeaderboardSize), nil
}

// SubscribeLeaderboard streams the board after every change, starting with
// the current snapshot. Slow subscribers only see the latest board.
func (s *Service) SubscribeLeaderboard(ctx context.Context) (<-chan []domain.LeaderboardEntry, func(), error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.subscribe(entries)
	return ch, cancel, nil
}

func (s *Service) ResetLeaderboard(ctx context.Context, actor string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	empty := leaderboard.Reset()
	if err := saveJSON(ctx, s.store, KeyLeaderboard, empty); err != nil {
		return err
	}
	s.feed.broadcast(empty)
	s.logger.Info("leaderboard reset", "actor", actor)
	return nil
}

func (s *Service) roster(ctx context.Context) (domain.Roster, error) {
	r, _, err := loadJSON[domain.Roster](ctx, s.store, KeyRoster)
	return r, err
}

func requireAdmin(actor string) error {
	if !domain.IsAdmin(actor) {
		return domain.ErrForbidden
	}
	return nil
}

// IsTransient reports whether err should be shown as a retryable notice rather than a failure.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrNoQuestionsGenerated)
}
