package app

import (
	"context"
	"fmt"
	"io"

	"quizmap-service/internal/analytics"
	"quizmap-service/internal/catalog"
	"quizmap-service/internal/domain"
	"quizmap-service/internal/leaderboard"
)

// SubjectUpdate replaces a subject's editable fields.
type SubjectUpdate struct {
	Questions     []domain.Question  `json:"questions"`
	Position      domain.MapPosition `json:"position"`
	Prerequisites []string           `json:"prerequisites"`
}

// Catalog returns the current catalog. Anyone may read it.
func (s *Service) Catalog(ctx context.Context) (domain.Catalog, error) {
	return s.catalogs.GetCatalog(ctx)
}

func (s *Service) AddSubject(ctx context.Context, actor, key string, pos domain.MapPosition) (domain.Catalog, error) {
	return s.editCatalog(ctx, actor, "add subject", func(c domain.Catalog) (domain.Catalog, error) {
		return catalog.AddSubject(c, key, pos)
	})
}

func (s *Service) UpdateSubject(ctx context.Context, actor, key string, upd SubjectUpdate) (domain.Catalog, error) {
	return s.editCatalog(ctx, actor, "update subject", func(c domain.Catalog) (domain.Catalog, error) {
		return catalog.UpdateSubject(c, key, upd.Questions, upd.Position, upd.Prerequisites)
	})
}

// DeleteSubject removes the subject and strips it from every prerequisite list.
func (s *Service) DeleteSubject(ctx context.Context, actor, key string) (domain.Catalog, error) {
	return s.editCatalog(ctx, actor, "delete subject", func(c domain.Catalog) (domain.Catalog, error) {
		return catalog.DeleteSubject(c, key)
	})
}

// AppendQuestions adds accepted drafts to the end of a subject's question list.
func (s *Service) AppendQuestions(ctx context.Context, actor, key string, drafts []domain.Question) (domain.Catalog, error) {
	return s.editCatalog(ctx, actor, "append questions", func(c domain.Catalog) (domain.Catalog, error) {
		return catalog.AppendQuestions(c, key, drafts)
	})
}

func (s *Service) editCatalog(ctx context.Context, actor, op string, edit func(domain.Catalog) (domain.Catalog, error)) (domain.Catalog, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Catalog{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Edits start from the stored catalog; the cache may briefly lag a previous write.
	current, err := NewStoreCatalogLoader(s.store).LoadCatalog(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	next, err := edit(current)
	if err != nil {
		return domain.Catalog{}, err
	}
	if err := s.replaceCatalog(ctx, next); err != nil {
		return domain.Catalog{}, err
	}
	s.logger.Info("catalog edited", "op", op, "subjects", next.Len())
	return next, nil
}

func (s *Service) replaceCatalog(ctx context.Context, c domain.Catalog) error {
	if err := saveJSON(ctx, s.store, KeyCatalog, c); err != nil {
		return err
	}
	if err := s.catalogs.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

// GenerateQuestions asks the content generator for drafts. Nothing is stored;
// failures surface as domain.ErrNoQuestionsGenerated.
func (s *Service) GenerateQuestions(ctx context.Context, actor, topic string) ([]domain.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", domain.ErrNoQuestionsGenerated)
	}
	drafts, err := s.generator.Generate(ctx, topic)
	if err != nil {
		s.logger.Warn("question generation failed", "topic", topic, "error", err)
		return nil, err
	}
	return drafts, nil
}

func (s *Service) Dashboard(ctx context.Context, actor string) (analytics.Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return analytics.Dashboard{}, err
	}
	roster, err := s.roster(ctx)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	c, err := s.catalogs.GetCatalog(ctx)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	return analytics.Compute(roster, c), nil
}

// ExportDashboard writes the dashboard as an XLSX workbook.
func (s *Service) ExportDashboard(ctx context.Context, actor string, w io.Writer) error {
	d, err := s.Dashboard(ctx, actor)
	if err != nil {
		return err
	}
	return analytics.WriteXLSX(w, d)
}

// ResetAll wipes every player and the leaderboard and restores the default catalog.
// Device identities are left in place and resolve to names without a profile.
func (s *Service) ResetAll(ctx context.Context, actor string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(ctx, KeyRoster); err != nil {
		return fmt.Errorf("delete %s: %w", KeyRoster, err)
	}
	empty := leaderboard.Reset()
	if err := saveJSON(ctx, s.store, KeyLeaderboard, empty); err != nil {
		return err
	}
	if err := s.replaceCatalog(ctx, catalog.DefaultCatalog()); err != nil {
		return err
	}
	s.feed.broadcast(empty)
	s.logger.Warn("all data reset", "actor", actor)
	return nil
}
