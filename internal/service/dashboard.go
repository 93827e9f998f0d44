package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/model"
)

type Dashboard struct {
	GeneratedAt time.Time         `json:"generated_at"`
	SoonWindow  string            `json:"soon_window"`
	Subjects    []care.Classified `json:"subjects"`
	Stats       care.Stats        `json:"stats"`
}

// Dashboard classifies every active subject by urgency and aggregates the
// care statistics as of now.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	classifier, err := s.classifier(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	var (
		subjects   []model.CareSubject
		recent     []model.CareEvent
		fertilizer []model.CareEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subjects, err = s.ListSubjects(gctx, SubjectFilter{})
		return err
	})
	g.Go(func() error {
		since := now.Add(-s.recentWindow)
		var err error
		recent, err = s.ListCareEvents(gctx, CareEventFilter{Since: &since})
		return err
	})
	g.Go(func() error {
		var err error
		fertilizer, err = s.queryCareEvents(gctx, `SELECT `+careEventColumns+` FROM care_events WHERE event_type = ? AND performed_at <= ? ORDER BY performed_at DESC, id DESC`,
			string(model.CareFertilizer), db.FormatTime(now))
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	events := mergeEvents(recent, fertilizer)
	agg := care.NewAggregator(classifier, s.recentWindow)
	return Dashboard{
		GeneratedAt: now,
		SoonWindow:  classifier.SoonWindow.String(),
		Subjects:    agg.ClassifySubjects(now, subjects),
		Stats:       agg.Aggregate(now, subjects, events),
	}, nil
}

// mergeEvents concatenates event lists, dropping repeated ids.
func mergeEvents(lists ...[]model.CareEvent) []model.CareEvent {
	seen := map[int64]bool{}
	out := make([]model.CareEvent, 0)
	for _, list := range lists {
		for _, e := range list {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out
}
