package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/taxonomy"
)

type DoctorReport struct {
	OrphanSubjects      int     `json:"orphan_subjects"`
	OrphanPropagations  int     `json:"orphan_propagations"`
	UnparsableSchedules []int64 `json:"unparsable_schedules"`
	StaleDueDates       []int64 `json:"stale_due_dates"`
	DuplicateGroups     int     `json:"duplicate_groups"`
	FixedDueDates       int     `json:"fixed_due_dates,omitempty"`
}

// Healthy reports whether the check found nothing to act on. Duplicate
// taxonomy groups are informational.
func (r DoctorReport) Healthy() bool {
	return r.OrphanSubjects == 0 && r.OrphanPropagations == 0 &&
		len(r.UnparsableSchedules) == 0 && len(r.StaleDueDates) == 0
}

// RunDoctor checks referential integrity and that every stored due date
// matches what the schedule and last fertilized time produce. With fix set,
// stale due dates are rewritten in one transaction.
func (s *Service) RunDoctor(ctx context.Context, fix bool) (DoctorReport, error) {
	report := DoctorReport{UnparsableSchedules: []int64{}, StaleDueDates: []int64{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM care_subjects c LEFT JOIN taxonomy t ON t.id = c.taxonomy_id WHERE t.id IS NULL`).Scan(&report.OrphanSubjects); err != nil {
		return report, fmt.Errorf("doctor orphan subject check: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM propagations p LEFT JOIN taxonomy t ON t.id = p.taxonomy_id WHERE t.id IS NULL`).Scan(&report.OrphanPropagations); err != nil {
		return report, fmt.Errorf("doctor orphan propagation check: %w", err)
	}

	subjects, err := s.ListSubjects(ctx, SubjectFilter{IncludeInactive: true})
	if err != nil {
		return report, fmt.Errorf("doctor subject scan: %w", err)
	}
	type fixup struct {
		id  int64
		due any
	}
	fixes := make([]fixup, 0)
	for _, sub := range subjects {
		interval, err := care.ParseSchedule(sub.FertilizerSchedule)
		if err != nil {
			report.UnparsableSchedules = append(report.UnparsableSchedules, sub.ID)
			continue
		}
		want, err := nextDue(sub.LastFertilized, interval)
		if err != nil {
			report.UnparsableSchedules = append(report.UnparsableSchedules, sub.ID)
			continue
		}
		if sameInstant(want, sub.FertilizerDue) {
			continue
		}
		report.StaleDueDates = append(report.StaleDueDates, sub.ID)
		fixes = append(fixes, fixup{id: sub.ID, due: db.NullableTime(want)})
	}

	groups, err := s.FindDuplicateTaxonomy(ctx)
	if err != nil {
		return report, fmt.Errorf("doctor duplicate check: %w", err)
	}
	report.DuplicateGroups = len(groups)

	if fix && len(fixes) > 0 {
		err := s.db.RunInTx(ctx, func(m taxonomy.Mutator) error {
			for _, f := range fixes {
				if _, err := m.UpdateWhere(ctx, taxonomy.EntityCareSubject, taxonomy.Where{"id": f.id}, taxonomy.Patch{"fertilizer_due": f.due}); err != nil {
					return fmt.Errorf("subject %d: %w", f.id, err)
				}
			}
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("doctor fix due dates: %w", err)
		}
		report.FixedDueDates = len(fixes)
		s.logger.Info("doctor fixed due dates", zap.Int("count", report.FixedDueDates))
	}
	return report, nil
}

// sameInstant compares at storage precision, whole seconds.
func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}
