package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/taxonomy"
)

const subjectColumns = `id, taxonomy_id, owner_id, nickname, location, fertilizer_schedule, last_fertilized, fertilizer_due, notes, active, created_at, updated_at`

type SubjectInput struct {
	TaxonomyID         int64
	Nickname           string
	Location           string
	FertilizerSchedule string
	LastFertilized     *time.Time
	Notes              string
}

type SubjectUpdate struct {
	TaxonomyID         *int64
	Nickname           *string
	Location           *string
	FertilizerSchedule *string
	Notes              *string
}

type SubjectFilter struct {
	IncludeInactive bool
	TaxonomyID      int64
}

func scanSubject(row rowScanner) (model.CareSubject, error) {
	var sub model.CareSubject
	var lastFertilized, due sql.NullString
	var active int
	var createdAt, updatedAt string
	if err := row.Scan(&sub.ID, &sub.TaxonomyID, &sub.OwnerID, &sub.Nickname, &sub.Location, &sub.FertilizerSchedule,
		&lastFertilized, &due, &sub.Notes, &active, &createdAt, &updatedAt); err != nil {
		return sub, err
	}
	sub.Active = active == 1
	var err error
	if sub.LastFertilized, err = db.ParseNullTime(lastFertilized); err != nil {
		return sub, err
	}
	if sub.FertilizerDue, err = db.ParseNullTime(due); err != nil {
		return sub, err
	}
	if sub.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return sub, err
	}
	if sub.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return sub, err
	}
	return sub, nil
}

// parseSchedule keeps care.ErrUnparsableSchedule reachable for callers.
func parseSchedule(text string) (care.Interval, error) {
	interval, err := care.ParseSchedule(text)
	if err != nil {
		return care.Interval{}, fmt.Errorf("fertilizer schedule %q: %w", strings.TrimSpace(text), err)
	}
	return interval, nil
}

// nextDue is care.NextDue limited to dates the store can hold.
func nextDue(last *time.Time, interval care.Interval) (*time.Time, error) {
	due := care.NextDue(last, interval)
	if due == nil {
		return nil, nil
	}
	if err := db.CheckTime(*due); err != nil {
		return nil, fmt.Errorf("%w: next due date %v", care.ErrUnparsableSchedule, err)
	}
	return due, nil
}

// AddSubject registers a plant. The schedule must parse; when a last
// fertilized time is given the first due date is computed from it.
func (s *Service) AddSubject(ctx context.Context, in SubjectInput) (model.CareSubject, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Location = strings.TrimSpace(in.Location)
	in.FertilizerSchedule = strings.TrimSpace(in.FertilizerSchedule)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Nickname == "" {
		return model.CareSubject{}, fmt.Errorf("nickname is required")
	}
	interval, err := parseSchedule(in.FertilizerSchedule)
	if err != nil {
		return model.CareSubject{}, err
	}
	if in.LastFertilized != nil {
		if err := db.CheckTime(*in.LastFertilized); err != nil {
			return model.CareSubject{}, fmt.Errorf("last fertilized: %w", err)
		}
	}
	due, err := nextDue(in.LastFertilized, interval)
	if err != nil {
		return model.CareSubject{}, err
	}
	if _, err := s.GetTaxonomy(ctx, in.TaxonomyID); err != nil {
		return model.CareSubject{}, err
	}
	owner, err := s.ownerID(ctx, s.db)
	if err != nil {
		return model.CareSubject{}, err
	}
	now := db.FormatTime(s.now())

	var sub model.CareSubject
	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO care_subjects(taxonomy_id, owner_id, nickname, location, fertilizer_schedule, last_fertilized, fertilizer_due, notes, active, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
RETURNING id
`, in.TaxonomyID, owner, in.Nickname, in.Location, in.FertilizerSchedule,
			db.NullableTime(in.LastFertilized), db.NullableTime(due), in.Notes, now, now).Scan(&id)
		if err != nil {
			return err
		}
		sub, err = getSubject(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.CareSubject{}, fmt.Errorf("add subject %q: %w", in.Nickname, err)
	}
	s.logger.Info("subject added", zap.Int64("id", sub.ID), zap.String("nickname", in.Nickname))
	return sub, nil
}

func (s *Service) GetSubject(ctx context.Context, id int64) (model.CareSubject, error) {
	return getSubject(ctx, s.db, id)
}

func getSubject(ctx context.Context, q queryer, id int64) (model.CareSubject, error) {
	sub, err := scanSubject(q.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM care_subjects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return sub, fmt.Errorf("get subject %d: %w", id, err)
	}
	return sub, nil
}

func (s *Service) ListSubjects(ctx context.Context, f SubjectFilter) ([]model.CareSubject, error) {
	query := `SELECT ` + subjectColumns + ` FROM care_subjects WHERE 1=1`
	args := make([]any, 0, 1)
	if !f.IncludeInactive {
		query += ` AND active = 1`
	}
	if f.TaxonomyID > 0 {
		query += ` AND taxonomy_id = ?`
		args = append(args, f.TaxonomyID)
	}
	query += ` ORDER BY nickname, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()
	out := make([]model.CareSubject, 0)
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

// UpdateSubject changes the fields that are set. A schedule change recomputes
// the due date from the last fertilized time.
func (s *Service) UpdateSubject(ctx context.Context, id int64, upd SubjectUpdate) (model.CareSubject, error) {
	patch := taxonomy.Patch{}
	if upd.Nickname != nil {
		nickname := strings.TrimSpace(*upd.Nickname)
		if nickname == "" {
			return model.CareSubject{}, fmt.Errorf("nickname cannot be empty")
		}
		patch["nickname"] = nickname
	}
	if upd.Location != nil {
		patch["location"] = strings.TrimSpace(*upd.Location)
	}
	if upd.Notes != nil {
		patch["notes"] = strings.TrimSpace(*upd.Notes)
	}
	var interval *care.Interval
	if upd.FertilizerSchedule != nil {
		parsed, err := parseSchedule(*upd.FertilizerSchedule)
		if err != nil {
			return model.CareSubject{}, err
		}
		interval = &parsed
		patch["fertilizer_schedule"] = strings.TrimSpace(*upd.FertilizerSchedule)
	}
	if upd.TaxonomyID != nil {
		patch["taxonomy_id"] = *upd.TaxonomyID
	}
	if len(patch) == 0 {
		return model.CareSubject{}, fmt.Errorf("no subject fields to update")
	}

	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		current, err := getSubject(ctx, tx, id)
		if err != nil {
			return err
		}
		if upd.TaxonomyID != nil {
			if _, err := getTaxonomy(ctx, tx, *upd.TaxonomyID); err != nil {
				return err
			}
		}
		if interval != nil {
			due, err := nextDue(current.LastFertilized, *interval)
			if err != nil {
				return err
			}
			patch["fertilizer_due"] = due
		}
		_, err = tx.Mutator().UpdateWhere(ctx, taxonomy.EntityCareSubject, taxonomy.Where{"id": id}, patch)
		return err
	})
	if err != nil {
		return model.CareSubject{}, fmt.Errorf("update subject %d: %w", id, err)
	}
	return s.GetSubject(ctx, id)
}

// DeactivateSubject hides a subject from dashboards and keeps its history.
func (s *Service) DeactivateSubject(ctx context.Context, id int64) error {
	err := s.db.RunInTx(ctx, func(m taxonomy.Mutator) error {
		n, err := m.UpdateWhere(ctx, taxonomy.EntityCareSubject, taxonomy.Where{"id": id}, taxonomy.Patch{"active": false})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("subject %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deactivate subject %d: %w", id, err)
	}
	s.logger.Info("subject deactivated", zap.Int64("id", id))
	return nil
}

// PurgeSubject deletes a subject and its care events. Propagations taken
// from it keep existing without a parent.
func (s *Service) PurgeSubject(ctx context.Context, id int64) error {
	err := s.db.RunInTx(ctx, func(m taxonomy.Mutator) error {
		n, err := m.DeleteWhere(ctx, taxonomy.EntityCareSubject, taxonomy.Where{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("subject %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("purge subject %d: %w", id, err)
	}
	s.logger.Info("subject purged", zap.Int64("id", id))
	return nil
}
