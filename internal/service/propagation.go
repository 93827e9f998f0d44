package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/taxonomy"
)

const propagationColumns = `id, taxonomy_id, parent_subject_id, owner_id, nickname, location, status, source_type, external_source, source_details, started_at, notes, active, created_at, updated_at`

type PropagationInput struct {
	TaxonomyID      int64
	ParentSubjectID *int64
	Nickname        string
	Location        string
	Source          string
	ExternalSource  string
	SourceDetails   string
	StartedAt       time.Time
	Notes           string
}

type PropagationFilter struct {
	IncludeInactive bool
	Status          model.PropagationStatus
}

type PromoteResult struct {
	Propagation model.PropagationRecord `json:"propagation"`
	Subject     model.CareSubject       `json:"subject"`
}

func scanPropagation(row rowScanner) (model.PropagationRecord, error) {
	var p model.PropagationRecord
	var parent sql.NullInt64
	var status, source string
	var external sql.NullString
	var active int
	var startedAt, createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.TaxonomyID, &parent, &p.OwnerID, &p.Nickname, &p.Location, &status, &source, &external,
		&p.SourceDetails, &startedAt, &p.Notes, &active, &createdAt, &updatedAt); err != nil {
		return p, err
	}
	if parent.Valid {
		id := parent.Int64
		p.ParentSubjectID = &id
	}
	p.Status = model.PropagationStatus(status)
	p.Source = model.PropagationSource(source)
	p.ExternalSource = model.ExternalSource(external.String)
	p.Active = active == 1
	var err error
	if p.StartedAt, err = db.ParseTime(startedAt); err != nil {
		return p, err
	}
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return p, err
	}
	return p, nil
}

// AddPropagation starts tracking a cutting, division or acquired start.
// Internal propagations may name the parent subject they came from; external
// ones record how they were acquired instead.
func (s *Service) AddPropagation(ctx context.Context, in PropagationInput) (model.PropagationRecord, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	if in.Nickname == "" {
		return model.PropagationRecord{}, fmt.Errorf("nickname is required")
	}
	source, external, err := model.ParsePropagationSource(in.Source, in.ExternalSource)
	if err != nil {
		return model.PropagationRecord{}, err
	}
	if source == model.SourceExternal && in.ParentSubjectID != nil {
		return model.PropagationRecord{}, fmt.Errorf("%w: external propagations have no parent subject", model.ErrInvalidPropagationSource)
	}
	if in.StartedAt.IsZero() {
		in.StartedAt = s.now()
	}
	if _, err := s.GetTaxonomy(ctx, in.TaxonomyID); err != nil {
		return model.PropagationRecord{}, err
	}
	if in.ParentSubjectID != nil {
		if _, err := s.GetSubject(ctx, *in.ParentSubjectID); err != nil {
			return model.PropagationRecord{}, fmt.Errorf("parent %w", err)
		}
	}
	owner, err := s.ownerID(ctx, s.db)
	if err != nil {
		return model.PropagationRecord{}, err
	}
	var externalValue any
	if external != "" {
		externalValue = string(external)
	}
	now := db.FormatTime(s.now())

	var id int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO propagations(taxonomy_id, parent_subject_id, owner_id, nickname, location, status, source_type, external_source, source_details, started_at, notes, active, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
RETURNING id
`, in.TaxonomyID, int64OrNil(in.ParentSubjectID), owner, in.Nickname, strings.TrimSpace(in.Location),
		string(model.StatusStarted), string(source), externalValue, strings.TrimSpace(in.SourceDetails),
		db.FormatTime(in.StartedAt), strings.TrimSpace(in.Notes), now, now).Scan(&id)
	if err != nil {
		return model.PropagationRecord{}, fmt.Errorf("add propagation %q: %w", in.Nickname, err)
	}
	s.logger.Info("propagation added", zap.Int64("id", id), zap.String("source", string(source)))
	return s.GetPropagation(ctx, id)
}

func (s *Service) GetPropagation(ctx context.Context, id int64) (model.PropagationRecord, error) {
	return getPropagation(ctx, s.db, id)
}

func getPropagation(ctx context.Context, q queryer, id int64) (model.PropagationRecord, error) {
	p, err := scanPropagation(q.QueryRowContext(ctx, `SELECT `+propagationColumns+` FROM propagations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("propagation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("get propagation %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) ListPropagations(ctx context.Context, f PropagationFilter) ([]model.PropagationRecord, error) {
	query := `SELECT ` + propagationColumns + ` FROM propagations WHERE 1=1`
	args := make([]any, 0, 1)
	if !f.IncludeInactive {
		query += ` AND active = 1`
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY started_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list propagations: %w", err)
	}
	defer rows.Close()
	out := make([]model.PropagationRecord, 0)
	for rows.Next() {
		p, err := scanPropagation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan propagation: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate propagations: %w", err)
	}
	return out, nil
}

// AdvancePropagation moves an active propagation strictly forward through
// started, rooting, planted and established.
func (s *Service) AdvancePropagation(ctx context.Context, id int64, status string) (model.PropagationRecord, error) {
	next, err := model.ParsePropagationStatus(status)
	if err != nil {
		return model.PropagationRecord{}, err
	}
	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		current, err := getPropagation(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.Active {
			return fmt.Errorf("propagation %d is inactive", id)
		}
		if !current.Status.CanAdvanceTo(next) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, current.Status, next)
		}
		n, err := tx.Mutator().UpdateWhere(ctx, taxonomy.EntityPropagation,
			taxonomy.Where{"id": id, "status": string(current.Status)},
			taxonomy.Patch{"status": string(next), "updated_at": s.now()})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("propagation %d changed concurrently", id)
		}
		return nil
	})
	if err != nil {
		return model.PropagationRecord{}, fmt.Errorf("advance propagation %d: %w", id, err)
	}
	s.logger.Info("propagation advanced", zap.Int64("id", id), zap.String("status", string(next)))
	return s.GetPropagation(ctx, id)
}

func (s *Service) DeactivatePropagation(ctx context.Context, id int64) error {
	err := s.db.RunInTx(ctx, func(m taxonomy.Mutator) error {
		n, err := m.UpdateWhere(ctx, taxonomy.EntityPropagation, taxonomy.Where{"id": id}, taxonomy.Patch{"active": false})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("propagation %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deactivate propagation %d: %w", id, err)
	}
	s.logger.Info("propagation deactivated", zap.Int64("id", id))
	return nil
}

// PromotePropagation turns an established propagation into a care subject
// with the same taxonomy, nickname and location, and retires the
// propagation. Both happen or neither does.
func (s *Service) PromotePropagation(ctx context.Context, id int64, schedule string) (PromoteResult, error) {
	if _, err := parseSchedule(schedule); err != nil {
		return PromoteResult{}, err
	}
	var subjectID int64
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		p, err := getPropagation(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.Active {
			return fmt.Errorf("propagation %d is inactive", id)
		}
		if !p.Status.Terminal() {
			return fmt.Errorf("propagation %d is %s; only %s propagations can be promoted", id, p.Status, model.StatusEstablished)
		}
		now := db.FormatTime(s.now())
		err = tx.QueryRowContext(ctx, `
INSERT INTO care_subjects(taxonomy_id, owner_id, nickname, location, fertilizer_schedule, last_fertilized, fertilizer_due, notes, active, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, NULL, NULL, ?, 1, ?, ?)
RETURNING id
`, p.TaxonomyID, p.OwnerID, p.Nickname, p.Location, strings.TrimSpace(schedule), p.Notes, now, now).Scan(&subjectID)
		if err != nil {
			return fmt.Errorf("insert promoted subject: %w", err)
		}
		_, err = tx.Mutator().UpdateWhere(ctx, taxonomy.EntityPropagation, taxonomy.Where{"id": id}, taxonomy.Patch{"active": false})
		return err
	})
	if err != nil {
		return PromoteResult{}, fmt.Errorf("promote propagation %d: %w", id, err)
	}
	s.logger.Info("propagation promoted", zap.Int64("id", id), zap.Int64("subject_id", subjectID))

	p, err := s.GetPropagation(ctx, id)
	if err != nil {
		return PromoteResult{}, err
	}
	sub, err := s.GetSubject(ctx, subjectID)
	if err != nil {
		return PromoteResult{}, err
	}
	return PromoteResult{Propagation: p, Subject: sub}, nil
}
