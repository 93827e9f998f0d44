package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/taxonomy"
)

const careEventColumns = `id, subject_id, event_type, performed_at, fertilizer_type, pot_size, soil_type, notes, created_at`

type CareInput struct {
	SubjectID      int64
	Type           model.CareEventType
	PerformedAt    time.Time
	FertilizerType string
	PotSize        string
	SoilType       string
	Notes          string
}

type CareLogResult struct {
	Event   model.CareEvent   `json:"event"`
	Subject model.CareSubject `json:"subject"`
}

type CareEventFilter struct {
	SubjectID int64
	Since     *time.Time
	Limit     int
}

func scanCareEvent(row rowScanner) (model.CareEvent, error) {
	var e model.CareEvent
	var eventType, performedAt, createdAt string
	if err := row.Scan(&e.ID, &e.SubjectID, &eventType, &performedAt, &e.FertilizerType, &e.PotSize, &e.SoilType, &e.Notes, &createdAt); err != nil {
		return e, err
	}
	e.Type = model.CareEventType(eventType)
	var err error
	if e.PerformedAt, err = db.ParseTime(performedAt); err != nil {
		return e, err
	}
	if e.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return e, err
	}
	return e, nil
}

// LogCare records a care event and recomputes the subject's fertilizer due
// date in the same transaction. Fertilizer events move last_fertilized
// forward; an older fertilizer event never moves it back.
func (s *Service) LogCare(ctx context.Context, in CareInput) (CareLogResult, error) {
	eventType, err := model.ParseCareEventType(string(in.Type))
	if err != nil {
		return CareLogResult{}, err
	}
	if in.PerformedAt.IsZero() {
		in.PerformedAt = s.now()
	}
	if err := db.CheckTime(in.PerformedAt); err != nil {
		return CareLogResult{}, fmt.Errorf("performed at: %w", err)
	}
	now := s.now()

	var eventID int64
	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		sub, err := getSubject(ctx, tx, in.SubjectID)
		if err != nil {
			return err
		}
		if !sub.Active {
			return fmt.Errorf("subject %d is inactive", sub.ID)
		}
		interval, err := parseSchedule(sub.FertilizerSchedule)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
INSERT INTO care_events(subject_id, event_type, performed_at, fertilizer_type, pot_size, soil_type, notes, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`, sub.ID, string(eventType), db.FormatTime(in.PerformedAt), strings.TrimSpace(in.FertilizerType),
			strings.TrimSpace(in.PotSize), strings.TrimSpace(in.SoilType), strings.TrimSpace(in.Notes), db.FormatTime(now)).Scan(&eventID)
		if err != nil {
			return fmt.Errorf("insert care event: %w", err)
		}

		last := sub.LastFertilized
		if eventType == model.CareFertilizer && (last == nil || in.PerformedAt.After(*last)) {
			performed := in.PerformedAt
			last = &performed
		}
		due, err := nextDue(last, interval)
		if err != nil {
			return err
		}
		_, err = tx.Mutator().UpdateWhere(ctx, taxonomy.EntityCareSubject, taxonomy.Where{"id": sub.ID}, taxonomy.Patch{
			"last_fertilized": last,
			"fertilizer_due":  due,
			"updated_at":      now,
		})
		return err
	})
	if err != nil {
		return CareLogResult{}, fmt.Errorf("log care for subject %d: %w", in.SubjectID, err)
	}

	event, err := scanCareEvent(s.db.QueryRowContext(ctx, `SELECT `+careEventColumns+` FROM care_events WHERE id = ?`, eventID))
	if err != nil {
		return CareLogResult{}, fmt.Errorf("reload care event %d: %w", eventID, err)
	}
	sub, err := s.GetSubject(ctx, in.SubjectID)
	if err != nil {
		return CareLogResult{}, err
	}
	s.logger.Info("care logged",
		zap.Int64("subject_id", sub.ID),
		zap.String("type", string(eventType)),
		zap.Time("performed_at", event.PerformedAt))
	return CareLogResult{Event: event, Subject: sub}, nil
}

// ListCareEvents returns events newest first. A zero SubjectID lists every
// subject's events; a non-positive Limit means no limit.
func (s *Service) ListCareEvents(ctx context.Context, f CareEventFilter) ([]model.CareEvent, error) {
	query := `SELECT ` + careEventColumns + ` FROM care_events WHERE 1=1`
	args := make([]any, 0, 3)
	if f.SubjectID > 0 {
		query += ` AND subject_id = ?`
		args = append(args, f.SubjectID)
	}
	if f.Since != nil {
		query += ` AND performed_at >= ?`
		args = append(args, db.FormatTime(*f.Since))
	}
	query += ` ORDER BY performed_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryCareEvents(ctx, query, args...)
}

func (s *Service) queryCareEvents(ctx context.Context, query string, args ...any) ([]model.CareEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list care events: %w", err)
	}
	defer rows.Close()
	out := make([]model.CareEvent, 0)
	for rows.Next() {
		e, err := scanCareEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan care event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate care events: %w", err)
	}
	return out, nil
}
