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

// ErrTaxonomyInUse blocks deleting a record that subjects or propagations
// still reference.
var ErrTaxonomyInUse = errors.New("taxonomy record is referenced")

const taxonomyColumns = `id, family, genus, species, cultivar, common_name, verified, owner_id, created_at, updated_at`

type TaxonomyInput struct {
	Family     string
	Genus      string
	Species    string
	Cultivar   *string
	CommonName string
	Verified   bool
}

func (in *TaxonomyInput) normalize() error {
	in.Family = strings.TrimSpace(in.Family)
	in.Genus = strings.TrimSpace(in.Genus)
	in.Species = strings.TrimSpace(in.Species)
	in.Cultivar = optionalText(in.Cultivar)
	in.CommonName = strings.TrimSpace(in.CommonName)
	if in.Family == "" || in.Genus == "" || in.Species == "" {
		return fmt.Errorf("family, genus and species are required")
	}
	return nil
}

// TaxonomyUpdate changes only the fields that are set. ClearCultivar removes
// the cultivar.
type TaxonomyUpdate struct {
	Family        *string
	Genus         *string
	Species       *string
	Cultivar      *string
	ClearCultivar bool
	CommonName    *string
	Verified      *bool
}

type TaxonomySearchPage struct {
	Query   string           `json:"query"`
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
	Matches []taxonomy.Match `json:"matches"`
}

func scanTaxonomy(row rowScanner) (model.TaxonomyRecord, error) {
	var r model.TaxonomyRecord
	var cultivar sql.NullString
	var verified int
	var createdAt, updatedAt string
	if err := row.Scan(&r.ID, &r.Family, &r.Genus, &r.Species, &cultivar, &r.CommonName, &verified, &r.OwnerID, &createdAt, &updatedAt); err != nil {
		return r, err
	}
	r.Cultivar = nullText(cultivar)
	r.Verified = verified == 1
	var err error
	if r.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return r, err
	}
	if r.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return r, err
	}
	return r, nil
}

func (s *Service) AddTaxonomy(ctx context.Context, in TaxonomyInput) (model.TaxonomyRecord, error) {
	if err := in.normalize(); err != nil {
		return model.TaxonomyRecord{}, err
	}
	owner, err := s.ownerID(ctx, s.db)
	if err != nil {
		return model.TaxonomyRecord{}, err
	}
	now := db.FormatTime(s.now())
	var id int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO taxonomy(family, genus, species, cultivar, common_name, verified, owner_id, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`, in.Family, in.Genus, in.Species, textOrNil(in.Cultivar), in.CommonName, boolInt(in.Verified), owner, now, now).Scan(&id)
	if err != nil {
		return model.TaxonomyRecord{}, fmt.Errorf("add taxonomy %s %s: %w", in.Genus, in.Species, err)
	}
	s.logger.Info("taxonomy added", zap.Int64("id", id), zap.String("genus", in.Genus), zap.String("species", in.Species))
	return s.GetTaxonomy(ctx, id)
}

func (s *Service) GetTaxonomy(ctx context.Context, id int64) (model.TaxonomyRecord, error) {
	return getTaxonomy(ctx, s.db, id)
}

func getTaxonomy(ctx context.Context, q queryer, id int64) (model.TaxonomyRecord, error) {
	r, err := scanTaxonomy(q.QueryRowContext(ctx, `SELECT `+taxonomyColumns+` FROM taxonomy WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("taxonomy %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("get taxonomy %d: %w", id, err)
	}
	return r, nil
}

// ListTaxonomy returns every record ordered by genus, species and id.
func (s *Service) ListTaxonomy(ctx context.Context) ([]model.TaxonomyRecord, error) {
	return listTaxonomy(ctx, s.db)
}

func listTaxonomy(ctx context.Context, q queryer) ([]model.TaxonomyRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+taxonomyColumns+` FROM taxonomy ORDER BY genus, species, id`)
	if err != nil {
		return nil, fmt.Errorf("list taxonomy: %w", err)
	}
	defer rows.Close()
	out := make([]model.TaxonomyRecord, 0)
	for rows.Next() {
		r, err := scanTaxonomy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan taxonomy: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate taxonomy: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateTaxonomy(ctx context.Context, id int64, upd TaxonomyUpdate) (model.TaxonomyRecord, error) {
	patch := taxonomy.Patch{}
	for col, v := range map[string]*string{"family": upd.Family, "genus": upd.Genus, "species": upd.Species} {
		if v == nil {
			continue
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return model.TaxonomyRecord{}, fmt.Errorf("%s cannot be empty", col)
		}
		patch[col] = trimmed
	}
	switch {
	case upd.ClearCultivar:
		patch["cultivar"] = nil
	case upd.Cultivar != nil:
		patch["cultivar"] = textOrNil(optionalText(upd.Cultivar))
	}
	if upd.CommonName != nil {
		patch["common_name"] = strings.TrimSpace(*upd.CommonName)
	}
	if upd.Verified != nil {
		patch["verified"] = *upd.Verified
	}
	if len(patch) == 0 {
		return model.TaxonomyRecord{}, fmt.Errorf("no taxonomy fields to update")
	}
	patch["updated_at"] = s.now()

	err := s.db.RunInTx(ctx, func(m taxonomy.Mutator) error {
		n, err := m.UpdateWhere(ctx, taxonomy.EntityTaxonomy, taxonomy.Where{"id": id}, patch)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("taxonomy %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return model.TaxonomyRecord{}, fmt.Errorf("update taxonomy %d: %w", id, err)
	}
	return s.GetTaxonomy(ctx, id)
}

// DeleteTaxonomy removes an unreferenced record. Referenced records must be
// merged into another instead.
func (s *Service) DeleteTaxonomy(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		refs, err := taxonomyRefs(ctx, tx, id)
		if err != nil {
			return err
		}
		if refs.Total() > 0 {
			return fmt.Errorf("%w: %d subjects and %d propagations; merge it instead", ErrTaxonomyInUse, refs.Subjects, refs.Propagations)
		}
		n, err := tx.Mutator().DeleteWhere(ctx, taxonomy.EntityTaxonomy, taxonomy.Where{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("taxonomy %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete taxonomy %d: %w", id, err)
	}
	s.logger.Info("taxonomy deleted", zap.Int64("id", id))
	return nil
}

func taxonomyRefs(ctx context.Context, q queryer, id int64) (taxonomy.RefCounts, error) {
	var refs taxonomy.RefCounts
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM care_subjects WHERE taxonomy_id = ?`, id).Scan(&refs.Subjects); err != nil {
		return refs, fmt.Errorf("count subjects for taxonomy %d: %w", id, err)
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM propagations WHERE taxonomy_id = ?`, id).Scan(&refs.Propagations); err != nil {
		return refs, fmt.Errorf("count propagations for taxonomy %d: %w", id, err)
	}
	return refs, nil
}

// SearchTaxonomy ranks every record against query and returns one page.
// A non-positive limit returns everything from offset on.
func (s *Service) SearchTaxonomy(ctx context.Context, query string, limit, offset int) (TaxonomySearchPage, error) {
	if offset < 0 {
		return TaxonomySearchPage{}, fmt.Errorf("offset must be >= 0")
	}
	candidates, err := s.ListTaxonomy(ctx)
	if err != nil {
		return TaxonomySearchPage{}, err
	}
	matches := taxonomy.Search(query, candidates)
	return TaxonomySearchPage{
		Query:   strings.TrimSpace(query),
		Total:   len(matches),
		Offset:  offset,
		Limit:   limit,
		Matches: taxonomy.Page(matches, offset, limit),
	}, nil
}

// FindDuplicateTaxonomy groups records sharing genus and species, with the
// number of subjects and propagations pointing at each member.
func (s *Service) FindDuplicateTaxonomy(ctx context.Context) ([]taxonomy.DuplicateGroup, error) {
	records, err := s.ListTaxonomy(ctx)
	if err != nil {
		return nil, err
	}
	refs := make(map[int64]taxonomy.RefCounts, len(records))
	if err := s.collectRefCounts(ctx, `SELECT taxonomy_id, COUNT(1) FROM care_subjects GROUP BY taxonomy_id`, refs, func(r *taxonomy.RefCounts, n int) { r.Subjects = n }); err != nil {
		return nil, err
	}
	if err := s.collectRefCounts(ctx, `SELECT taxonomy_id, COUNT(1) FROM propagations GROUP BY taxonomy_id`, refs, func(r *taxonomy.RefCounts, n int) { r.Propagations = n }); err != nil {
		return nil, err
	}
	return taxonomy.FindDuplicates(records, refs), nil
}

func (s *Service) collectRefCounts(ctx context.Context, query string, refs map[int64]taxonomy.RefCounts, set func(*taxonomy.RefCounts, int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("count taxonomy references: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return fmt.Errorf("scan taxonomy reference count: %w", err)
		}
		r := refs[id]
		set(&r, n)
		refs[id] = r
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate taxonomy reference counts: %w", err)
	}
	return nil
}

// MergeTaxonomy folds source into target under the configured timeout. A
// timeout surfaces as taxonomy.ErrTransactionFailed like any other store
// failure, and nothing is changed.
func (s *Service) MergeTaxonomy(ctx context.Context, sourceID, targetID int64) (taxonomy.MergeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.mergeTimeout)
	defer cancel()

	merger := taxonomy.NewMerger(s.db)
	merger.Now = s.now
	start := time.Now()
	res, err := merger.Merge(ctx, sourceID, targetID)
	if err != nil {
		s.logger.Warn("taxonomy merge failed",
			zap.Int64("source_id", sourceID),
			zap.Int64("target_id", targetID),
			zap.Error(err))
		return res, fmt.Errorf("merge taxonomy %d into %d: %w", sourceID, targetID, err)
	}
	s.logger.Info("taxonomy merged",
		zap.Int64("source_id", sourceID),
		zap.Int64("target_id", targetID),
		zap.Int64("subjects_reassigned", res.SubjectsReassigned),
		zap.Int64("propagations_reassigned", res.PropagationsReassigned),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}
