package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/model"
)

const catalogVersion = 1

// Catalog is the YAML file format for sharing taxonomy records.
type Catalog struct {
	Version int                    `yaml:"version"`
	Taxa    []model.TaxonomyRecord `yaml:"taxa"`
}

type ImportReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ExportTaxonomy writes every record as a YAML catalog and returns how many
// were written.
func (s *Service) ExportTaxonomy(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.ListTaxonomy(ctx)
	if err != nil {
		return 0, err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Catalog{Version: catalogVersion, Taxa: records}); err != nil {
		return 0, fmt.Errorf("encode taxonomy catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("flush taxonomy catalog: %w", err)
	}
	return len(records), nil
}

// ImportTaxonomy upserts a YAML catalog keyed on family, genus, species and
// cultivar. Existing records take the imported common name and verified flag.
// The whole file is applied in one transaction.
func (s *Service) ImportTaxonomy(ctx context.Context, r io.Reader) (ImportReport, error) {
	var catalog Catalog
	if err := yaml.NewDecoder(r).Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportReport{}, fmt.Errorf("taxonomy catalog is empty")
		}
		return ImportReport{}, fmt.Errorf("decode taxonomy catalog: %w", err)
	}
	if catalog.Version != 0 && catalog.Version != catalogVersion {
		return ImportReport{}, fmt.Errorf("unsupported taxonomy catalog version %d", catalog.Version)
	}

	var report ImportReport
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		owner, err := s.ownerID(ctx, tx)
		if err != nil {
			return err
		}
		now := db.FormatTime(s.now())
		for i, rec := range catalog.Taxa {
			in := TaxonomyInput{
				Family:     rec.Family,
				Genus:      rec.Genus,
				Species:    rec.Species,
				Cultivar:   rec.Cultivar,
				CommonName: rec.CommonName,
				Verified:   rec.Verified,
			}
			if err := in.normalize(); err != nil {
				return fmt.Errorf("catalog entry %d: %w", i+1, err)
			}
			var id int64
			err := tx.QueryRowContext(ctx, `
SELECT id FROM taxonomy
WHERE family = ? AND genus = ? AND species = ? AND COALESCE(cultivar, '') = ?
`, in.Family, in.Genus, in.Species, textOrEmpty(in.Cultivar)).Scan(&id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.ExecContext(ctx, `
INSERT INTO taxonomy(family, genus, species, cultivar, common_name, verified, owner_id, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
`, in.Family, in.Genus, in.Species, textOrNil(in.Cultivar), in.CommonName, boolInt(in.Verified), owner, now, now); err != nil {
					return fmt.Errorf("insert catalog entry %d: %w", i+1, err)
				}
				report.Created++
			case err != nil:
				return fmt.Errorf("lookup catalog entry %d: %w", i+1, err)
			default:
				if _, err := tx.ExecContext(ctx, `UPDATE taxonomy SET common_name = ?, verified = ?, updated_at = ? WHERE id = ?`,
					in.CommonName, boolInt(in.Verified), now, id); err != nil {
					return fmt.Errorf("update catalog entry %d: %w", i+1, err)
				}
				report.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return ImportReport{}, fmt.Errorf("import taxonomy catalog: %w", err)
	}
	s.logger.Info("taxonomy catalog imported", zap.Int("created", report.Created), zap.Int("updated", report.Updated))
	return report, nil
}

func textOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
