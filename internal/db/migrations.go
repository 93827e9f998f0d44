package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type migration struct {
	version int
	name    string
	sql     string
}

// Migration DDL is shared by both dialects; {{pk}} and {{ref}} expand to the
// dialect's surrogate key and foreign key column types.
var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
CREATE TABLE IF NOT EXISTS taxonomy (
  id {{pk}},
  family TEXT NOT NULL,
  genus TEXT NOT NULL,
  species TEXT NOT NULL,
  cultivar TEXT,
  common_name TEXT NOT NULL DEFAULT '',
  verified INTEGER NOT NULL DEFAULT 0,
  owner_id TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_taxonomy_identity ON taxonomy(family, genus, species, COALESCE(cultivar, ''));
CREATE INDEX IF NOT EXISTS idx_taxonomy_genus_species ON taxonomy(genus, species);

CREATE TABLE IF NOT EXISTS care_subjects (
  id {{pk}},
  taxonomy_id {{ref}} NOT NULL REFERENCES taxonomy(id),
  owner_id TEXT NOT NULL DEFAULT '',
  nickname TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  fertilizer_schedule TEXT NOT NULL,
  last_fertilized TEXT,
  fertilizer_due TEXT,
  notes TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_care_subjects_taxonomy_id ON care_subjects(taxonomy_id);
CREATE INDEX IF NOT EXISTS idx_care_subjects_fertilizer_due ON care_subjects(fertilizer_due);

CREATE TABLE IF NOT EXISTS care_events (
  id {{pk}},
  subject_id {{ref}} NOT NULL REFERENCES care_subjects(id) ON DELETE CASCADE,
  event_type TEXT NOT NULL CHECK(event_type IN ('fertilizer', 'water', 'repot', 'prune', 'inspect', 'other')),
  performed_at TEXT NOT NULL,
  fertilizer_type TEXT NOT NULL DEFAULT '',
  pot_size TEXT NOT NULL DEFAULT '',
  soil_type TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_care_events_subject_id ON care_events(subject_id);
CREATE INDEX IF NOT EXISTS idx_care_events_performed_at ON care_events(performed_at);
`,
	},
	{
		version: 2,
		name:    "propagations",
		sql: `
CREATE TABLE IF NOT EXISTS propagations (
  id {{pk}},
  taxonomy_id {{ref}} NOT NULL REFERENCES taxonomy(id),
  parent_subject_id {{ref}} REFERENCES care_subjects(id) ON DELETE SET NULL,
  owner_id TEXT NOT NULL DEFAULT '',
  nickname TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'started' CHECK(status IN ('started', 'rooting', 'planted', 'established')),
  source_type TEXT NOT NULL DEFAULT 'internal' CHECK(source_type IN ('internal', 'external')),
  external_source TEXT CHECK(external_source IN ('gift', 'trade', 'purchase', 'other')),
  source_details TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_propagations_taxonomy_id ON propagations(taxonomy_id);
CREATE INDEX IF NOT EXISTS idx_propagations_parent_subject_id ON propagations(parent_subject_id);
`,
	},
	{
		version: 3,
		name:    "app_config",
		sql: `
CREATE TABLE IF NOT EXISTS app_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`,
	},
}

// MigrationCount is the number of schema versions ApplyMigrations knows.
func MigrationCount() int {
	return len(migrations)
}

func (d *DB) ddl(sqlText string) string {
	pk, ref := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER"
	if d.Dialect == DialectPostgres {
		pk, ref = "BIGSERIAL PRIMARY KEY", "BIGINT"
	}
	return strings.NewReplacer("{{pk}}", pk, "{{ref}}", ref).Replace(sqlText)
}

// ApplyMigrations brings the schema up to date, one transaction per version,
// and seeds the local owner id the first time it runs.
func ApplyMigrations(ctx context.Context, d *DB) error {
	if _, err := d.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at TEXT NOT NULL
);
`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := d.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration version %d: %w", m.version, err)
		}

		err = d.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.ExecContext(ctx, d.ddl(m.sql)); err != nil {
				return fmt.Errorf("apply migration version %d (%s): %w", m.version, m.name, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name, applied_at) VALUES(?, ?, ?)`, m.version, m.name, FormatTime(time.Now())); err != nil {
				return fmt.Errorf("record migration version %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if _, err := d.ExecContext(ctx, `
INSERT INTO app_config(key, value, updated_at) VALUES('owner_id', ?, ?)
ON CONFLICT(key) DO NOTHING
`, uuid.NewString(), FormatTime(time.Now())); err != nil {
		return fmt.Errorf("seed owner id: %w", err)
	}
	return nil
}
