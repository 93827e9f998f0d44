package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fancyplanties/planty/internal/taxonomy"
)

type entityTable struct {
	name    string
	columns map[string]bool
}

func columnSet(cols ...string) map[string]bool {
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c] = true
	}
	return out
}

// Only these tables and columns may be addressed through UpdateWhere and
// DeleteWhere; identifiers are never taken from callers verbatim.
var entityTables = map[taxonomy.Entity]entityTable{
	taxonomy.EntityTaxonomy: {
		name:    "taxonomy",
		columns: columnSet("id", "family", "genus", "species", "cultivar", "common_name", "verified", "owner_id", "updated_at"),
	},
	taxonomy.EntityCareSubject: {
		name:    "care_subjects",
		columns: columnSet("id", "taxonomy_id", "owner_id", "nickname", "location", "fertilizer_schedule", "last_fertilized", "fertilizer_due", "notes", "active", "updated_at"),
	},
	taxonomy.EntityPropagation: {
		name:    "propagations",
		columns: columnSet("id", "taxonomy_id", "parent_subject_id", "owner_id", "nickname", "location", "status", "source_type", "external_source", "source_details", "notes", "active", "updated_at"),
	},
}

// RunInTx satisfies taxonomy.TxRunner: fn's mutations commit together or not
// at all.
func (d *DB) RunInTx(ctx context.Context, fn func(taxonomy.Mutator) error) error {
	return d.WithTx(ctx, func(tx *Tx) error {
		return fn(&sqlMutator{tx: tx})
	})
}

// Mutator exposes an open transaction through the taxonomy.Mutator surface.
func (t *Tx) Mutator() taxonomy.Mutator {
	return &sqlMutator{tx: t}
}

type sqlMutator struct {
	tx *Tx
}

func (m *sqlMutator) UpdateWhere(ctx context.Context, entity taxonomy.Entity, match taxonomy.Where, patch taxonomy.Patch) (int64, error) {
	table, ok := entityTables[entity]
	if !ok {
		return 0, fmt.Errorf("update: unknown entity %q", entity)
	}
	if len(patch) == 0 {
		return 0, fmt.Errorf("update %s: empty patch", table.name)
	}
	if _, touched := patch["updated_at"]; !touched && table.columns["updated_at"] {
		patch = withUpdatedAt(patch)
	}
	setCols, setArgs, err := columnsAndArgs(table, patch)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table.name, err)
	}
	where, whereArgs, err := whereClause(table, match)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table.name, err)
	}
	sets := make([]string, 0, len(setCols))
	for _, c := range setCols {
		sets = append(sets, c+" = ?")
	}
	query := "UPDATE " + table.name + " SET " + strings.Join(sets, ", ") + " WHERE " + where
	res, err := m.tx.ExecContext(ctx, query, append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s rows affected: %w", table.name, err)
	}
	return n, nil
}

func (m *sqlMutator) DeleteWhere(ctx context.Context, entity taxonomy.Entity, match taxonomy.Where) (int64, error) {
	table, ok := entityTables[entity]
	if !ok {
		return 0, fmt.Errorf("delete: unknown entity %q", entity)
	}
	where, args, err := whereClause(table, match)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table.name, err)
	}
	res, err := m.tx.ExecContext(ctx, "DELETE FROM "+table.name+" WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s rows affected: %w", table.name, err)
	}
	return n, nil
}

func withUpdatedAt(p taxonomy.Patch) taxonomy.Patch {
	out := make(taxonomy.Patch, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["updated_at"] = time.Now()
	return out
}

// whereClause refuses an empty match so a mutation can never address a whole
// table by accident.
func whereClause(table entityTable, match taxonomy.Where) (string, []any, error) {
	if len(match) == 0 {
		return "", nil, fmt.Errorf("empty match")
	}
	cols, args, err := columnsAndArgs(table, match)
	if err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(cols))
	for i, c := range cols {
		if args[i] == nil {
			parts = append(parts, c+" IS NULL")
			continue
		}
		parts = append(parts, c+" = ?")
	}
	filtered := args[:0]
	for _, a := range args {
		if a != nil {
			filtered = append(filtered, a)
		}
	}
	return strings.Join(parts, " AND "), filtered, nil
}

func columnsAndArgs(table entityTable, values map[string]any) ([]string, []any, error) {
	cols := make([]string, 0, len(values))
	for c := range values {
		if !table.columns[c] {
			return nil, nil, fmt.Errorf("unknown column %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		args = append(args, storageValue(values[c]))
	}
	return cols, args, nil
}

func storageValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return FormatTime(x)
	case *time.Time:
		return NullableTime(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return v
	}
}
