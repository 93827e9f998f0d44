package taxonomy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row map[string]any

// memStore applies mutations to a cloned snapshot and swaps it in only when
// the transaction function succeeds.
type memStore struct {
	mu       sync.Mutex
	tables   map[Entity][]row
	failOn   Entity
	mutCalls int
}

func newMemStore() *memStore {
	return &memStore{tables: map[Entity][]row{}}
}

func (s *memStore) insert(e Entity, r row) {
	s.tables[e] = append(s.tables[e], r)
}

func (s *memStore) RunInTx(ctx context.Context, fn func(Mutator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{store: s, tables: cloneTables(s.tables)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.tables = tx.tables
	return nil
}

func cloneTables(in map[Entity][]row) map[Entity][]row {
	out := make(map[Entity][]row, len(in))
	for e, rows := range in {
		cp := make([]row, 0, len(rows))
		for _, r := range rows {
			c := row{}
			for k, v := range r {
				c[k] = v
			}
			cp = append(cp, c)
		}
		out[e] = cp
	}
	return out
}

type memTx struct {
	store  *memStore
	tables map[Entity][]row
}

func matches(r row, m Where) bool {
	for k, v := range m {
		if r[k] != v {
			return false
		}
	}
	return true
}

func (tx *memTx) UpdateWhere(_ context.Context, e Entity, m Where, p Patch) (int64, error) {
	tx.store.mutCalls++
	if tx.store.failOn == e {
		return 0, errors.New("disk on fire")
	}
	var n int64
	for _, r := range tx.tables[e] {
		if matches(r, m) {
			for k, v := range p {
				r[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (tx *memTx) DeleteWhere(_ context.Context, e Entity, m Where) (int64, error) {
	tx.store.mutCalls++
	kept := tx.tables[e][:0]
	var n int64
	for _, r := range tx.tables[e] {
		if matches(r, m) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	tx.tables[e] = kept
	return n, nil
}

func seededStore() *memStore {
	s := newMemStore()
	s.insert(EntityTaxonomy, row{"id": int64(1)})
	s.insert(EntityTaxonomy, row{"id": int64(2)})
	s.insert(EntityTaxonomy, row{"id": int64(3)})
	s.insert(EntityCareSubject, row{"id": int64(10), "taxonomy_id": int64(1)})
	s.insert(EntityCareSubject, row{"id": int64(11), "taxonomy_id": int64(1)})
	s.insert(EntityCareSubject, row{"id": int64(12), "taxonomy_id": int64(3)})
	s.insert(EntityPropagation, row{"id": int64(20), "taxonomy_id": int64(1)})
	return s
}

func taxonomyIDOf(s *memStore, e Entity, id int64) any {
	for _, r := range s.tables[e] {
		if r["id"] == id {
			return r["taxonomy_id"]
		}
	}
	return nil
}

func hasTaxonomy(s *memStore, id int64) bool {
	for _, r := range s.tables[EntityTaxonomy] {
		if r["id"] == id {
			return true
		}
	}
	return false
}

func TestMergeReassignsAndDeletesSource(t *testing.T) {
	t.Parallel()
	store := seededStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &Merger{Runner: store, Now: func() time.Time { return fixed }}

	res, err := m.Merge(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{SourceID: 1, TargetID: 2, SubjectsReassigned: 2, PropagationsReassigned: 1}, res)

	assert.False(t, hasTaxonomy(store, 1))
	assert.True(t, hasTaxonomy(store, 2))
	assert.Equal(t, int64(2), taxonomyIDOf(store, EntityCareSubject, 10))
	assert.Equal(t, int64(2), taxonomyIDOf(store, EntityCareSubject, 11))
	assert.Equal(t, int64(3), taxonomyIDOf(store, EntityCareSubject, 12))
	assert.Equal(t, int64(2), taxonomyIDOf(store, EntityPropagation, 20))
}

func TestMergeSelfFailsWithoutMutation(t *testing.T) {
	t.Parallel()
	store := seededStore()
	_, err := NewMerger(store).Merge(context.Background(), 1, 1)
	require.ErrorIs(t, err, ErrSelfMerge)
	assert.Zero(t, store.mutCalls)
	assert.True(t, hasTaxonomy(store, 1))
}

func TestMergeMissingIDsChangeNothing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		source, target int64
	}{
		{name: "missing target", source: 1, target: 99},
		{name: "missing source", source: 99, target: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			before := cloneTables(store.tables)
			_, err := NewMerger(store).Merge(context.Background(), tt.source, tt.target)
			require.ErrorIs(t, err, ErrNotFound)
			assert.False(t, errors.Is(err, ErrTransactionFailed))
			assert.Equal(t, before, store.tables)
		})
	}
}

func TestMergeStoreFailureIsTransactionFailedAndAtomic(t *testing.T) {
	t.Parallel()
	store := seededStore()
	store.failOn = EntityPropagation
	before := cloneTables(store.tables)

	_, err := NewMerger(store).Merge(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, err.Error(), "disk on fire")
	// Care subjects were reassigned inside the transaction before the
	// failure; none of it may be visible.
	assert.Equal(t, before, store.tables)
}

func TestMergeCancelledContextIsTransactionFailed(t *testing.T) {
	t.Parallel()
	store := seededStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMerger(store).Merge(ctx, 1, 2)
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, hasTaxonomy(store, 1))
}

func TestMergeChainsSerialize(t *testing.T) {
	t.Parallel()
	store := seededStore()
	m := NewMerger(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = m.Merge(context.Background(), 1, 2) }()
	go func() { defer wg.Done(); _, errs[1] = m.Merge(context.Background(), 2, 3) }()
	wg.Wait()

	// Whichever order the store serialized them in, every subject ends up on a
	// surviving record and no reference dangles.
	for _, r := range store.tables[EntityCareSubject] {
		assert.True(t, hasTaxonomy(store, r["taxonomy_id"].(int64)), "subject %v points at deleted taxonomy", r["id"])
	}
	for _, r := range store.tables[EntityPropagation] {
		assert.True(t, hasTaxonomy(store, r["taxonomy_id"].(int64)))
	}
	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrNotFound)
			failures++
		}
	}
	assert.LessOrEqual(t, failures, 1)
}
