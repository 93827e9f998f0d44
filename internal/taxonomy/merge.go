package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("taxonomy record not found")
	ErrSelfMerge         = errors.New("cannot merge a taxonomy record into itself")
	ErrTransactionFailed = errors.New("transaction failed")
)

type Entity string

const (
	EntityTaxonomy    Entity = "taxonomy"
	EntityCareSubject Entity = "care_subject"
	EntityPropagation Entity = "propagation"
)

// Where selects rows by column equality; all pairs must hold.
type Where map[string]any

// Patch assigns column values.
type Patch map[string]any

// Mutator is the narrow write surface a transaction exposes. Both methods
// report how many rows they touched.
type Mutator interface {
	UpdateWhere(ctx context.Context, entity Entity, match Where, patch Patch) (int64, error)
	DeleteWhere(ctx context.Context, entity Entity, match Where) (int64, error)
}

// TxRunner runs fn inside one atomic transaction. If fn returns an error
// nothing fn did is kept.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Mutator) error) error
}

type MergeResult struct {
	SourceID               int64 `json:"source_id"`
	TargetID               int64 `json:"target_id"`
	SubjectsReassigned     int64 `json:"subjects_reassigned"`
	PropagationsReassigned int64 `json:"propagations_reassigned"`
}

type Merger struct {
	Runner TxRunner
	Now    func() time.Time
}

func NewMerger(runner TxRunner) *Merger {
	return &Merger{Runner: runner, Now: time.Now}
}

// Merge repoints every care subject and propagation from sourceID to
// targetID and deletes the source, all in one transaction.
//
// It fails with ErrSelfMerge before touching the store when the ids are
// equal, and with ErrNotFound when either record is missing; in both cases
// nothing is changed. Any store failure is wrapped in ErrTransactionFailed
// and nothing is changed either; the caller may rerun the whole merge.
func (m *Merger) Merge(ctx context.Context, sourceID, targetID int64) (MergeResult, error) {
	if sourceID == targetID {
		return MergeResult{}, fmt.Errorf("%w (id %d)", ErrSelfMerge, sourceID)
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	result := MergeResult{SourceID: sourceID, TargetID: targetID}
	err := m.Runner.RunInTx(ctx, func(tx Mutator) error {
		res := MergeResult{SourceID: sourceID, TargetID: targetID}

		// Touching the target both proves it exists and locks its row
		// against a concurrent merge that would delete it.
		n, err := tx.UpdateWhere(ctx, EntityTaxonomy, Where{"id": targetID}, Patch{"updated_at": now()})
		if err != nil {
			return storeErr("touch target", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: target id %d", ErrNotFound, targetID)
		}

		if res.SubjectsReassigned, err = tx.UpdateWhere(ctx, EntityCareSubject, Where{"taxonomy_id": sourceID}, Patch{"taxonomy_id": targetID}); err != nil {
			return storeErr("reassign care subjects", err)
		}
		if res.PropagationsReassigned, err = tx.UpdateWhere(ctx, EntityPropagation, Where{"taxonomy_id": sourceID}, Patch{"taxonomy_id": targetID}); err != nil {
			return storeErr("reassign propagations", err)
		}

		n, err = tx.DeleteWhere(ctx, EntityTaxonomy, Where{"id": sourceID})
		if err != nil {
			return storeErr("delete source", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: source id %d", ErrNotFound, sourceID)
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransactionFailed) {
			return MergeResult{}, err
		}
		return MergeResult{}, storeErr("merge", err)
	}
	return result, nil
}

func storeErr(step string, err error) error {
	if errors.Is(err, ErrTransactionFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrTransactionFailed, step, err)
}
