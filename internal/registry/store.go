package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/brandsync/reconciler/internal/plan"
)

var (
	// ErrEmptyRegistry means the registry holds no matchable entities
	ErrEmptyRegistry = errors.New("registry has no matchable entities")

	// ErrPersistenceWriteFailed is wrapped by every per-entity write failure
	ErrPersistenceWriteFailed = errors.New("persistence write failed")

	// ErrEntityNotFound is returned when a plan targets an unknown entity
	ErrEntityNotFound = errors.New("entity not found")
)

// WriteError is a failed write for one entity
type WriteError struct {
	EntityID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write entity %s: %v", e.EntityID, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrPersistenceWriteFailed, e.Err}
}

// Reader lists the raw registry documents
type Reader interface {
	ListDocuments(ctx context.Context) ([]Document, error)
}

// Writer applies one entity's complete mutation set atomically
type Writer interface {
	ApplyEntity(ctx context.Context, entityID string, mutations []plan.Mutation) error
}

// Store is a registry that can be read, written and checked
type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
	Close() error
}

// LoadSnapshot reads the registry once. An empty snapshot is returned together
// with ErrEmptyRegistry so callers can decide whether that is fatal.
func LoadSnapshot(ctx context.Context, r Reader, nameFields []string) (*Snapshot, error) {
	docs, err := r.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	snapshot := NewSnapshot(docs, nameFields)
	if snapshot.Len() == 0 {
		return snapshot, ErrEmptyRegistry
	}
	return snapshot, nil
}

// ApplyReport is the per-entity outcome of dispatching a plan
type ApplyReport struct {
	Applied []string
	Failed  []*WriteError
}

// OK reports whether every entity was written
func (r ApplyReport) OK() bool {
	return len(r.Failed) == 0
}

// Err joins every write failure, or returns nil
func (r ApplyReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Apply writes every entity of the plan in ID order. A failed entity is
// recorded and the remaining entities are still written. Cancelling ctx stops
// before the next entity; entities not reached are reported as failed.
func Apply(ctx context.Context, w Writer, p *plan.WritePlan) ApplyReport {
	var report ApplyReport

	for _, id := range p.Entities() {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, &WriteError{EntityID: id, Err: err})
			continue
		}

		if err := w.ApplyEntity(ctx, id, p.Mutations(id)); err != nil {
			report.Failed = append(report.Failed, &WriteError{EntityID: id, Err: err})
			continue
		}
		report.Applied = append(report.Applied, id)
	}

	return report
}
