// Package store persists evidence atoms. Two implementations share the
// AtomStore interface: PostgresStore for deployments and MemoryStore for
// development and tests.
package store

import (
	"context"
	"errors"

	"github.com/Smarticus81/psurRegOSv1-sub011/internal/evidence"
)

var (
	// ErrNotFound is returned when no atom exists for the given ID.
	ErrNotFound = errors.New("atom not found")

	// ErrSuperseded is returned when the target atom was already superseded.
	ErrSuperseded = errors.New("atom already superseded")
)

// UpsertResult reports how an atom batch landed. Duplicates are atoms whose
// ID already existed; content addressing makes re-ingesting them a no-op.
type UpsertResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// ListQuery narrows a case-scoped atom listing. Zero values match everything.
type ListQuery struct {
	EvidenceType evidence.EvidenceType
	Status       evidence.AtomStatus
	DeviceCode   string
}

// AtomStore is the persistence contract for evidence atoms.
type AtomStore interface {
	// UpsertAtoms writes a batch. Atoms whose ID already exists are left
	// untouched and counted as duplicates.
	UpsertAtoms(ctx context.Context, atoms []evidence.EvidenceAtom) (UpsertResult, error)

	// GetAtom fetches one atom by ID. Returns ErrNotFound if absent.
	GetAtom(ctx context.Context, atomID string) (evidence.EvidenceAtom, error)

	// ListByCase returns the atoms attached to a PSUR case, filtered by the
	// query, ordered by extract date then atom ID.
	ListByCase(ctx context.Context, psurCaseID string, q ListQuery) ([]evidence.EvidenceAtom, error)

	// SupersedeAtom marks an atom superseded and inserts its replacement
	// with the version bumped. Returns the stored replacement.
	SupersedeAtom(ctx context.Context, atomID string, replacement evidence.EvidenceAtom) (evidence.EvidenceAtom, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
