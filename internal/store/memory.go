package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Smarticus81/psurRegOSv1-sub011/internal/evidence"
)

// MemoryStore is an in-memory AtomStore with the same observable behavior as
// PostgresStore. It backs development mode and handler tests.
type MemoryStore struct {
	mu    sync.RWMutex
	atoms map[string]evidence.EvidenceAtom
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{atoms: make(map[string]evidence.EvidenceAtom)}
}

func (m *MemoryStore) UpsertAtoms(ctx context.Context, atoms []evidence.EvidenceAtom) (UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return UpsertResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result UpsertResult
	for _, atom := range atoms {
		if _, exists := m.atoms[atom.AtomID]; exists {
			result.Duplicates++
			continue
		}
		m.atoms[atom.AtomID] = atom
		result.Inserted++
	}
	return result, nil
}

func (m *MemoryStore) GetAtom(ctx context.Context, atomID string) (evidence.EvidenceAtom, error) {
	if err := ctx.Err(); err != nil {
		return evidence.EvidenceAtom{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	atom, ok := m.atoms[atomID]
	if !ok {
		return evidence.EvidenceAtom{}, ErrNotFound
	}
	return atom, nil
}

func (m *MemoryStore) ListByCase(ctx context.Context, psurCaseID string, q ListQuery) ([]evidence.EvidenceAtom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var atoms []evidence.EvidenceAtom
	for _, atom := range m.atoms {
		if atom.PSURCaseID == nil || *atom.PSURCaseID != psurCaseID {
			continue
		}
		if q.EvidenceType != "" && atom.EvidenceType != q.EvidenceType {
			continue
		}
		if q.Status != "" && atom.Status != q.Status {
			continue
		}
		if q.DeviceCode != "" && (atom.DeviceRef == nil || *atom.DeviceRef != q.DeviceCode) {
			continue
		}
		atoms = append(atoms, atom)
	}

	sort.Slice(atoms, func(i, j int) bool {
		if !atoms[i].ExtractDate.Equal(atoms[j].ExtractDate) {
			return atoms[i].ExtractDate.Before(atoms[j].ExtractDate)
		}
		return atoms[i].AtomID < atoms[j].AtomID
	})
	return atoms, nil
}

func (m *MemoryStore) SupersedeAtom(ctx context.Context, atomID string, replacement evidence.EvidenceAtom) (evidence.EvidenceAtom, error) {
	if err := ctx.Err(); err != nil {
		return evidence.EvidenceAtom{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.atoms[atomID]
	if !ok {
		return evidence.EvidenceAtom{}, ErrNotFound
	}
	if old.Status == evidence.StatusSuperseded {
		return evidence.EvidenceAtom{}, ErrSuperseded
	}

	replacement.Status = evidence.StatusValid
	replacement.Version = old.Version + 1
	replacement.SupersededBy = nil
	m.atoms[replacement.AtomID] = replacement

	old.Status = evidence.StatusSuperseded
	old.SupersededBy = &replacement.AtomID
	m.atoms[atomID] = old

	return replacement, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Count reports the number of stored atoms. Test helper.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.atoms)
}
