package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smarticus81/psurRegOSv1-sub011/internal/evidence"
)

func testAtom(id, caseID string, t evidence.EvidenceType) evidence.EvidenceAtom {
	device := "DEV-1"
	return evidence.EvidenceAtom{
		AtomID:       id,
		PSURCaseID:   &caseID,
		UploadID:     "upload-1",
		EvidenceType: t,
		SourceSystem: "erp",
		ExtractDate:  time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		ContentHash:  "hash-" + id,
		RecordCount:  1,
		DeviceRef:    &device,
		Status:       evidence.StatusValid,
		Version:      1,
	}
}

func TestMemoryStore_UpsertDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first, err := s.UpsertAtoms(ctx, []evidence.EvidenceAtom{
		testAtom("sales_volume:a", "case-1", evidence.TypeSalesVolume),
		testAtom("sales_volume:b", "case-1", evidence.TypeSalesVolume),
	})
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 2, Duplicates: 0}, first)

	second, err := s.UpsertAtoms(ctx, []evidence.EvidenceAtom{
		testAtom("sales_volume:a", "case-1", evidence.TypeSalesVolume),
		testAtom("sales_volume:c", "case-1", evidence.TypeSalesVolume),
	})
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 1, Duplicates: 1}, second)
	assert.Equal(t, 3, s.Count())
}

func TestMemoryStore_GetAtom(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.UpsertAtoms(ctx, []evidence.EvidenceAtom{
		testAtom("complaints:a", "case-1", evidence.TypeComplaints),
	})
	require.NoError(t, err)

	atom, err := s.GetAtom(ctx, "complaints:a")
	require.NoError(t, err)
	assert.Equal(t, evidence.TypeComplaints, atom.EvidenceType)

	_, err = s.GetAtom(ctx, "complaints:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListByCase(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.UpsertAtoms(ctx, []evidence.EvidenceAtom{
		testAtom("sales_volume:a", "case-1", evidence.TypeSalesVolume),
		testAtom("complaints:b", "case-1", evidence.TypeComplaints),
		testAtom("sales_volume:c", "case-2", evidence.TypeSalesVolume),
	})
	require.NoError(t, err)

	all, err := s.ListByCase(ctx, "case-1", ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Ordered by extract date then atom ID.
	assert.Equal(t, "complaints:b", all[0].AtomID)
	assert.Equal(t, "sales_volume:a", all[1].AtomID)

	sales, err := s.ListByCase(ctx, "case-1", ListQuery{EvidenceType: evidence.TypeSalesVolume})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "sales_volume:a", sales[0].AtomID)

	none, err := s.ListByCase(ctx, "case-1", ListQuery{DeviceCode: "DEV-9"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_SupersedeAtom(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.UpsertAtoms(ctx, []evidence.EvidenceAtom{
		testAtom("sales_volume:old", "case-1", evidence.TypeSalesVolume),
	})
	require.NoError(t, err)

	replacement := testAtom("sales_volume:new", "case-1", evidence.TypeSalesVolume)
	stored, err := s.SupersedeAtom(ctx, "sales_volume:old", replacement)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, evidence.StatusValid, stored.Status)

	old, err := s.GetAtom(ctx, "sales_volume:old")
	require.NoError(t, err)
	assert.Equal(t, evidence.StatusSuperseded, old.Status)
	require.NotNil(t, old.SupersededBy)
	assert.Equal(t, "sales_volume:new", *old.SupersededBy)

	// A superseded atom cannot be superseded again.
	_, err = s.SupersedeAtom(ctx, "sales_volume:old", replacement)
	assert.ErrorIs(t, err, ErrSuperseded)

	_, err = s.SupersedeAtom(ctx, "sales_volume:missing", replacement)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemory()
	_, err := s.UpsertAtoms(ctx, nil)
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))
}
