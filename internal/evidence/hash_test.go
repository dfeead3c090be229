package evidence

import (
	"strings"
	"testing"
)

func TestContentHashIgnoresKeyOrder(t *testing.T) {
	// Two generic records with the same fields inserted in different
	// orders; map iteration order must not leak into the hash.
	a := GenericRecord{EvidenceType: TypeOther, Fields: map[string]any{}}
	a.Fields["alpha"] = "1"
	a.Fields["beta"] = float64(2)
	a.Fields["gamma"] = "three"

	b := GenericRecord{EvidenceType: TypeOther, Fields: map[string]any{}}
	b.Fields["gamma"] = "three"
	b.Fields["beta"] = float64(2)
	b.Fields["alpha"] = "1"

	ha, err := ContentHash(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := ContentHash(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Errorf("hashes differ for equal records: %s vs %s", ha, hb)
	}
}

func TestContentHashDetectsValueChange(t *testing.T) {
	base := SalesRecord{DeviceCode: "DEV-1", Quantity: 100, PeriodStart: "2024-01-01T00:00:00Z", PeriodEnd: "2024-03-31T00:00:00Z"}
	changed := base
	changed.Quantity = 101

	h1, err := ContentHash(base)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ContentHash(changed)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("value change did not change the hash")
	}
}

func TestContentHashStableAcrossRuns(t *testing.T) {
	rec := ComplaintRecord{
		ComplaintID:   "C-1",
		DeviceCode:    "DEV-1",
		ComplaintDate: "2024-03-15T00:00:00Z",
		Description:   "display flickers",
	}

	h1, err := ContentHash(rec)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		h2, err := ContentHash(rec)
		if err != nil {
			t.Fatal(err)
		}
		if h1 != h2 {
			t.Fatalf("hash not stable: %s vs %s", h1, h2)
		}
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestContentHashAbsentOptionalMatchesOmitted(t *testing.T) {
	// A nil optional field and a record that never set it are the same
	// canonical bytes.
	a := SalesRecord{DeviceCode: "D", Quantity: 1, PeriodStart: "s", PeriodEnd: "e"}
	b := SalesRecord{DeviceCode: "D", Quantity: 1, PeriodStart: "s", PeriodEnd: "e", Country: nil}

	ha, _ := ContentHash(a)
	hb, _ := ContentHash(b)
	if ha != hb {
		t.Error("nil optional field changed the hash")
	}
}

func TestAtomID(t *testing.T) {
	rec := SalesRecord{DeviceCode: "DEV-1", Quantity: 1, PeriodStart: "s", PeriodEnd: "e"}

	id, err := AtomID(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "sales_volume:") {
		t.Errorf("atomId = %s, want sales_volume: prefix", id)
	}
	hash, _ := ContentHash(rec)
	if id != "sales_volume:"+hash {
		t.Errorf("atomId = %s, want type:hash", id)
	}
}
