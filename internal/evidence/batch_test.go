package evidence

import (
	"reflect"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
}

func TestBuildAtomBatch(t *testing.T) {
	text := "Device Code,Qty,Period Start,Period End\nDEV-1,100,2024-01-01,2024-03-31\n"
	result := ParseEvidenceFile(text, TypeSalesVolume, ParseOptions{})

	batch, err := BuildAtomBatch(result, "upload-1", BatchOptions{
		SourceSystem: "erp",
		Clock:        fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(batch.Atoms) != 1 || len(batch.Rejected) != 0 {
		t.Fatalf("atoms/rejected = %d/%d, want 1/0", len(batch.Atoms), len(batch.Rejected))
	}

	atom := batch.Atoms[0]
	if atom.AtomID != "sales_volume:"+atom.ContentHash {
		t.Errorf("atomId = %s, want evidenceType:contentHash", atom.AtomID)
	}
	if atom.Status != StatusValid || atom.Version != 1 || atom.RecordCount != 1 {
		t.Errorf("atom lifecycle fields: %+v", atom)
	}
	if atom.SupersededBy != nil || atom.ValidationErrors != nil {
		t.Errorf("valid atom must have nil supersededBy and validationErrors")
	}
	if atom.PeriodStart == nil || *atom.PeriodStart != "2024-01-01T00:00:00Z" {
		t.Errorf("periodStart = %v, want row's own period", atom.PeriodStart)
	}
	if atom.DeviceRef == nil || *atom.DeviceRef != "DEV-1" {
		t.Errorf("deviceRef = %v, want DEV-1", atom.DeviceRef)
	}
	if atom.Provenance.UploadID != "upload-1" || atom.Provenance.RowIndex != 1 || atom.Provenance.SourceSystem != "erp" {
		t.Errorf("provenance = %+v", atom.Provenance)
	}
	if !atom.ExtractDate.Equal(fixedClock()) || !atom.Provenance.ParsedAt.Equal(fixedClock()) {
		t.Errorf("timestamps not taken from injected clock")
	}
	if atom.QueryFilters["deviceCode"] != "DEV-1" {
		t.Errorf("queryFilters = %v", atom.QueryFilters)
	}
}

func TestBuildAtomBatchIdempotentID(t *testing.T) {
	// Same logical record, different column order and header spellings.
	a := ParseEvidenceFile("Device Code,Qty,Period Start,Period End\nDEV-1,100,2024-01-01,2024-03-31\n", TypeSalesVolume, ParseOptions{})
	b := ParseEvidenceFile("period_from,period_to,units,SKU\n2024-01-01,2024-03-31,100,DEV-1\n", TypeSalesVolume, ParseOptions{})

	ba, err := BuildAtomBatch(a, "u1", BatchOptions{SourceSystem: "erp", Clock: fixedClock})
	if err != nil {
		t.Fatal(err)
	}
	bb, err := BuildAtomBatch(b, "u2", BatchOptions{SourceSystem: "crm", Clock: fixedClock})
	if err != nil {
		t.Fatal(err)
	}

	if ba.Atoms[0].AtomID != bb.Atoms[0].AtomID {
		t.Errorf("atomId differs for semantically equal records:\n%s\n%s",
			ba.Atoms[0].AtomID, bb.Atoms[0].AtomID)
	}
}

func TestBuildAtomBatchDeterministic(t *testing.T) {
	text := "Complaint ID,Device,Date,Description\nC-1,DEV-1,2024-02-01,noise\n"
	result := ParseEvidenceFile(text, TypeComplaints, ParseOptions{})

	opts := BatchOptions{SourceSystem: "crm", Clock: fixedClock}
	first, err := BuildAtomBatch(result, "u1", opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildAtomBatch(result, "u1", opts)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("same parse result and options produced different batches")
	}
}

func TestBuildAtomBatchComplaintPeriod(t *testing.T) {
	text := "Complaint ID,Device,Date,Description\nC-1,DEV-1,2024-02-01,noise\n"
	result := ParseEvidenceFile(text, TypeComplaints, ParseOptions{})

	batch, err := BuildAtomBatch(result, "u1", BatchOptions{SourceSystem: "crm", Clock: fixedClock})
	if err != nil {
		t.Fatal(err)
	}

	atom := batch.Atoms[0]
	if atom.PeriodStart == nil || atom.PeriodEnd == nil ||
		*atom.PeriodStart != "2024-02-01T00:00:00Z" || *atom.PeriodStart != *atom.PeriodEnd {
		t.Errorf("complaint period = %v..%v, want both pinned to complaintDate", atom.PeriodStart, atom.PeriodEnd)
	}
	if atom.QueryFilters != nil && atom.QueryFilters["severity"] != "" {
		t.Errorf("unexpected severity filter: %v", atom.QueryFilters)
	}
}

func TestBuildAtomBatchOptionPeriodFallback(t *testing.T) {
	text := "CAPA ID,Description\nCAPA-1,seal redesign\n"
	result := ParseEvidenceFile(text, TypeCAPA, ParseOptions{})

	start, end := "2024-01-01T00:00:00Z", "2024-06-30T00:00:00Z"
	batch, err := BuildAtomBatch(result, "u1", BatchOptions{
		SourceSystem: "qms",
		PeriodStart:  &start,
		PeriodEnd:    &end,
		Clock:        fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}

	atom := batch.Atoms[0]
	if atom.PeriodStart == nil || *atom.PeriodStart != start || atom.PeriodEnd == nil || *atom.PeriodEnd != end {
		t.Errorf("period = %v..%v, want caller-supplied bounds", atom.PeriodStart, atom.PeriodEnd)
	}
}

func TestBuildAtomBatchRejectedPreserved(t *testing.T) {
	text := "Complaint ID,Device,Date,Description\n" +
		"C-1,DEV-1,2024-01-10,cracked housing\n" +
		",DEV-1,2024-01-11,loose cable\n" +
		"C-3,DEV-2,2024-01-12,noise\n" +
		",DEV-2,2024-01-13,overheats\n" +
		"C-5,DEV-3,2024-01-14,dead battery\n"
	result := ParseEvidenceFile(text, TypeComplaints, ParseOptions{})

	batch, err := BuildAtomBatch(result, "u1", BatchOptions{SourceSystem: "crm", Clock: fixedClock})
	if err != nil {
		t.Fatal(err)
	}

	if len(batch.Atoms) != 3 || len(batch.Rejected) != 2 {
		t.Fatalf("atoms/rejected = %d/%d, want 3/2", len(batch.Atoms), len(batch.Rejected))
	}
	for _, rej := range batch.Rejected {
		if rej.IsValid() {
			t.Error("rejected list contains a valid record")
		}
		if len(rej.Errors) == 0 {
			t.Error("rejected record lost its validation detail")
		}
		if len(rej.RawRow.Values) == 0 {
			t.Error("rejected record lost its raw row")
		}
	}

	s := batch.Summary
	if s.TotalRecords != 5 || s.ValidRecords != 3 || s.InvalidRecords != 2 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Warnings) != 1 {
		t.Errorf("warnings = %v", s.Warnings)
	}
}

func TestBuildAtomBatchCaseAndScope(t *testing.T) {
	text := "Incident ID,Device,Event Date,Description,Serious\nINC-1,DEV-4,2024-03-03,lead detachment,yes\n"
	result := ParseEvidenceFile(text, TypeIncidents, ParseOptions{})

	caseID, scopeID := "case-9", "scope-2"
	batch, err := BuildAtomBatch(result, "u1", BatchOptions{
		PSURCaseID:    &caseID,
		DeviceScopeID: &scopeID,
		SourceSystem:  "vigilance",
		Clock:         fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}

	atom := batch.Atoms[0]
	if atom.PSURCaseID == nil || *atom.PSURCaseID != caseID {
		t.Errorf("psurCaseId = %v", atom.PSURCaseID)
	}
	if atom.DeviceScopeID == nil || *atom.DeviceScopeID != scopeID {
		t.Errorf("deviceScopeId = %v", atom.DeviceScopeID)
	}

	inc := atom.NormalizedRecord.(IncidentRecord)
	if inc.Serious == nil || !*inc.Serious {
		t.Errorf("serious = %v, want true", inc.Serious)
	}
}
