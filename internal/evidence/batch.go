package evidence

// batch.go converts a ParseResult into persistence-ready evidence atoms.
// No side effects happen here: atoms are returned, not stored. The external
// persistence layer performs an atomic upsert keyed by AtomID, which makes
// concurrent or repeated submissions of the same logical record safe.

import "time"

// BatchOptions parameterizes one batch build.
type BatchOptions struct {
	PSURCaseID    *string
	DeviceScopeID *string
	SourceSystem  string
	PeriodStart   *string
	PeriodEnd     *string

	// Clock supplies the extraction/parse timestamp. Defaults to time.Now;
	// tests pin it to keep batches byte-identical across runs.
	Clock func() time.Time
}

// BuildAtomBatch turns every valid ParsedRecord into an EvidenceAtom and
// collects invalid records, unchanged, in the rejected list. Atom identity
// is the content hash of the normalized record, so the batch is
// deterministic given the same parse output.
func BuildAtomBatch(result ParseResult, uploadID string, opts BatchOptions) (EvidenceAtomBatch, error) {
	now := time.Now
	if opts.Clock != nil {
		now = opts.Clock
	}
	ts := now().UTC()

	batch := EvidenceAtomBatch{
		Summary: BatchSummary{
			TotalRecords:   len(result.Records),
			ValidRecords:   result.ValidRecords,
			InvalidRecords: result.InvalidRecords,
			Warnings:       result.Warnings,
		},
	}

	for _, rec := range result.Records {
		if !rec.IsValid() {
			batch.Rejected = append(batch.Rejected, rec)
			continue
		}

		hash, err := ContentHash(rec.Normalized)
		if err != nil {
			return EvidenceAtomBatch{}, err
		}

		periodStart, periodEnd := effectivePeriod(rec.Normalized, opts)

		atom := EvidenceAtom{
			AtomID:           string(result.EvidenceType) + ":" + hash,
			PSURCaseID:       opts.PSURCaseID,
			UploadID:         uploadID,
			EvidenceType:     result.EvidenceType,
			SourceSystem:     opts.SourceSystem,
			ExtractDate:      ts,
			ContentHash:      hash,
			RecordCount:      1,
			PeriodStart:      periodStart,
			PeriodEnd:        periodEnd,
			DeviceScopeID:    opts.DeviceScopeID,
			DeviceRef:        deviceRef(rec.Normalized),
			RawRow:           rec.RawRow.Values,
			NormalizedRecord: rec.Normalized,
			Provenance: Provenance{
				UploadID:     uploadID,
				RowIndex:     rec.RowIndex,
				SourceSystem: opts.SourceSystem,
				ParsedAt:     ts,
			},
			Status:  StatusValid,
			Version: 1,
		}
		atom.QueryFilters = queryFilters(rec.Normalized)

		batch.Atoms = append(batch.Atoms, atom)
	}

	return batch, nil
}

// effectivePeriod derives an atom's reporting period. Sales rows carry
// their own period; complaints pin both bounds to the complaint date;
// everything else falls back to the caller-supplied bounds.
func effectivePeriod(rec CanonicalRecord, opts BatchOptions) (*string, *string) {
	switch r := rec.(type) {
	case SalesRecord:
		return &r.PeriodStart, &r.PeriodEnd
	case ComplaintRecord:
		return &r.ComplaintDate, &r.ComplaintDate
	default:
		return opts.PeriodStart, opts.PeriodEnd
	}
}

// deviceRef extracts the device code a record is about, when it has one.
func deviceRef(rec CanonicalRecord) *string {
	switch r := rec.(type) {
	case SalesRecord:
		return &r.DeviceCode
	case ComplaintRecord:
		return &r.DeviceCode
	case IncidentRecord:
		return &r.DeviceCode
	case FSCARecord:
		return &r.DeviceCode
	case PMCFStudyRecord:
		return r.DeviceCode
	case RegistrySearchRecord:
		return r.DeviceCode
	default:
		return nil
	}
}

// queryFilters builds the small filter map the persistence layer indexes
// for case-scoped queries.
func queryFilters(rec CanonicalRecord) map[string]string {
	filters := make(map[string]string)

	if ref := deviceRef(rec); ref != nil {
		filters["deviceCode"] = *ref
	}

	switch r := rec.(type) {
	case SalesRecord:
		if r.Country != nil {
			filters["country"] = *r.Country
		}
	case ComplaintRecord:
		if r.Severity != nil {
			filters["severity"] = *r.Severity
		}
		if r.Country != nil {
			filters["country"] = *r.Country
		}
	case IncidentRecord:
		if r.Severity != nil {
			filters["severity"] = *r.Severity
		}
		if r.Country != nil {
			filters["country"] = *r.Country
		}
	case FSCARecord:
		if r.Status != nil {
			filters["status"] = *r.Status
		}
	case CAPARecord:
		if r.Status != nil {
			filters["status"] = *r.Status
		}
	}

	if len(filters) == 0 {
		return nil
	}
	return filters
}
