package evidence

// parse.go is the file-level orchestration: tokenize, dispatch every row to
// the declared type's parser, and aggregate per-row outcomes. Per-row
// failures never abort the file; only an empty input (or an evidence type
// nobody registered) makes the whole parse unsuccessful.

import "fmt"

// ParseOptions carries caller-supplied defaults for one file.
type ParseOptions struct {
	// PeriodStart/End are optional reporting-period bounds. Rows that carry
	// no period of their own fall back to these where the schema allows it.
	PeriodStart *string
	PeriodEnd   *string
}

// ParseEvidenceFile tokenizes raw file text and parses every data row with
// the parser registered for evidenceType. Success means at least one row
// produced a valid record; an empty or header-only file is the one outright
// failure.
func ParseEvidenceFile(text string, evidenceType EvidenceType, opts ParseOptions) ParseResult {
	result := ParseResult{EvidenceType: evidenceType}

	rows := Tokenize(text)
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "no data records found")
		return result
	}

	pctx := ParseContext{
		DefaultPeriodStart: opts.PeriodStart,
		DefaultPeriodEnd:   opts.PeriodEnd,
	}

	parser, registered := ParserFor(evidenceType)
	if !registered {
		// Dispatch failure applies to every row: each is rejected with the
		// same single error so callers still see full row detail.
		msg := fmt.Sprintf("Unsupported evidence type: %s", evidenceType)
		for i, row := range rows {
			result.Records = append(result.Records, ParsedRecord{
				RawRow:   row,
				RowIndex: i + 1,
				Errors:   []string{msg},
			})
		}
		result.InvalidRecords = len(result.Records)
		result.Errors = append(result.Errors, msg)
		return result
	}

	for i, row := range rows {
		rec := parser(row, i+1, pctx)
		result.Records = append(result.Records, rec)
		if rec.IsValid() {
			result.ValidRecords++
		} else {
			result.InvalidRecords++
		}
	}

	result.Success = result.ValidRecords > 0
	if result.InvalidRecords > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d records failed validation and will be rejected", result.InvalidRecords))
	}
	return result
}
