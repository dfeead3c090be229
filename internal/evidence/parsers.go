package evidence

// parsers.go holds one record parser per evidence type. Each parser applies
// the type's alias table and the tolerant coercers, enforces the required
// field rules, and emits a ParsedRecord. A row either yields a normalized
// record or an ordered list of validation errors, never both.

import "fmt"

// rowBuilder accumulates resolved fields and validation errors for one row.
type rowBuilder struct {
	row     RawRow
	aliases aliasTable
	errs    []string
}

func newRowBuilder(row RawRow, aliases aliasTable) *rowBuilder {
	return &rowBuilder{row: row, aliases: aliases}
}

func (b *rowBuilder) missing(field string) {
	b.errs = append(b.errs, fmt.Sprintf("Missing required field: %s", field))
}

func (b *rowBuilder) invalid(field, value string) {
	b.errs = append(b.errs, fmt.Sprintf("Invalid value for %s: %s", field, value))
}

// requiredText resolves a required free-text field. Absence is recorded as
// a missing-field error and yields "".
func (b *rowBuilder) requiredText(field string) string {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		b.missing(field)
		return ""
	}
	return v
}

func (b *rowBuilder) optionalText(field string) *string {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		return nil
	}
	return &v
}

// requiredDate resolves and coerces a required date field. A cell that is
// absent or fails coercion both count as missing, per the error taxonomy.
func (b *rowBuilder) requiredDate(field string) string {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		b.missing(field)
		return ""
	}
	iso, ok := CoerceISODate(v)
	if !ok {
		b.missing(field)
		return ""
	}
	return iso
}

func (b *rowBuilder) optionalDate(field string) *string {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		return nil
	}
	iso, ok := CoerceISODate(v)
	if !ok {
		return nil
	}
	return &iso
}

func (b *rowBuilder) optionalNumber(field string) *float64 {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		return nil
	}
	n, ok := CoerceNumber(v)
	if !ok {
		return nil
	}
	return &n
}

func (b *rowBuilder) optionalBool(field string) *bool {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		return nil
	}
	bv, ok := CoerceBool(v)
	if !ok {
		return nil
	}
	return &bv
}

func (b *rowBuilder) optionalSeverity(field string) *string {
	v, ok := resolveField(b.row, b.aliases, field)
	if !ok {
		return nil
	}
	sev, ok := CoerceSeverity(v)
	if !ok {
		return nil
	}
	return &sev
}

// finish assembles the ParsedRecord, dropping the normalized record when
// any validation error was recorded.
func (b *rowBuilder) finish(index int, rec CanonicalRecord) ParsedRecord {
	out := ParsedRecord{RawRow: b.row, RowIndex: index}
	if len(b.errs) > 0 {
		out.Errors = b.errs
		return out
	}
	out.Normalized = rec
	return out
}

func parseSalesRow(row RawRow, index int, pctx ParseContext) ParsedRecord {
	b := newRowBuilder(row, salesAliases)

	deviceCode := b.requiredText("deviceCode")

	var quantity float64
	if raw, ok := resolveField(row, salesAliases, "quantity"); !ok {
		b.missing("quantity")
	} else if n, ok := CoerceNumber(raw); !ok {
		b.missing("quantity")
	} else if n < 0 {
		b.invalid("quantity", raw)
	} else {
		quantity = n
	}

	// Period bounds fall back to the caller-supplied reporting period when
	// the row itself carries none.
	periodStart := b.optionalDate("periodStart")
	if periodStart == nil {
		periodStart = pctx.DefaultPeriodStart
	}
	if periodStart == nil {
		b.missing("periodStart")
	}
	periodEnd := b.optionalDate("periodEnd")
	if periodEnd == nil {
		periodEnd = pctx.DefaultPeriodEnd
	}
	if periodEnd == nil {
		b.missing("periodEnd")
	}

	if len(b.errs) > 0 {
		return b.finish(index, nil)
	}

	return b.finish(index, SalesRecord{
		DeviceCode:          deviceCode,
		Quantity:            quantity,
		PeriodStart:         *periodStart,
		PeriodEnd:           *periodEnd,
		ProductName:         b.optionalText("productName"),
		Region:              b.optionalText("region"),
		Country:             b.optionalText("country"),
		DistributionChannel: b.optionalText("distributionChannel"),
		SaleDate:            b.optionalDate("saleDate"),
		Currency:            b.optionalText("currency"),
		Revenue:             b.optionalNumber("revenue"),
	})
}

func parseComplaintRow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, complaintAliases)

	rec := ComplaintRecord{
		ComplaintID:         b.requiredText("complaintId"),
		DeviceCode:          b.requiredText("deviceCode"),
		ComplaintDate:       b.requiredDate("complaintDate"),
		Description:         b.requiredText("description"),
		Severity:            b.optionalSeverity("severity"),
		ReportedBy:          b.optionalText("reportedBy"),
		Category:            b.optionalText("category"),
		DeviceRelated:       b.optionalBool("deviceRelated"),
		PatientInjury:       b.optionalBool("patientInjury"),
		InvestigationStatus: b.optionalText("investigationStatus"),
		RootCause:           b.optionalText("rootCause"),
		CorrectiveAction:    b.optionalText("correctiveAction"),
		IMDRFCode:           b.optionalText("imdrfCode"),
		Country:             b.optionalText("country"),
	}

	return b.finish(index, rec)
}

func parseIncidentRow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, incidentAliases)

	rec := IncidentRecord{
		IncidentID:        b.requiredText("incidentId"),
		DeviceCode:        b.requiredText("deviceCode"),
		IncidentDate:      b.requiredDate("incidentDate"),
		Description:       b.requiredText("description"),
		Severity:          b.optionalSeverity("severity"),
		ReportedTo:        b.optionalText("reportedTo"),
		PatientOutcome:    b.optionalText("patientOutcome"),
		DeviceMalfunction: b.optionalText("deviceMalfunction"),
		Country:           b.optionalText("country"),
		Serious:           b.optionalBool("serious"),
	}

	return b.finish(index, rec)
}

func parseFSCARow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, fscaAliases)

	rec := FSCARecord{
		FSCAID:         b.requiredText("fscaId"),
		DeviceCode:     b.requiredText("deviceCode"),
		ActionType:     b.requiredText("actionType"),
		InitiationDate: b.requiredDate("initiationDate"),
		CompletionDate: b.optionalDate("completionDate"),
		Description:    b.optionalText("description"),
		AffectedUnits:  b.optionalNumber("affectedUnits"),
		Status:         b.optionalText("status"),
		Country:        b.optionalText("country"),
	}

	return b.finish(index, rec)
}

func parseCAPARow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, capaAliases)

	rec := CAPARecord{
		CAPAID:           b.requiredText("capaId"),
		Description:      b.requiredText("description"),
		Type:             b.optionalText("type"),
		InitiationDate:   b.optionalDate("initiationDate"),
		DueDate:          b.optionalDate("dueDate"),
		CompletionDate:   b.optionalDate("completionDate"),
		RootCause:        b.optionalText("rootCause"),
		CorrectiveAction: b.optionalText("correctiveAction"),
		Status:           b.optionalText("status"),
		Effectiveness:    b.optionalText("effectiveness"),
	}

	return b.finish(index, rec)
}

func parseLiteratureRow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, literatureAliases)

	rec := LiteratureRecord{
		ReferenceID:     b.optionalText("referenceId"),
		Title:           b.optionalText("title"),
		Authors:         b.optionalText("authors"),
		PublicationDate: b.optionalDate("publicationDate"),
		Journal:         b.optionalText("journal"),
		Abstract:        b.optionalText("abstract"),
		Relevance:       b.optionalText("relevance"),
		DeviceRelated:   b.optionalBool("deviceRelated"),
		SafetySignal:    b.optionalText("safetySignal"),
	}

	if rec.ReferenceID == nil && rec.Title == nil {
		b.missing("referenceId or title")
	}

	return b.finish(index, rec)
}

func parsePMCFRow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, pmcfAliases)

	rec := PMCFStudyRecord{
		StudyID:          b.optionalText("studyId"),
		StudyName:        b.optionalText("studyName"),
		StudyType:        b.optionalText("studyType"),
		StartDate:        b.optionalDate("startDate"),
		EndDate:          b.optionalDate("endDate"),
		Status:           b.optionalText("status"),
		EnrolledSubjects: b.optionalNumber("enrolledSubjects"),
		Findings:         b.optionalText("findings"),
		DeviceCode:       b.optionalText("deviceCode"),
	}

	if rec.StudyID == nil && rec.StudyName == nil {
		b.missing("studyId or studyName")
	}

	return b.finish(index, rec)
}

func parseRegistrySearchRow(row RawRow, index int, _ ParseContext) ParsedRecord {
	b := newRowBuilder(row, registryAliases)

	rec := RegistrySearchRecord{
		RegistryName:     b.requiredText("registryName"),
		QueryDate:        b.optionalDate("queryDate"),
		SearchTerms:      b.optionalText("searchTerms"),
		ResultsCount:     b.optionalNumber("resultsCount"),
		RelevantFindings: b.optionalText("relevantFindings"),
		DeviceCode:       b.optionalText("deviceCode"),
	}

	return b.finish(index, rec)
}

// genericParser returns the schema-less parser for an evidence type with no
// dedicated schema. No field is required; every non-empty cell is carried
// through under its normalized key after best-effort coercion.
func genericParser(t EvidenceType) ParserFunc {
	return func(row RawRow, index int, pctx ParseContext) ParsedRecord {
		rec := GenericRecord{
			EvidenceType: t,
			PeriodStart:  pctx.DefaultPeriodStart,
			PeriodEnd:    pctx.DefaultPeriodEnd,
			Fields:       make(map[string]any, len(row.Values)),
		}

		for _, h := range row.Headers {
			v, ok := row.Values[h]
			if !ok {
				continue
			}
			key := NormalizeHeader(h)
			if key == "" {
				continue
			}
			if _, taken := rec.Fields[key]; taken {
				continue // earlier column wins, as in Resolve
			}
			rec.Fields[key] = CoerceGeneric(v)
		}

		return ParsedRecord{RawRow: row, Normalized: rec, RowIndex: index}
	}
}
