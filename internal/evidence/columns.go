package evidence

// columns.go resolves arbitrary source headers to canonical field names.
//
// Each evidence type carries an alias table: canonical field name → the set
// of snake_case header spellings that may represent it. Source headers are
// normalized (lowercase, non-alphanumeric runs to single underscores)
// before matching, so "Device Code", "device-code" and "DEVICE__CODE" all
// resolve the same way. The tables are package-level constants, loaded once
// and never mutated.

import "strings"

// aliasTable maps a canonical field name to its accepted header spellings.
type aliasTable map[string][]string

// NormalizeHeader lowercases a header and collapses every run of
// non-alphanumeric characters into a single underscore.
func NormalizeHeader(h string) string {
	var b strings.Builder
	b.Grow(len(h))

	lastUnderscore := true // trims leading separators
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// Resolve returns the first value in the row whose normalized header
// matches one of the accepted spellings. The scan follows the row's own
// column order, so when two aliasing headers are both present the earlier
// column wins; this keeps resolution deterministic for a given file.
func Resolve(row RawRow, spellings []string) (string, bool) {
	for _, h := range row.Headers {
		v, ok := row.Values[h]
		if !ok {
			continue
		}
		norm := NormalizeHeader(h)
		for _, alias := range spellings {
			if norm == alias {
				return v, true
			}
		}
	}
	return "", false
}

// resolveField looks a canonical field up in an alias table and resolves it
// against the row. An unknown field name resolves to absent.
func resolveField(row RawRow, aliases aliasTable, field string) (string, bool) {
	spellings, ok := aliases[field]
	if !ok {
		return "", false
	}
	return Resolve(row, spellings)
}

// Alias tables per evidence type. Spellings are the normalized forms of
// headers observed in real manufacturer exports.

var salesAliases = aliasTable{
	"deviceCode":          {"device_code", "device", "device_id", "sku", "product_code", "model", "model_number", "udi", "ref"},
	"quantity":            {"quantity", "qty", "units", "units_sold", "unit_count", "volume", "sales_volume", "count"},
	"periodStart":         {"period_start", "start_date", "from", "from_date", "period_from", "reporting_period_start"},
	"periodEnd":           {"period_end", "end_date", "to", "to_date", "period_to", "reporting_period_end"},
	"productName":         {"product_name", "product", "device_name", "description"},
	"region":              {"region", "sales_region", "territory"},
	"country":             {"country", "country_code", "market"},
	"distributionChannel": {"distribution_channel", "channel", "sales_channel"},
	"saleDate":            {"sale_date", "date", "transaction_date", "invoice_date"},
	"currency":            {"currency", "currency_code"},
	"revenue":             {"revenue", "amount", "net_sales", "sales_amount", "total"},
}

var complaintAliases = aliasTable{
	"complaintId":         {"complaint_id", "complaint_number", "complaint_no", "id", "case_id", "case_number", "reference"},
	"deviceCode":          {"device_code", "device", "device_id", "sku", "product_code", "model", "udi"},
	"complaintDate":       {"complaint_date", "date", "date_received", "received_date", "reported_date", "date_of_complaint"},
	"description":         {"description", "complaint_description", "details", "summary", "narrative", "issue"},
	"severity":            {"severity", "severity_level", "priority", "criticality"},
	"reportedBy":          {"reported_by", "reporter", "source", "complainant"},
	"category":            {"category", "complaint_category", "type", "classification"},
	"deviceRelated":       {"device_related", "is_device_related", "related_to_device"},
	"patientInjury":       {"patient_injury", "injury", "patient_harm", "harm"},
	"investigationStatus": {"investigation_status", "status", "investigation_state"},
	"rootCause":           {"root_cause", "cause"},
	"correctiveAction":    {"corrective_action", "action_taken", "remediation"},
	"imdrfCode":           {"imdrf_code", "imdrf", "mdr_code", "event_code"},
	"country":             {"country", "country_code", "market"},
}

var incidentAliases = aliasTable{
	"incidentId":        {"incident_id", "incident_number", "event_id", "report_id", "id", "reference"},
	"deviceCode":        {"device_code", "device", "device_id", "sku", "product_code", "model", "udi"},
	"incidentDate":      {"incident_date", "event_date", "date", "date_of_incident", "occurrence_date"},
	"description":       {"description", "event_description", "details", "summary", "narrative"},
	"severity":          {"severity", "severity_level", "criticality"},
	"reportedTo":        {"reported_to", "authority", "competent_authority", "regulator"},
	"patientOutcome":    {"patient_outcome", "outcome", "clinical_outcome"},
	"deviceMalfunction": {"device_malfunction", "malfunction", "device_failure", "failure_mode"},
	"country":           {"country", "country_code", "market"},
	"serious":           {"serious", "is_serious", "serious_incident", "reportable"},
}

var fscaAliases = aliasTable{
	"fscaId":         {"fsca_id", "fsca_number", "action_id", "recall_id", "recall_number", "id", "reference"},
	"deviceCode":     {"device_code", "device", "device_id", "sku", "product_code", "model", "udi"},
	"actionType":     {"action_type", "type", "fsca_type", "recall_type"},
	"initiationDate": {"initiation_date", "start_date", "date_initiated", "date", "issue_date"},
	"completionDate": {"completion_date", "end_date", "date_completed", "closure_date"},
	"description":    {"description", "details", "reason", "summary"},
	"affectedUnits":  {"affected_units", "units_affected", "affected_quantity", "units"},
	"status":         {"status", "state", "action_status"},
	"country":        {"country", "country_code", "countries", "market"},
}

var capaAliases = aliasTable{
	"capaId":           {"capa_id", "capa_number", "capa_no", "id", "reference"},
	"description":      {"description", "details", "summary", "issue_description"},
	"type":             {"type", "capa_type", "category"},
	"initiationDate":   {"initiation_date", "open_date", "date_opened", "start_date", "date"},
	"dueDate":          {"due_date", "target_date", "deadline"},
	"completionDate":   {"completion_date", "close_date", "date_closed", "closure_date"},
	"rootCause":        {"root_cause", "cause"},
	"correctiveAction": {"corrective_action", "action", "action_plan"},
	"status":           {"status", "state", "capa_status"},
	"effectiveness":    {"effectiveness", "effectiveness_check", "verification"},
}

var literatureAliases = aliasTable{
	"referenceId":     {"reference_id", "ref_id", "reference", "id", "pmid", "doi"},
	"title":           {"title", "article_title", "publication_title", "paper"},
	"authors":         {"authors", "author", "author_list"},
	"publicationDate": {"publication_date", "pub_date", "date", "published", "year"},
	"journal":         {"journal", "source", "publication"},
	"abstract":        {"abstract", "summary"},
	"relevance":       {"relevance", "relevance_assessment", "applicability"},
	"deviceRelated":   {"device_related", "is_device_related", "about_device"},
	"safetySignal":    {"safety_signal", "signal", "safety_finding"},
}

var pmcfAliases = aliasTable{
	"studyId":          {"study_id", "study_number", "protocol_id", "id", "reference"},
	"studyName":        {"study_name", "study_title", "name", "title"},
	"studyType":        {"study_type", "type", "design"},
	"startDate":        {"start_date", "study_start", "date_started", "initiation_date"},
	"endDate":          {"end_date", "study_end", "date_completed", "completion_date"},
	"status":           {"status", "state", "study_status"},
	"enrolledSubjects": {"enrolled_subjects", "enrollment", "subjects", "participants", "sample_size", "n"},
	"findings":         {"findings", "results", "conclusions", "outcome"},
	"deviceCode":       {"device_code", "device", "device_id", "product_code", "model"},
}

var registryAliases = aliasTable{
	"registryName":     {"registry_name", "registry", "database", "source", "name"},
	"queryDate":        {"query_date", "search_date", "date", "date_of_search"},
	"searchTerms":      {"search_terms", "query", "search_string", "keywords"},
	"resultsCount":     {"results_count", "results", "hits", "record_count", "n_results"},
	"relevantFindings": {"relevant_findings", "findings", "relevant_results", "summary"},
	"deviceCode":       {"device_code", "device", "device_id", "product_code", "model"},
}
