package evidence

import "time"

// EvidenceType identifies which parser handles a file's rows.
type EvidenceType string

// Evidence types with dedicated schemas.
const (
	TypeSalesVolume    EvidenceType = "sales_volume"
	TypeComplaints     EvidenceType = "complaints"
	TypeIncidents      EvidenceType = "incidents"
	TypeFSCA           EvidenceType = "fsca"
	TypeCAPA           EvidenceType = "capa"
	TypeLiterature     EvidenceType = "literature"
	TypePMCFStudies    EvidenceType = "pmcf_studies"
	TypeRegistrySearch EvidenceType = "registry_search"
)

// Schema-less evidence types handled by the generic parser.
const (
	TypeCustomerFeedback EvidenceType = "customer_feedback"
	TypeServiceReports   EvidenceType = "service_reports"
	TypeTrendData        EvidenceType = "trend_data"
	TypeOther            EvidenceType = "other"
)

// RawRow is one physical data row of an evidence file. Headers preserves the
// file's column order; Values maps each header to its trimmed cell text.
// Empty cells are omitted from Values but their headers remain in Headers.
type RawRow struct {
	Headers []string          `json:"-"`
	Values  map[string]string `json:"values"`
}

// Get returns the raw value for a header, if present and non-empty.
func (r RawRow) Get(header string) (string, bool) {
	v, ok := r.Values[header]
	return v, ok
}

// ParsedRecord is the outcome of parsing one raw row.
// Invariant: IsValid() iff Errors is empty iff Normalized is non-nil.
type ParsedRecord struct {
	RawRow     RawRow          `json:"rawRow"`
	Normalized CanonicalRecord `json:"normalizedRecord,omitempty"`
	Errors     []string        `json:"validationErrors,omitempty"`
	RowIndex   int             `json:"rowIndex"` // 1-based, header excluded
}

// IsValid reports whether the row produced a normalized record.
func (p ParsedRecord) IsValid() bool {
	return len(p.Errors) == 0
}

// CanonicalRecord is the tagged-variant normalized form of a row, one shape
// per evidence type. Implementations are plain structs with camelCase JSON
// tags; optional fields are pointers with omitempty so that absent fields
// never influence the content hash.
type CanonicalRecord interface {
	Kind() EvidenceType
}

// SalesRecord is the canonical shape for sales volume rows.
type SalesRecord struct {
	DeviceCode          string   `json:"deviceCode"`
	Quantity            float64  `json:"quantity"`
	PeriodStart         string   `json:"periodStart"`
	PeriodEnd           string   `json:"periodEnd"`
	ProductName         *string  `json:"productName,omitempty"`
	Region              *string  `json:"region,omitempty"`
	Country             *string  `json:"country,omitempty"`
	DistributionChannel *string  `json:"distributionChannel,omitempty"`
	SaleDate            *string  `json:"saleDate,omitempty"`
	Currency            *string  `json:"currency,omitempty"`
	Revenue             *float64 `json:"revenue,omitempty"`
}

func (SalesRecord) Kind() EvidenceType { return TypeSalesVolume }

// ComplaintRecord is the canonical shape for complaint rows.
type ComplaintRecord struct {
	ComplaintID         string  `json:"complaintId"`
	DeviceCode          string  `json:"deviceCode"`
	ComplaintDate       string  `json:"complaintDate"`
	Description         string  `json:"description"`
	Severity            *string `json:"severity,omitempty"`
	ReportedBy          *string `json:"reportedBy,omitempty"`
	Category            *string `json:"category,omitempty"`
	DeviceRelated       *bool   `json:"deviceRelated,omitempty"`
	PatientInjury       *bool   `json:"patientInjury,omitempty"`
	InvestigationStatus *string `json:"investigationStatus,omitempty"`
	RootCause           *string `json:"rootCause,omitempty"`
	CorrectiveAction    *string `json:"correctiveAction,omitempty"`
	IMDRFCode           *string `json:"imdrfCode,omitempty"`
	Country             *string `json:"country,omitempty"`
}

func (ComplaintRecord) Kind() EvidenceType { return TypeComplaints }

// IncidentRecord is the canonical shape for adverse event / serious
// incident rows.
type IncidentRecord struct {
	IncidentID        string  `json:"incidentId"`
	DeviceCode        string  `json:"deviceCode"`
	IncidentDate      string  `json:"incidentDate"`
	Description       string  `json:"description"`
	Severity          *string `json:"severity,omitempty"`
	ReportedTo        *string `json:"reportedTo,omitempty"`
	PatientOutcome    *string `json:"patientOutcome,omitempty"`
	DeviceMalfunction *string `json:"deviceMalfunction,omitempty"`
	Country           *string `json:"country,omitempty"`
	Serious           *bool   `json:"serious,omitempty"`
}

func (IncidentRecord) Kind() EvidenceType { return TypeIncidents }

// FSCARecord is the canonical shape for field safety corrective action rows.
type FSCARecord struct {
	FSCAID         string   `json:"fscaId"`
	DeviceCode     string   `json:"deviceCode"`
	ActionType     string   `json:"actionType"`
	InitiationDate string   `json:"initiationDate"`
	CompletionDate *string  `json:"completionDate,omitempty"`
	Description    *string  `json:"description,omitempty"`
	AffectedUnits  *float64 `json:"affectedUnits,omitempty"`
	Status         *string  `json:"status,omitempty"`
	Country        *string  `json:"country,omitempty"`
}

func (FSCARecord) Kind() EvidenceType { return TypeFSCA }

// CAPARecord is the canonical shape for corrective/preventive action rows.
type CAPARecord struct {
	CAPAID           string  `json:"capaId"`
	Description      string  `json:"description"`
	Type             *string `json:"type,omitempty"`
	InitiationDate   *string `json:"initiationDate,omitempty"`
	DueDate          *string `json:"dueDate,omitempty"`
	CompletionDate   *string `json:"completionDate,omitempty"`
	RootCause        *string `json:"rootCause,omitempty"`
	CorrectiveAction *string `json:"correctiveAction,omitempty"`
	Status           *string `json:"status,omitempty"`
	Effectiveness    *string `json:"effectiveness,omitempty"`
}

func (CAPARecord) Kind() EvidenceType { return TypeCAPA }

// LiteratureRecord is the canonical shape for literature rows.
// At least one of ReferenceID and Title is required.
type LiteratureRecord struct {
	ReferenceID     *string `json:"referenceId,omitempty"`
	Title           *string `json:"title,omitempty"`
	Authors         *string `json:"authors,omitempty"`
	PublicationDate *string `json:"publicationDate,omitempty"`
	Journal         *string `json:"journal,omitempty"`
	Abstract        *string `json:"abstract,omitempty"`
	Relevance       *string `json:"relevance,omitempty"`
	DeviceRelated   *bool   `json:"deviceRelated,omitempty"`
	SafetySignal    *string `json:"safetySignal,omitempty"`
}

func (LiteratureRecord) Kind() EvidenceType { return TypeLiterature }

// PMCFStudyRecord is the canonical shape for clinical follow-up study rows.
// At least one of StudyID and StudyName is required.
type PMCFStudyRecord struct {
	StudyID          *string  `json:"studyId,omitempty"`
	StudyName        *string  `json:"studyName,omitempty"`
	StudyType        *string  `json:"studyType,omitempty"`
	StartDate        *string  `json:"startDate,omitempty"`
	EndDate          *string  `json:"endDate,omitempty"`
	Status           *string  `json:"status,omitempty"`
	EnrolledSubjects *float64 `json:"enrolledSubjects,omitempty"`
	Findings         *string  `json:"findings,omitempty"`
	DeviceCode       *string  `json:"deviceCode,omitempty"`
}

func (PMCFStudyRecord) Kind() EvidenceType { return TypePMCFStudies }

// RegistrySearchRecord is the canonical shape for registry search rows.
type RegistrySearchRecord struct {
	RegistryName     string   `json:"registryName"`
	QueryDate        *string  `json:"queryDate,omitempty"`
	SearchTerms      *string  `json:"searchTerms,omitempty"`
	ResultsCount     *float64 `json:"resultsCount,omitempty"`
	RelevantFindings *string  `json:"relevantFindings,omitempty"`
	DeviceCode       *string  `json:"deviceCode,omitempty"`
}

func (RegistrySearchRecord) Kind() EvidenceType { return TypeRegistrySearch }

// GenericRecord carries rows of schema-less evidence types. Every non-empty
// cell is coerced best-effort (date, then number, then literal string) and
// stored under its normalized header key.
type GenericRecord struct {
	EvidenceType EvidenceType   `json:"evidenceType"`
	PeriodStart  *string        `json:"periodStart,omitempty"`
	PeriodEnd    *string        `json:"periodEnd,omitempty"`
	Fields       map[string]any `json:"fields"`
}

func (g GenericRecord) Kind() EvidenceType { return g.EvidenceType }

// ParseResult is the file-level outcome of parsing one evidence file.
type ParseResult struct {
	Success        bool           `json:"success"`
	EvidenceType   EvidenceType   `json:"evidenceType"`
	Records        []ParsedRecord `json:"records"`
	ValidRecords   int            `json:"validRecords"`
	InvalidRecords int            `json:"invalidRecords"`
	Errors         []string       `json:"errors,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// AtomStatus is the lifecycle state of an evidence atom.
type AtomStatus string

const (
	StatusValid      AtomStatus = "valid"
	StatusRejected   AtomStatus = "rejected"
	StatusSuperseded AtomStatus = "superseded"
)

// Provenance records where an atom came from.
type Provenance struct {
	UploadID     string    `json:"uploadId"`
	RowIndex     int       `json:"rowIndex"`
	SourceSystem string    `json:"sourceSystem"`
	ParsedAt     time.Time `json:"parsedAt"`
}

// EvidenceAtom is the persisted unit of evidence. Atoms are immutable once
// created; corrections create a new atom and mark the old one superseded.
// AtomID is a pure function of EvidenceType and the canonicalized
// normalized record, so re-ingesting the same logical record is idempotent.
type EvidenceAtom struct {
	AtomID           string            `json:"atomId"`
	PSURCaseID       *string           `json:"psurCaseId,omitempty"`
	UploadID         string            `json:"uploadId"`
	EvidenceType     EvidenceType      `json:"evidenceType"`
	SourceSystem     string            `json:"sourceSystem"`
	ExtractDate      time.Time         `json:"extractDate"`
	ContentHash      string            `json:"contentHash"`
	RecordCount      int               `json:"recordCount"`
	PeriodStart      *string           `json:"periodStart,omitempty"`
	PeriodEnd        *string           `json:"periodEnd,omitempty"`
	DeviceScopeID    *string           `json:"deviceScopeId,omitempty"`
	DeviceRef        *string           `json:"deviceRef,omitempty"`
	RawRow           map[string]string `json:"rawRow"`
	NormalizedRecord CanonicalRecord   `json:"normalizedRecord"`
	Provenance       Provenance        `json:"provenance"`
	ValidationErrors []string          `json:"validationErrors,omitempty"`
	Status           AtomStatus        `json:"status"`
	Version          int               `json:"version"`
	SupersededBy     *string           `json:"supersededBy,omitempty"`
	QueryFilters     map[string]string `json:"queryFilters,omitempty"`
}

// BatchSummary reports counts for one batch build.
type BatchSummary struct {
	TotalRecords   int      `json:"totalRecords"`
	ValidRecords   int      `json:"validRecords"`
	InvalidRecords int      `json:"invalidRecords"`
	Warnings       []string `json:"warnings,omitempty"`
}

// EvidenceAtomBatch is the persistence-ready output of a batch build.
// Atoms carry only valid records; Rejected preserves failed rows with their
// full validation detail for caller display.
type EvidenceAtomBatch struct {
	Atoms    []EvidenceAtom `json:"atoms"`
	Rejected []ParsedRecord `json:"rejected"`
	Summary  BatchSummary   `json:"summary"`
}
