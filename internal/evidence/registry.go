package evidence

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ParseContext carries caller-supplied defaults into a parser.
type ParseContext struct {
	// DefaultPeriodStart/End back-fill period bounds for evidence types
	// that accept a reporting-period fallback (sales and generic rows).
	DefaultPeriodStart *string
	DefaultPeriodEnd   *string
}

// ParserFunc converts one raw row into a ParsedRecord. Implementations are
// pure: the result depends only on the row, its index, and the context.
type ParserFunc func(row RawRow, index int, pctx ParseContext) ParsedRecord

var (
	parserRegistry = make(map[EvidenceType]ParserFunc)
	registryMu     sync.RWMutex
)

// RegisterParser adds a parser for an evidence type.
// Panics if the type is already registered.
func RegisterParser(t EvidenceType, fn ParserFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := parserRegistry[t]; exists {
		panic(fmt.Sprintf("evidence type already registered: %s", t))
	}
	parserRegistry[t] = fn
}

// ParserFor returns the parser registered for an evidence type.
func ParserFor(t EvidenceType) (ParserFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := parserRegistry[t]
	return fn, ok
}

// RegisteredTypes returns all registered evidence types, sorted for
// consistent ordering.
func RegisteredTypes() []EvidenceType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]EvidenceType, 0, len(parserRegistry))
	for t := range parserRegistry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DecodeCanonical unmarshals a stored normalized record back into its typed
// shape. Types without a dedicated schema decode as GenericRecord.
func DecodeCanonical(t EvidenceType, data []byte) (CanonicalRecord, error) {
	var (
		rec CanonicalRecord
		err error
	)

	switch t {
	case TypeSalesVolume:
		var r SalesRecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypeComplaints:
		var r ComplaintRecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypeIncidents:
		var r IncidentRecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypeFSCA:
		var r FSCARecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypeCAPA:
		var r CAPARecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypeLiterature:
		var r LiteratureRecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypePMCFStudies:
		var r PMCFStudyRecord
		err = json.Unmarshal(data, &r)
		rec = r
	case TypeRegistrySearch:
		var r RegistrySearchRecord
		err = json.Unmarshal(data, &r)
		rec = r
	default:
		var r GenericRecord
		err = json.Unmarshal(data, &r)
		rec = r
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s record: %w", t, err)
	}
	return rec, nil
}

func init() {
	RegisterParser(TypeSalesVolume, parseSalesRow)
	RegisterParser(TypeComplaints, parseComplaintRow)
	RegisterParser(TypeIncidents, parseIncidentRow)
	RegisterParser(TypeFSCA, parseFSCARow)
	RegisterParser(TypeCAPA, parseCAPARow)
	RegisterParser(TypeLiterature, parseLiteratureRow)
	RegisterParser(TypePMCFStudies, parsePMCFRow)
	RegisterParser(TypeRegistrySearch, parseRegistrySearchRow)

	// Schema-less types share the generic parser, tagged per type.
	for _, t := range []EvidenceType{TypeCustomerFeedback, TypeServiceReports, TypeTrendData, TypeOther} {
		RegisterParser(t, genericParser(t))
	}
}
