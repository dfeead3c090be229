package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Smarticus81/psurRegOSv1-sub011/internal/evidence"
	"github.com/Smarticus81/psurRegOSv1-sub011/internal/logging"
	"github.com/Smarticus81/psurRegOSv1-sub011/internal/store"
)

// uploadResponse is the body returned by the upload endpoint.
type uploadResponse struct {
	UploadID     string                  `json:"uploadId"`
	EvidenceType evidence.EvidenceType   `json:"evidenceType"`
	Summary      evidence.BatchSummary   `json:"summary"`
	Inserted     int                     `json:"inserted"`
	Duplicates   int                     `json:"duplicates"`
	Rejected     []evidence.ParsedRecord `json:"rejected,omitempty"`
	Atoms        []string                `json:"atomIds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEvidenceTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"evidenceTypes": evidence.RegisteredTypes(),
	})
}

// handleParse runs a dry-run parse and returns the full per-row outcome
// without persisting anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	evidenceType := evidence.EvidenceType(chi.URLParam(r, "evidenceType"))
	if _, ok := evidence.ParserFor(evidenceType); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported evidence type: %s", evidenceType))
		return
	}

	text, _, ok := s.readEvidenceFile(w, r)
	if !ok {
		return
	}

	opts, err := parsePeriodOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := evidence.ParseEvidenceFile(text, evidenceType, opts)
	if len(result.Records) > s.cfg.Ingest.MaxRecords {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("file exceeds maximum of %d records", s.cfg.Ingest.MaxRecords))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUpload parses an evidence file, builds atoms from the valid rows and
// persists them. Rejected rows come back in the response with their
// validation detail.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	evidenceType := evidence.EvidenceType(chi.URLParam(r, "evidenceType"))
	if _, ok := evidence.ParserFor(evidenceType); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported evidence type: %s", evidenceType))
		return
	}

	text, filename, ok := s.readEvidenceFile(w, r)
	if !ok {
		return
	}

	opts, err := parsePeriodOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := evidence.ParseEvidenceFile(text, evidenceType, opts)
	if len(result.Records) == 0 {
		writeError(w, http.StatusBadRequest, "no data records found")
		return
	}
	if len(result.Records) > s.cfg.Ingest.MaxRecords {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("file exceeds maximum of %d records", s.cfg.Ingest.MaxRecords))
		return
	}

	uploadID := uuid.NewString()

	sourceSystem := r.FormValue("source_system")
	if sourceSystem == "" {
		sourceSystem = s.cfg.Ingest.DefaultSourceSystem
	}

	batch, err := evidence.BuildAtomBatch(result, uploadID, evidence.BatchOptions{
		PSURCaseID:    optionalFormValue(r, "psur_case_id"),
		DeviceScopeID: optionalFormValue(r, "device_scope_id"),
		SourceSystem:  sourceSystem,
		PeriodStart:   opts.PeriodStart,
		PeriodEnd:     opts.PeriodEnd,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build atoms")
		return
	}

	upsert, err := s.store.UpsertAtoms(r.Context(), batch.Atoms)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store atoms")
		return
	}

	logger := logging.WithFields(r.Context(),
		"upload_id", uploadID,
		"evidence_type", evidenceType,
		"file", filename,
	)
	logger.Info("evidence file ingested",
		"valid", batch.Summary.ValidRecords,
		"rejected", batch.Summary.InvalidRecords,
		"inserted", upsert.Inserted,
		"duplicates", upsert.Duplicates,
	)

	atomIDs := make([]string, 0, len(batch.Atoms))
	for _, atom := range batch.Atoms {
		atomIDs = append(atomIDs, atom.AtomID)
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		UploadID:     uploadID,
		EvidenceType: evidenceType,
		Summary:      batch.Summary,
		Inserted:     upsert.Inserted,
		Duplicates:   upsert.Duplicates,
		Rejected:     batch.Rejected,
		Atoms:        atomIDs,
	})
}

func (s *Server) handleListCaseAtoms(w http.ResponseWriter, r *http.Request) {
	psurCaseID := chi.URLParam(r, "psurCaseID")

	q := store.ListQuery{
		EvidenceType: evidence.EvidenceType(r.URL.Query().Get("evidence_type")),
		Status:       evidence.AtomStatus(r.URL.Query().Get("status")),
		DeviceCode:   r.URL.Query().Get("device_code"),
	}

	atoms, err := s.store.ListByCase(r.Context(), psurCaseID, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list atoms")
		return
	}
	if atoms == nil {
		atoms = []evidence.EvidenceAtom{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"psurCaseId": psurCaseID,
		"count":      len(atoms),
		"atoms":      atoms,
	})
}

// supersedeRequest carries the corrected row for a supersede operation.
// Values are raw cells keyed by header, parsed with the original atom's
// evidence type.
type supersedeRequest struct {
	Values       map[string]string `json:"values"`
	SourceSystem string            `json:"sourceSystem,omitempty"`
}

func (s *Server) handleSupersede(w http.ResponseWriter, r *http.Request) {
	atomID := chi.URLParam(r, "atomID")

	old, err := s.store.GetAtom(r.Context(), atomID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "atom not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load atom")
		return
	}

	var req supersedeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, "values are required")
		return
	}

	parser, ok := evidence.ParserFor(old.EvidenceType)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported evidence type: %s", old.EvidenceType))
		return
	}

	rec := parser(rowFromValues(req.Values), 1, evidence.ParseContext{
		DefaultPeriodStart: old.PeriodStart,
		DefaultPeriodEnd:   old.PeriodEnd,
	})
	if !rec.IsValid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":            "replacement row failed validation",
			"validationErrors": rec.Errors,
		})
		return
	}

	sourceSystem := req.SourceSystem
	if sourceSystem == "" {
		sourceSystem = old.SourceSystem
	}

	batch, err := evidence.BuildAtomBatch(evidence.ParseResult{
		Success:      true,
		EvidenceType: old.EvidenceType,
		Records:      []evidence.ParsedRecord{rec},
		ValidRecords: 1,
	}, uuid.NewString(), evidence.BatchOptions{
		PSURCaseID:    old.PSURCaseID,
		DeviceScopeID: old.DeviceScopeID,
		SourceSystem:  sourceSystem,
		PeriodStart:   old.PeriodStart,
		PeriodEnd:     old.PeriodEnd,
	})
	if err != nil || len(batch.Atoms) != 1 {
		writeError(w, http.StatusInternalServerError, "failed to build replacement atom")
		return
	}

	replacement := batch.Atoms[0]
	if replacement.AtomID == atomID {
		writeError(w, http.StatusConflict, "replacement is identical to the existing atom")
		return
	}

	stored, err := s.store.SupersedeAtom(r.Context(), atomID, replacement)
	if errors.Is(err, store.ErrSuperseded) {
		writeError(w, http.StatusConflict, "atom already superseded")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to supersede atom")
		return
	}

	logging.FromContext(r.Context()).Info("atom superseded",
		"old_atom_id", atomID,
		"new_atom_id", stored.AtomID,
		"version", stored.Version,
	)

	writeJSON(w, http.StatusOK, stored)
}

// readEvidenceFile pulls the uploaded CSV out of a multipart form. On
// failure a response has already been written and ok is false.
func (s *Server) readEvidenceFile(w http.ResponseWriter, r *http.Request) (text, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Ingest.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return "", "", false
	}

	return string(data), header.Filename, true
}

// parsePeriodOptions validates the optional reporting-period form values.
func parsePeriodOptions(r *http.Request) (evidence.ParseOptions, error) {
	var opts evidence.ParseOptions

	if v := r.FormValue("period_start"); v != "" {
		iso, ok := evidence.CoerceISODate(v)
		if !ok {
			return opts, fmt.Errorf("invalid period_start: %s", v)
		}
		opts.PeriodStart = &iso
	}
	if v := r.FormValue("period_end"); v != "" {
		iso, ok := evidence.CoerceISODate(v)
		if !ok {
			return opts, fmt.Errorf("invalid period_end: %s", v)
		}
		opts.PeriodEnd = &iso
	}

	return opts, nil
}

func optionalFormValue(r *http.Request, name string) *string {
	if v := r.FormValue(name); v != "" {
		return &v
	}
	return nil
}

// rowFromValues builds a RawRow from a JSON value map. Headers are sorted so
// alias resolution stays deterministic without a source file's column order.
func rowFromValues(values map[string]string) evidence.RawRow {
	headers := make([]string, 0, len(values))
	kept := make(map[string]string, len(values))
	for h, v := range values {
		if v == "" {
			continue
		}
		headers = append(headers, h)
		kept[h] = v
	}
	sort.Strings(headers)

	return evidence.RawRow{Headers: headers, Values: kept}
}
