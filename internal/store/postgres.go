package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Smarticus81/psurRegOSv1-sub011/internal/evidence"
)

// PostgresStore persists atoms in PostgreSQL. Each atom is stored as a jsonb
// document alongside the columns the case queries filter on.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS evidence_atoms (
	atom_id       text PRIMARY KEY,
	psur_case_id  text,
	upload_id     text NOT NULL,
	evidence_type text NOT NULL,
	status        text NOT NULL,
	version       integer NOT NULL,
	device_ref    text,
	extract_date  timestamptz NOT NULL,
	superseded_by text,
	doc           jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS evidence_atoms_case_idx ON evidence_atoms (psur_case_id, evidence_type);
CREATE INDEX IF NOT EXISTS evidence_atoms_upload_idx ON evidence_atoms (upload_id);
`

// EnsureSchema creates the atoms table and its indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertAtoms inserts a batch inside one transaction. Conflicts on atom_id
// are skipped, which is what makes repeated ingestion of the same file
// idempotent.
func (s *PostgresStore) UpsertAtoms(ctx context.Context, atoms []evidence.EvidenceAtom) (UpsertResult, error) {
	var result UpsertResult
	if len(atoms) == 0 {
		return result, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO evidence_atoms
			(atom_id, psur_case_id, upload_id, evidence_type, status, version, device_ref, extract_date, superseded_by, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (atom_id) DO NOTHING`

	for _, atom := range atoms {
		doc, err := json.Marshal(atom)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("marshal atom %s: %w", atom.AtomID, err)
		}

		tag, err := tx.Exec(ctx, insert,
			atom.AtomID, atom.PSURCaseID, atom.UploadID, string(atom.EvidenceType),
			string(atom.Status), atom.Version, atom.DeviceRef, atom.ExtractDate,
			atom.SupersededBy, doc)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("insert atom %s: %w", atom.AtomID, err)
		}

		if tag.RowsAffected() == 1 {
			result.Inserted++
		} else {
			result.Duplicates++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// GetAtom fetches one atom by ID.
func (s *PostgresStore) GetAtom(ctx context.Context, atomID string) (evidence.EvidenceAtom, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM evidence_atoms WHERE atom_id = $1`, atomID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return evidence.EvidenceAtom{}, ErrNotFound
	}
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("get atom: %w", err)
	}
	return decodeAtom(doc)
}

// ListByCase returns the atoms attached to a PSUR case.
func (s *PostgresStore) ListByCase(ctx context.Context, psurCaseID string, q ListQuery) ([]evidence.EvidenceAtom, error) {
	query := `SELECT doc FROM evidence_atoms WHERE psur_case_id = $1`
	args := []any{psurCaseID}

	if q.EvidenceType != "" {
		args = append(args, string(q.EvidenceType))
		query += fmt.Sprintf(" AND evidence_type = $%d", len(args))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if q.DeviceCode != "" {
		args = append(args, q.DeviceCode)
		query += fmt.Sprintf(" AND device_ref = $%d", len(args))
	}
	query += " ORDER BY extract_date, atom_id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list atoms: %w", err)
	}
	defer rows.Close()

	var atoms []evidence.EvidenceAtom
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan atom: %w", err)
		}
		atom, err := decodeAtom(doc)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}
	return atoms, rows.Err()
}

// SupersedeAtom marks an atom superseded and stores its replacement with the
// version bumped, atomically.
func (s *PostgresStore) SupersedeAtom(ctx context.Context, atomID string, replacement evidence.EvidenceAtom) (evidence.EvidenceAtom, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var oldDoc []byte
	err = tx.QueryRow(ctx,
		`SELECT doc FROM evidence_atoms WHERE atom_id = $1 FOR UPDATE`, atomID).Scan(&oldDoc)
	if errors.Is(err, pgx.ErrNoRows) {
		return evidence.EvidenceAtom{}, ErrNotFound
	}
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("lock atom: %w", err)
	}

	old, err := decodeAtom(oldDoc)
	if err != nil {
		return evidence.EvidenceAtom{}, err
	}
	if old.Status == evidence.StatusSuperseded {
		return evidence.EvidenceAtom{}, ErrSuperseded
	}

	replacement.Status = evidence.StatusValid
	replacement.Version = old.Version + 1
	replacement.SupersededBy = nil

	newDoc, err := json.Marshal(replacement)
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("marshal replacement: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO evidence_atoms
			(atom_id, psur_case_id, upload_id, evidence_type, status, version, device_ref, extract_date, superseded_by, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (atom_id) DO UPDATE SET status = EXCLUDED.status, version = EXCLUDED.version, doc = EXCLUDED.doc`,
		replacement.AtomID, replacement.PSURCaseID, replacement.UploadID,
		string(replacement.EvidenceType), string(replacement.Status), replacement.Version,
		replacement.DeviceRef, replacement.ExtractDate, nil, newDoc)
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("insert replacement: %w", err)
	}

	old.Status = evidence.StatusSuperseded
	old.SupersededBy = &replacement.AtomID
	updatedOld, err := json.Marshal(old)
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("marshal superseded atom: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE evidence_atoms
		SET status = $2, superseded_by = $3, doc = $4
		WHERE atom_id = $1`,
		atomID, string(evidence.StatusSuperseded), replacement.AtomID, updatedOld)
	if err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("mark superseded: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("commit: %w", err)
	}
	return replacement, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// atomDoc shadows NormalizedRecord so the stored document can be decoded
// before the record is rebuilt into its typed shape.
type atomDoc struct {
	evidence.EvidenceAtom
	NormalizedRecord json.RawMessage `json:"normalizedRecord"`
}

func decodeAtom(doc []byte) (evidence.EvidenceAtom, error) {
	var d atomDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return evidence.EvidenceAtom{}, fmt.Errorf("decode atom: %w", err)
	}

	atom := d.EvidenceAtom
	if len(d.NormalizedRecord) > 0 {
		rec, err := evidence.DecodeCanonical(atom.EvidenceType, d.NormalizedRecord)
		if err != nil {
			return evidence.EvidenceAtom{}, err
		}
		atom.NormalizedRecord = rec
	}
	return atom, nil
}
