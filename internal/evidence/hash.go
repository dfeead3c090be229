package evidence

// hash.go gives normalized records a deterministic, content-addressed
// identity. Records that are field-for-field equal hash identically no
// matter the original column order or header spelling, which makes
// re-ingestion idempotent: the persistence layer upserts on AtomID.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ContentHash canonicalizes a normalized record (recursively sorted object
// keys, fixed JSON encoding) and returns the hex sha256 of the canonical
// bytes. The hash is stable across runs and architectures.
func ContentHash(rec CanonicalRecord) (string, error) {
	canonical, err := canonicalJSON(rec)
	if err != nil {
		return "", fmt.Errorf("canonicalize record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// AtomID derives the deterministic atom identity for a normalized record.
func AtomID(rec CanonicalRecord) (string, error) {
	hash, err := ContentHash(rec)
	if err != nil {
		return "", err
	}
	return string(rec.Kind()) + ":" + hash, nil
}

// canonicalJSON serializes a value to JSON with all object keys sorted
// recursively. The value is first round-tripped through encoding/json so
// struct fields and map entries land in one uniform tree.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var tree any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}

	var b strings.Builder
	if err := writeCanonical(&b, tree); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(kb)
			b.WriteByte(':')
			if err := writeCanonical(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil

	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil

	case json.Number:
		b.WriteString(t.String())
		return nil

	default:
		eb, err := json.Marshal(t)
		if err != nil {
			return err
		}
		b.Write(eb)
		return nil
	}
}
