// Package evidence converts heterogeneous tabular evidence files (sales,
// complaints, incidents, field safety actions, CAPAs, literature, clinical
// follow-up studies, registry searches) into canonical, content-addressed
// evidence atoms for post-market surveillance reporting.
//
// The package is pure: no I/O, no shared mutable state, no panics on dirty
// data. Callers hand in raw file text plus a declared evidence type and get
// back a structured ParseResult; a second step turns valid records into
// persistence-ready atoms whose identity is a deterministic content hash.
package evidence
