package evidence

// tokenizer.go turns raw delimited text into ordered rows of named values.
//
// Evidence files arrive from arbitrary export tools, so the tokenizer
// handles the usual artifacts before splitting:
//   - UTF-8 BOM from Windows exports
//   - invalid UTF-8 sequences (replaced, never fatal)
//   - quoted fields with embedded commas, newlines, and doubled quotes
//   - blank / all-whitespace lines between header and data
//
// Malformed quoting never raises an error; the tokenizer degrades to a
// best-effort line-and-comma split.

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"
)

// Tokenize parses raw file text into RawRows keyed by the first non-blank
// line's header tokens. Returns an empty slice when the input has fewer
// than two non-blank lines (a header with no data is not a result).
func Tokenize(text string) []RawRow {
	records := splitRecords(text)

	// Drop all-whitespace rows everywhere, including before the header.
	rows := records[:0]
	for _, rec := range records {
		if !isEmptyRow(rec) {
			rows = append(rows, rec)
		}
	}

	if len(rows) < 2 {
		return nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	out := make([]RawRow, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		row := RawRow{
			Headers: headers,
			Values:  make(map[string]string, len(headers)),
		}
		for i, h := range headers {
			if i >= len(rec) {
				break
			}
			if v := strings.TrimSpace(rec[i]); v != "" {
				row.Values[h] = v
			}
		}
		out = append(out, row)
	}
	return out
}

// splitRecords parses CSV text tolerantly, falling back to naive splitting
// when the reader rejects the quoting entirely.
func splitRecords(text string) [][]string {
	data := sanitizeUTF8(stripBOM([]byte(text)))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err == nil {
		return records
	}

	// Best-effort fallback: plain line/comma split, quotes left as-is.
	var out [][]string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		out = append(out, strings.Split(line, ","))
	}
	return out
}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement
// character so downstream string handling is safe.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
