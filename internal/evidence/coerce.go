package evidence

// coerce.go provides tolerant type conversion for evidence cell values.
//
// These functions handle the messy reality of externally sourced files:
//   - Multiple date formats (ISO, US, EU, compact, timestamps)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean encodings (yes/no, true/false, 1/0, numeric)
//   - Free-text and numeric severity codes
//
// Every coercion returns a value plus an ok flag; nothing here errors or
// panics, because rejecting a cell is a validation outcome, not a failure.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is numeric after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order. ISO forms come first, then US slash
// forms, then EU dash forms with a US fallback, then the long tail.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006", "1/2/2006",
	"02-01-2006", "2-1-2006",
	"01-02-2006",
	"2006/01/02", "2006.01.02",
	"01.02.2006", "1.2.2006",
	"Jan 2, 2006", "2 Jan 2006",
	"20060102",
}

// CoerceDate converts a cell value to a UTC time. Accepts ISO YYYY-MM-DD,
// MM/DD/YYYY, and DD-MM-YYYY shapes plus common timestamp and long-form
// variants. Returns ok=false when no layout gives a confident parse.
func CoerceDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a coerced date in the canonical ISO-8601 form used
// throughout normalized records.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// CoerceISODate combines CoerceDate and FormatDate for record building.
func CoerceISODate(s string) (string, bool) {
	t, ok := CoerceDate(s)
	if !ok {
		return "", false
	}
	return FormatDate(t), true
}

// CoerceNumber converts a cell value to a float64. Whitespace, comma
// thousands separators, and a leading currency symbol are stripped before
// parsing; anything non-numeric after cleanup is rejected.
func CoerceNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	for _, sym := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, sym)
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CoerceBool converts a cell value to a bool. Accepts yes/true/1/y and
// no/false/0/n case-insensitively; any other numeric input is true when
// non-zero and false when zero.
func CoerceBool(s string) (bool, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, false
	}

	switch s {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}

	if n, ok := CoerceNumber(s); ok {
		return n != 0, true
	}
	return false, false
}

// severityLookup maps free-text and numeric severity codes onto the
// ordinal low/medium/high/critical scale.
var severityLookup = map[string]string{
	"1": "low", "low": "low", "minor": "low",
	"2": "medium", "medium": "medium", "moderate": "medium",
	"3": "high", "high": "high", "serious": "high", "major": "high",
	"4": "critical", "critical": "critical",
	"life-threatening": "critical", "life threatening": "critical",
}

// CoerceSeverity normalizes a severity cell to one of low, medium, high,
// critical. Numeric codes 1-4 map low through critical; common synonyms
// (minor, serious, life-threatening) map to their ordinal.
func CoerceSeverity(s string) (string, bool) {
	key := strings.TrimSpace(strings.ToLower(s))
	if key == "" {
		return "", false
	}
	v, ok := severityLookup[key]
	return v, ok
}

// CoerceGeneric applies the schema-less coercion pipeline: date first,
// then number, then the literal string.
func CoerceGeneric(s string) any {
	if iso, ok := CoerceISODate(s); ok {
		return iso
	}
	if n, ok := CoerceNumber(s); ok {
		return n
	}
	return s
}
