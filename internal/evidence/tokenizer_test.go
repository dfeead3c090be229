package evidence

import "testing"

func TestTokenizeQuotedFields(t *testing.T) {
	rows := Tokenize("Customer,Qty\n\"Acme, Inc.\",\"100\"\n")

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if len(row.Headers) != 2 {
		t.Fatalf("headers = %v, want 2 fields", row.Headers)
	}
	if got := row.Values["Customer"]; got != "Acme, Inc." {
		t.Errorf("Customer = %q, want %q", got, "Acme, Inc.")
	}
	if got := row.Values["Qty"]; got != "100" {
		t.Errorf("Qty = %q, want %q", got, "100")
	}
}

func TestTokenizeEmbeddedQuoteAndNewline(t *testing.T) {
	rows := Tokenize("Name,Note\n\"say \"\"hi\"\"\",\"line one\nline two\"\n")

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got := rows[0].Values["Name"]; got != `say "hi"` {
		t.Errorf("Name = %q, want %q", got, `say "hi"`)
	}
	if got := rows[0].Values["Note"]; got != "line one\nline two" {
		t.Errorf("Note = %q, want embedded newline preserved", got)
	}
}

func TestTokenizeSkipsBlankLines(t *testing.T) {
	text := "\n   \nDevice Code,Qty\n\nDEV-1,10\n   \nDEV-2,20\n"
	rows := Tokenize(text)

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Values["Device Code"] != "DEV-1" || rows[1].Values["Device Code"] != "DEV-2" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestTokenizeHeaderOnly(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty input", text: ""},
		{name: "whitespace only", text: "  \n\n  "},
		{name: "header only", text: "a,b,c\n"},
		{name: "header and blank lines", text: "a,b,c\n\n   \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rows := Tokenize(tt.text); len(rows) != 0 {
				t.Errorf("Tokenize(%q) = %d rows, want 0", tt.text, len(rows))
			}
		})
	}
}

func TestTokenizeBOMAndShortRows(t *testing.T) {
	text := "\xef\xbb\xbfa,b,c\n1,2\n"
	rows := Tokenize(text)

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Headers[0] != "a" {
		t.Errorf("BOM not stripped from first header: %q", rows[0].Headers[0])
	}
	if _, ok := rows[0].Values["c"]; ok {
		t.Error("short row should leave trailing column absent")
	}
	if rows[0].Values["a"] != "1" || rows[0].Values["b"] != "2" {
		t.Errorf("unexpected values: %v", rows[0].Values)
	}
}

func TestTokenizeEmptyCellsOmitted(t *testing.T) {
	rows := Tokenize("a,b,c\n1,,3\n")

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if _, ok := rows[0].Values["b"]; ok {
		t.Error("empty cell should be absent from Values")
	}
	if len(rows[0].Headers) != 3 {
		t.Errorf("Headers = %v, want all three preserved", rows[0].Headers)
	}
}

func TestTokenizePreservesColumnOrder(t *testing.T) {
	rows := Tokenize("zeta,alpha,mid\n1,2,3\n")

	want := []string{"zeta", "alpha", "mid"}
	for i, h := range rows[0].Headers {
		if h != want[i] {
			t.Fatalf("Headers = %v, want %v", rows[0].Headers, want)
		}
	}
}
