package obs

import (
	"strings"
	"testing"
)

func TestSQLOperation(t *testing.T) {
	cases := map[string]string{
		"SELECT id FROM invoices":   "SELECT",
		"  insert into clients ...": "INSERT",
		"":                          "QUERY",
	}
	for sql, want := range cases {
		if got := sqlOperation(sql); got != want {
			t.Fatalf("sqlOperation(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestTruncateSQL(t *testing.T) {
	long := "SELECT " + strings.Repeat("x", 400)
	got := truncateSQL(long)
	if len(got) != maxStatementLen+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation length %d", len(got))
	}
	if truncateSQL(" SELECT 1 ") != "SELECT 1" {
		t.Fatal("expected short statements to be trimmed only")
	}
}
