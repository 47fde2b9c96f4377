package table

import (
	"errors"
	"testing"
)

func mustTable(t *testing.T, columns []string, rows [][]any) Table {
	t.Helper()
	tbl, err := New(columns, rows)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestNewRejectsInvalidInput(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected error for empty column set")
	}
	if _, err := New([]string{"a", "a"}, nil); err == nil {
		t.Fatalf("expected error for duplicate column")
	}
	if _, err := New([]string{"a", "b"}, [][]any{{1.0}}); err == nil {
		t.Fatalf("expected error for row arity mismatch")
	}
	if _, err := New([]string{"a"}, [][]any{{42}}); err == nil {
		t.Fatalf("expected error for unsupported cell type")
	}
}

func TestNewCopiesInput(t *testing.T) {
	rows := [][]any{{1.0, "x"}}
	tbl := mustTable(t, []string{"a", "b"}, rows)

	rows[0][0] = 99.0
	if got := tbl.Row(0)[0]; got != 1.0 {
		t.Fatalf("table aliases caller rows: got=%v want=1", got)
	}
}

func TestAppendRequiresSameColumns(t *testing.T) {
	left := mustTable(t, []string{"a", "b"}, [][]any{{1.0, "x"}})
	right := mustTable(t, []string{"b", "a"}, [][]any{{"y", 2.0}})

	if _, err := left.Append(right); !errors.Is(err, ErrColumnMismatch) {
		t.Fatalf("expected ErrColumnMismatch, got %v", err)
	}

	same := mustTable(t, []string{"a", "b"}, [][]any{{2.0, "y"}, {3.0, "z"}})
	merged, err := left.Append(same)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := merged.NumRows(); got != 3 {
		t.Fatalf("merged rows: got=%d want=3", got)
	}
	if got := left.NumRows(); got != 1 {
		t.Fatalf("append mutated receiver: got=%d want=1", got)
	}
}

func TestHeadClampsBounds(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, [][]any{{1.0}, {2.0}, {3.0}})

	if got := tbl.Head(2).NumRows(); got != 2 {
		t.Fatalf("head(2): got=%d want=2", got)
	}
	if got := tbl.Head(10).NumRows(); got != 3 {
		t.Fatalf("head(10): got=%d want=3", got)
	}
	if got := tbl.Head(-1).NumRows(); got != 0 {
		t.Fatalf("head(-1): got=%d want=0", got)
	}
}

func TestColumnExtraction(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"}, [][]any{{1.0, "x"}, {2.0, "y"}})

	values, err := tbl.Column("b")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if len(values) != 2 || values[0] != "x" || values[1] != "y" {
		t.Fatalf("column values: got=%v", values)
	}
	if _, err := tbl.Column("missing"); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, [][]any{{1.0}, {2.0}, {3.0}})

	kept := tbl.Filter(func(row []any) bool { return row[0].(float64) > 1.5 })
	if got := kept.NumRows(); got != 2 {
		t.Fatalf("filtered rows: got=%d want=2", got)
	}
	if got := tbl.NumRows(); got != 3 {
		t.Fatalf("filter mutated receiver: got=%d want=3", got)
	}
}
