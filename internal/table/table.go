package table

import (
	"errors"
	"fmt"
)

// Table is a row-major table with named columns. Cells are float64 for
// continuous columns and string for categorical columns.
type Table struct {
	columns []string
	rows    [][]any
}

var ErrColumnMismatch = errors.New("column set mismatch")

func New(columns []string, rows [][]any) (Table, error) {
	if len(columns) == 0 {
		return Table{}, errors.New("at least one column is required")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if name == "" {
			return Table{}, errors.New("column name is required")
		}
		if _, dup := seen[name]; dup {
			return Table{}, fmt.Errorf("duplicate column: %s", name)
		}
		seen[name] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return Table{}, fmt.Errorf("row %d arity mismatch: got=%d want=%d", i, len(row), len(columns))
		}
		for j, cell := range row {
			switch cell.(type) {
			case float64, string:
			default:
				return Table{}, fmt.Errorf("row %d column %s: unsupported cell type %T", i, columns[j], cell)
			}
		}
	}

	out := Table{
		columns: append([]string(nil), columns...),
		rows:    make([][]any, len(rows)),
	}
	for i, row := range rows {
		out.rows[i] = append([]any(nil), row...)
	}
	return out, nil
}

func Empty(columns []string) (Table, error) {
	return New(columns, nil)
}

func (t Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t Table) NumRows() int {
	return len(t.rows)
}

func (t Table) NumCols() int {
	return len(t.columns)
}

func (t Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

func (t Table) Column(name string) ([]any, error) {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column: %s", name)
	}
	out := make([]any, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

func (t Table) columnIndex(name string) int {
	for i, col := range t.columns {
		if col == name {
			return i
		}
	}
	return -1
}

func (t Table) SameColumns(other Table) bool {
	if len(t.columns) != len(other.columns) {
		return false
	}
	for i, col := range t.columns {
		if other.columns[i] != col {
			return false
		}
	}
	return true
}

// Append concatenates other's rows below t. The column sets must be identical
// in name and order; batch accumulation depends on this invariant.
func (t Table) Append(other Table) (Table, error) {
	if !t.SameColumns(other) {
		return Table{}, fmt.Errorf("%w: got=%v want=%v", ErrColumnMismatch, other.columns, t.columns)
	}
	out := t.Clone()
	for _, row := range other.rows {
		out.rows = append(out.rows, append([]any(nil), row...))
	}
	return out, nil
}

func (t Table) Head(n int) Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	out := Table{columns: append([]string(nil), t.columns...), rows: make([][]any, n)}
	for i := 0; i < n; i++ {
		out.rows[i] = append([]any(nil), t.rows[i]...)
	}
	return out
}

func (t Table) Clone() Table {
	out := Table{
		columns: append([]string(nil), t.columns...),
		rows:    make([][]any, len(t.rows)),
	}
	for i, row := range t.rows {
		out.rows[i] = append([]any(nil), row...)
	}
	return out
}

// Filter keeps the rows for which keep returns true.
func (t Table) Filter(keep func(row []any) bool) Table {
	out := Table{columns: append([]string(nil), t.columns...)}
	for _, row := range t.rows {
		if keep(row) {
			out.rows = append(out.rows, append([]any(nil), row...))
		}
	}
	return out
}
