package table

import (
	"fmt"
	"sort"
)

type ColumnKind string

const (
	KindContinuous  ColumnKind = "continuous"
	KindCategorical ColumnKind = "categorical"
)

type Column struct {
	Name    string     `json:"name"`
	Kind    ColumnKind `json:"kind"`
	Min     float64    `json:"min,omitempty"`
	Max     float64    `json:"max,omitempty"`
	Choices []string   `json:"choices,omitempty"`
}

// Schema captures per-column constraints for generated data: numeric ranges
// for continuous columns and the legal vocabulary for categorical ones.
type Schema struct {
	Columns []Column `json:"columns"`
}

func InferSchema(t Table) (Schema, error) {
	cols := make([]Column, 0, t.NumCols())
	for _, name := range t.Columns() {
		values, err := t.Column(name)
		if err != nil {
			return Schema{}, err
		}
		col, err := inferColumn(name, values)
		if err != nil {
			return Schema{}, err
		}
		cols = append(cols, col)
	}
	return Schema{Columns: cols}, nil
}

func inferColumn(name string, values []any) (Column, error) {
	if len(values) == 0 {
		return Column{}, fmt.Errorf("cannot infer schema for empty column: %s", name)
	}
	switch values[0].(type) {
	case float64:
		col := Column{Name: name, Kind: KindContinuous}
		first := true
		for _, v := range values {
			f, ok := v.(float64)
			if !ok {
				return Column{}, fmt.Errorf("mixed cell types in column %s", name)
			}
			if first || f < col.Min {
				col.Min = f
			}
			if first || f > col.Max {
				col.Max = f
			}
			first = false
		}
		return col, nil
	case string:
		vocab := map[string]struct{}{}
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return Column{}, fmt.Errorf("mixed cell types in column %s", name)
			}
			vocab[s] = struct{}{}
		}
		col := Column{Name: name, Kind: KindCategorical, Choices: make([]string, 0, len(vocab))}
		for s := range vocab {
			col.Choices = append(col.Choices, s)
		}
		sort.Strings(col.Choices)
		return col, nil
	default:
		return Column{}, fmt.Errorf("unsupported cell type in column %s", name)
	}
}

func (s Schema) column(name string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// MatchConstraints drops the rows whose cells fall outside the schema's
// declared domains. Columns absent from the schema pass through unchecked.
func (s Schema) MatchConstraints(t Table) Table {
	constraints := make([]*Column, t.NumCols())
	for i, name := range t.Columns() {
		if col, ok := s.column(name); ok {
			c := col
			constraints[i] = &c
		}
	}

	return t.Filter(func(row []any) bool {
		for i, cell := range row {
			col := constraints[i]
			if col == nil {
				continue
			}
			if !col.admits(cell) {
				return false
			}
		}
		return true
	})
}

func (c Column) admits(cell any) bool {
	switch c.Kind {
	case KindContinuous:
		f, ok := cell.(float64)
		if !ok {
			return false
		}
		return f >= c.Min && f <= c.Max
	case KindCategorical:
		s, ok := cell.(string)
		if !ok {
			return false
		}
		for _, choice := range c.Choices {
			if choice == s {
				return true
			}
		}
		return false
	default:
		return false
	}
}
