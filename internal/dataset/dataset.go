// Package dataset wraps training data handed to plugins and provides the
// holdout split consumed by early-stopping metric checks.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"synthflow/internal/table"
)

type Dataset struct {
	data table.Table
}

func FromTable(t table.Table) (Dataset, error) {
	if t.NumRows() == 0 {
		return Dataset{}, errors.New("dataset must have at least one row")
	}
	return Dataset{data: t.Clone()}, nil
}

func (d Dataset) Table() table.Table {
	return d.data.Clone()
}

func (d Dataset) NumRows() int {
	return d.data.NumRows()
}

// Split shuffles rows and carves off holdout (in (0,1)) as the reference
// partition. Both partitions always get at least one row.
func (d Dataset) Split(holdout float64, seed int64) (table.Table, table.Table, error) {
	if holdout <= 0 || holdout >= 1 {
		return table.Table{}, table.Table{}, fmt.Errorf("holdout must be in (0, 1), got %f", holdout)
	}
	n := d.data.NumRows()
	if n < 2 {
		// Too small to split; train and reference share the single row.
		return d.data.Clone(), d.data.Clone(), nil
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)
	refCount := int(float64(n) * holdout)
	if refCount < 1 {
		refCount = 1
	}
	if refCount >= n {
		refCount = n - 1
	}

	columns := d.data.Columns()
	trainRows := make([][]any, 0, n-refCount)
	refRows := make([][]any, 0, refCount)
	for i, idx := range order {
		if i < refCount {
			refRows = append(refRows, d.data.Row(idx))
		} else {
			trainRows = append(trainRows, d.data.Row(idx))
		}
	}

	trainTable, err := table.New(columns, trainRows)
	if err != nil {
		return table.Table{}, table.Table{}, err
	}
	refTable, err := table.New(columns, refRows)
	if err != nil {
		return table.Table{}, table.Table{}, err
	}
	return trainTable, refTable, nil
}
