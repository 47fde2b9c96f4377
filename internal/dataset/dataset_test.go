package dataset

import (
	"testing"

	"synthflow/internal/table"
)

func mustDataset(t *testing.T, rows int) Dataset {
	t.Helper()
	data := make([][]any, rows)
	for i := range data {
		data[i] = []any{float64(i)}
	}
	tbl, err := table.New([]string{"v"}, data)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	ds, err := FromTable(tbl)
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	return ds
}

func TestFromTableRequiresRows(t *testing.T) {
	empty, err := table.Empty([]string{"v"})
	if err != nil {
		t.Fatalf("table.Empty: %v", err)
	}
	if _, err := FromTable(empty); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestSplitProportions(t *testing.T) {
	ds := mustDataset(t, 100)

	train, reference, err := ds.Split(0.2, 42)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got := reference.NumRows(); got != 20 {
		t.Fatalf("reference rows: got=%d want=20", got)
	}
	if got := train.NumRows(); got != 80 {
		t.Fatalf("train rows: got=%d want=80", got)
	}

	// Partitions must be disjoint; values are unique per row.
	seen := map[float64]bool{}
	for i := 0; i < reference.NumRows(); i++ {
		seen[reference.Row(i)[0].(float64)] = true
	}
	for i := 0; i < train.NumRows(); i++ {
		if seen[train.Row(i)[0].(float64)] {
			t.Fatalf("row %d appears in both partitions", i)
		}
	}
}

func TestSplitIsDeterministicPerSeed(t *testing.T) {
	ds := mustDataset(t, 50)

	first, _, err := ds.Split(0.2, 7)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	second, _, err := ds.Split(0.2, 7)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i := 0; i < first.NumRows(); i++ {
		if first.Row(i)[0] != second.Row(i)[0] {
			t.Fatalf("row %d differs across identical seeds", i)
		}
	}
}

func TestSplitSingleRowSharesIt(t *testing.T) {
	ds := mustDataset(t, 1)

	train, reference, err := ds.Split(0.2, 1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if train.NumRows() != 1 || reference.NumRows() != 1 {
		t.Fatalf("partitions: got=%d/%d want=1/1", train.NumRows(), reference.NumRows())
	}
}

func TestSplitRejectsBadHoldout(t *testing.T) {
	ds := mustDataset(t, 10)
	for _, holdout := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := ds.Split(holdout, 1); err == nil {
			t.Fatalf("holdout %f: expected error", holdout)
		}
	}
}
