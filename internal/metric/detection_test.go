package metric

import (
	"context"
	"math"
	"testing"

	"synthflow/internal/table"
)

func mustTable(t *testing.T, columns []string, rows [][]any) table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestDetectionIdenticalTablesScoreOne(t *testing.T) {
	tbl := mustTable(t, []string{"age", "city"}, [][]any{
		{30.0, "oslo"},
		{40.0, "bergen"},
		{50.0, "oslo"},
	})

	score, err := Detection{}.Score(context.Background(), tbl, tbl)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Fatalf("identical tables: got=%f want=1", score)
	}
}

func TestDetectionPenalizesShiftedDistribution(t *testing.T) {
	reference := mustTable(t, []string{"v"}, [][]any{{0.0}, {1.0}, {2.0}})
	shifted := mustTable(t, []string{"v"}, [][]any{{10.0}, {11.0}, {12.0}})

	same, err := Detection{}.Score(context.Background(), reference, reference)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	off, err := Detection{}.Score(context.Background(), shifted, reference)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if off >= same {
		t.Fatalf("shifted distribution must score lower: got=%f baseline=%f", off, same)
	}
}

func TestDetectionDisjointCategoriesScoreZero(t *testing.T) {
	reference := mustTable(t, []string{"c"}, [][]any{{"a"}, {"b"}})
	candidate := mustTable(t, []string{"c"}, [][]any{{"x"}, {"y"}})

	score, err := Detection{}.Score(context.Background(), candidate, reference)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0 {
		t.Fatalf("disjoint vocabularies: got=%f want=0", score)
	}
}

func TestDetectionRejectsEmptyAndMismatched(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, [][]any{{1.0}})
	empty, err := table.Empty([]string{"a"})
	if err != nil {
		t.Fatalf("table.Empty: %v", err)
	}

	if _, err := (Detection{}).Score(context.Background(), empty, tbl); err == nil {
		t.Fatalf("expected error for empty candidate")
	}

	other := mustTable(t, []string{"b"}, [][]any{{1.0}})
	if _, err := (Detection{}).Score(context.Background(), other, tbl); err == nil {
		t.Fatalf("expected error for column mismatch")
	}
}
