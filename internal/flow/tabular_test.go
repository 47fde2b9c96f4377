package flow

import (
	"context"
	"errors"
	"testing"

	"synthflow/internal/table"
)

func mixedTable(t *testing.T) table.Table {
	t.Helper()
	rows := make([][]any, 0, 60)
	for i := 0; i < 60; i++ {
		city := "oslo"
		if i%3 == 0 {
			city = "bergen"
		}
		rows = append(rows, []any{float64(i % 10), city})
	}
	tbl, err := table.New([]string{"age", "city"}, rows)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestTabularRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 9

	m, err := NewTabularFlows(cfg)
	if err != nil {
		t.Fatalf("NewTabularFlows: %v", err)
	}
	if err := m.Start(mixedTable(t)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := m.Step(ctx); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	out, err := m.Generate(ctx, 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := out.NumRows(); got != 100 {
		t.Fatalf("generated rows: got=%d want=100", got)
	}

	cols := out.Columns()
	if cols[0] != "age" || cols[1] != "city" {
		t.Fatalf("column order not preserved: got=%v", cols)
	}
	for i := 0; i < out.NumRows(); i++ {
		row := out.Row(i)
		if _, ok := row[0].(float64); !ok {
			t.Fatalf("row %d: age is %T, want float64", i, row[0])
		}
		city, ok := row[1].(string)
		if !ok {
			t.Fatalf("row %d: city is %T, want string", i, row[1])
		}
		if city != "oslo" && city != "bergen" {
			t.Fatalf("row %d: city outside observed vocabulary: %q", i, city)
		}
	}
}

func TestEncoderCapsVocabulary(t *testing.T) {
	values := []any{"a", "a", "a", "b", "b", "c"}
	vocab, codes, err := encodeColumn("col", values, 2)
	if err != nil {
		t.Fatalf("encodeColumn: %v", err)
	}
	if len(vocab) != 2 || vocab[0] != "a" || vocab[1] != "b" {
		t.Fatalf("vocab: got=%v want=[a b]", vocab)
	}
	// The value outside the cap collapses onto the most frequent category.
	if codes[5] != 0 {
		t.Fatalf("overflow code: got=%d want=0", codes[5])
	}
}

func TestTabularGenerateBeforeStartFails(t *testing.T) {
	m, err := NewTabularFlows(DefaultConfig())
	if err != nil {
		t.Fatalf("NewTabularFlows: %v", err)
	}
	if _, err := m.Generate(context.Background(), 5); !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestTabularSnapshotRestore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 13

	m, err := NewTabularFlows(cfg)
	if err != nil {
		t.Fatalf("NewTabularFlows: %v", err)
	}
	if err := m.Start(mixedTable(t)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := m.Step(ctx); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	saved := m.Snapshot().(TabularParams)

	for i := 0; i < 5; i++ {
		if err := m.Step(ctx); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if err := m.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored := m.Snapshot().(TabularParams)
	for k := range saved.Freqs {
		for c := range saved.Freqs[k] {
			if restored.Freqs[k][c] != saved.Freqs[k][c] {
				t.Fatalf("frequency %d/%d diverges after restore", k, c)
			}
		}
	}
}

func TestCategoricalOnlyTable(t *testing.T) {
	rows := [][]any{{"x"}, {"y"}, {"x"}, {"x"}}
	tbl, err := table.New([]string{"label"}, rows)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	m, err := NewTabularFlows(DefaultConfig())
	if err != nil {
		t.Fatalf("NewTabularFlows: %v", err)
	}
	if err := m.Start(tbl); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx := context.Background()
	if err := m.Step(ctx); err != nil {
		t.Fatalf("Step: %v", err)
	}

	out, err := m.Generate(ctx, 20)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < out.NumRows(); i++ {
		v := out.Row(i)[0].(string)
		if v != "x" && v != "y" {
			t.Fatalf("row %d outside vocabulary: %q", i, v)
		}
	}
}
