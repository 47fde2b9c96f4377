package storage

import (
	"errors"
	"testing"

	"synthflow/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	want := sampleRun("run-1", "2026-08-27T10:00:00Z")
	want.Overrides = map[string]any{"n_iter": float64(200)}

	data, err := EncodeRun(want)
	if err != nil {
		t.Fatalf("EncodeRun: %v", err)
	}
	got, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("DecodeRun: %v", err)
	}
	if got.ID != want.ID || got.Overrides["n_iter"] != float64(200) {
		t.Fatalf("round trip: got=%+v want=%+v", got, want)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("run-1", "2026-08-27T10:00:00Z")
	run.SchemaVersion = CurrentSchemaVersion + 1

	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("EncodeRun: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestScoreHistoryCodecRoundTrip(t *testing.T) {
	want := []model.ScoreCheck{{Iteration: 100, Score: 0.5, Improved: true}, {Iteration: 150, Failed: true}}

	data, err := EncodeScoreHistory(want)
	if err != nil {
		t.Fatalf("EncodeScoreHistory: %v", err)
	}
	got, err := DecodeScoreHistory(data)
	if err != nil {
		t.Fatalf("DecodeScoreHistory: %v", err)
	}
	if len(got) != 2 || got[1].Iteration != 150 || !got[1].Failed {
		t.Fatalf("round trip: got=%+v", got)
	}
}
