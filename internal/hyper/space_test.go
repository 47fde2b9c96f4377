package hyper

import (
	"errors"
	"math/rand"
	"testing"
)

func testSpace(t *testing.T) Space {
	t.Helper()
	s := Space{
		Integer{Axis: "iters", Low: 100, High: 500, Step: 100},
		Integer{Axis: "layers", Low: 1, High: 4},
		Float{Axis: "rate", Low: 0, High: 0.2},
		Categorical{Axis: "mode", Choices: []any{"fast", "slow"}},
		Categorical{Axis: "batch", Choices: []any{32, 64}},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return s
}

func TestIntegerContainsRespectsStep(t *testing.T) {
	axis := Integer{Axis: "iters", Low: 100, High: 500, Step: 100}

	for _, v := range []int{100, 300, 500} {
		if !axis.Contains(v) {
			t.Fatalf("expected %d inside domain", v)
		}
	}
	for _, v := range []int{99, 150, 600} {
		if axis.Contains(v) {
			t.Fatalf("expected %d outside domain", v)
		}
	}
}

func TestIntegerDefaultStepIsOne(t *testing.T) {
	axis := Integer{Axis: "layers", Low: 1, High: 4}
	for v := 1; v <= 4; v++ {
		if !axis.Contains(v) {
			t.Fatalf("expected %d inside domain", v)
		}
	}
	if axis.Contains(5) {
		t.Fatalf("expected 5 outside domain")
	}
}

func TestFloatContainsBounds(t *testing.T) {
	axis := Float{Axis: "rate", Low: 0, High: 0.2}

	if !axis.Contains(0.0) || !axis.Contains(0.2) || !axis.Contains(0.1) {
		t.Fatalf("expected boundary and interior values inside domain")
	}
	if axis.Contains(0.5) || axis.Contains(-0.1) {
		t.Fatalf("expected out-of-range values outside domain")
	}
}

func TestCategoricalNumericEquality(t *testing.T) {
	axis := Categorical{Axis: "batch", Choices: []any{32, 64}}

	// JSON round-trips integers as float64; both spellings must match.
	if !axis.Contains(32) || !axis.Contains(float64(64)) {
		t.Fatalf("expected numeric choices to match across int and float64")
	}
	if axis.Contains(33) {
		t.Fatalf("expected 33 outside domain")
	}
}

func TestCheckValuesRejectsUnknownAxis(t *testing.T) {
	s := testSpace(t)
	if err := s.CheckValues(map[string]any{"bogus": 1}); err == nil {
		t.Fatalf("expected error for unknown axis")
	}
}

func TestCheckValuesOutOfDomain(t *testing.T) {
	s := testSpace(t)
	err := s.CheckValues(map[string]any{"rate": 0.5})
	if !errors.Is(err, ErrOutOfDomain) {
		t.Fatalf("expected ErrOutOfDomain, got %v", err)
	}
	if err := s.CheckValues(map[string]any{"rate": 0.1, "mode": "fast"}); err != nil {
		t.Fatalf("in-domain values rejected: %v", err)
	}
}

func TestSpaceValidateRejectsDuplicateAxes(t *testing.T) {
	s := Space{
		Integer{Axis: "x", Low: 1, High: 2},
		Float{Axis: "x", Low: 0, High: 1},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for duplicate axis")
	}
}

func TestSampleValuesRoundTrip(t *testing.T) {
	s := testSpace(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		values := s.SampleValues(rng)
		if len(values) != len(s) {
			t.Fatalf("sampled values: got=%d want=%d", len(values), len(s))
		}
		if err := s.CheckValues(values); err != nil {
			t.Fatalf("sample %d escaped its own domain: %v", i, err)
		}
	}
}
