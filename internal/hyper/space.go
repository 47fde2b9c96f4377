// Package hyper declares tunable hyperparameter axes and their legal domains,
// so an external search procedure can sample configurations that the plugin
// constructors accept without unknown-argument failures.
package hyper

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrOutOfDomain = errors.New("value outside declared domain")

// Spec is one named axis of a hyperparameter search space.
type Spec interface {
	Name() string
	Validate() error
	Contains(value any) bool
	Sample(r *rand.Rand) any
}

type Integer struct {
	Axis string
	Low  int
	High int
	Step int
}

func (d Integer) Name() string { return d.Axis }

func (d Integer) Validate() error {
	if d.Axis == "" {
		return errors.New("axis name is required")
	}
	if d.Low > d.High {
		return fmt.Errorf("axis %s: low must be <= high", d.Axis)
	}
	if d.Step < 0 {
		return fmt.Errorf("axis %s: step must not be negative", d.Axis)
	}
	return nil
}

func (d Integer) step() int {
	if d.Step <= 0 {
		return 1
	}
	return d.Step
}

func (d Integer) Contains(value any) bool {
	v, ok := asInt(value)
	if !ok {
		return false
	}
	if v < d.Low || v > d.High {
		return false
	}
	return (v-d.Low)%d.step() == 0
}

func (d Integer) Sample(r *rand.Rand) any {
	steps := (d.High-d.Low)/d.step() + 1
	return d.Low + r.Intn(steps)*d.step()
}

type Float struct {
	Axis string
	Low  float64
	High float64
}

func (d Float) Name() string { return d.Axis }

func (d Float) Validate() error {
	if d.Axis == "" {
		return errors.New("axis name is required")
	}
	if d.Low > d.High {
		return fmt.Errorf("axis %s: low must be <= high", d.Axis)
	}
	return nil
}

func (d Float) Contains(value any) bool {
	v, ok := asFloat(value)
	if !ok {
		return false
	}
	return v >= d.Low && v <= d.High
}

func (d Float) Sample(r *rand.Rand) any {
	return d.Low + r.Float64()*(d.High-d.Low)
}

type Categorical struct {
	Axis    string
	Choices []any
}

func (d Categorical) Name() string { return d.Axis }

func (d Categorical) Validate() error {
	if d.Axis == "" {
		return errors.New("axis name is required")
	}
	if len(d.Choices) == 0 {
		return fmt.Errorf("axis %s: choices must be non-empty", d.Axis)
	}
	return nil
}

func (d Categorical) Contains(value any) bool {
	for _, choice := range d.Choices {
		if equalChoice(choice, value) {
			return true
		}
	}
	return false
}

func (d Categorical) Sample(r *rand.Rand) any {
	return d.Choices[r.Intn(len(d.Choices))]
}

// Space is an ordered sequence of axes.
type Space []Spec

func (s Space) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, spec := range s {
		if err := spec.Validate(); err != nil {
			return err
		}
		if _, dup := seen[spec.Name()]; dup {
			return fmt.Errorf("duplicate axis: %s", spec.Name())
		}
		seen[spec.Name()] = struct{}{}
	}
	return nil
}

func (s Space) Names() []string {
	names := make([]string, 0, len(s))
	for _, spec := range s {
		names = append(names, spec.Name())
	}
	return names
}

func (s Space) Axis(name string) (Spec, bool) {
	for _, spec := range s {
		if spec.Name() == name {
			return spec, true
		}
	}
	return nil, false
}

// CheckValues validates supplied overrides eagerly against the declared
// domains. Names absent from the space are rejected.
func (s Space) CheckValues(values map[string]any) error {
	for name, value := range values {
		spec, ok := s.Axis(name)
		if !ok {
			return fmt.Errorf("unknown axis: %s", name)
		}
		if !spec.Contains(value) {
			return fmt.Errorf("%w: axis=%s value=%v", ErrOutOfDomain, name, value)
		}
	}
	return nil
}

// SampleValues draws one configuration from every axis.
func (s Space) SampleValues(r *rand.Rand) map[string]any {
	out := make(map[string]any, len(s))
	for _, spec := range s {
		out[spec.Name()] = spec.Sample(r)
	}
	return out
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func equalChoice(choice, value any) bool {
	if choice == value {
		return true
	}
	cf, cok := asFloat(choice)
	vf, vok := asFloat(value)
	if cok && vok {
		return cf == vf
	}
	cb, cok := choice.(bool)
	vb, vok := value.(bool)
	if cok && vok {
		return cb == vb
	}
	return false
}
