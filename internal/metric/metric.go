// Package metric scores synthetic tables against reference data. Scores are
// higher-is-better; the training supervisor uses them as its early-stopping
// criterion.
package metric

import (
	"context"
	"errors"
	"fmt"

	"synthflow/internal/table"
)

type Metric interface {
	Name() string
	Score(ctx context.Context, candidate, reference table.Table) (float64, error)
}

type Weighted struct {
	Metric Metric
	Weight float64
}

// WeightedMetrics combines named metrics into one scalar criterion.
type WeightedMetrics struct {
	items []Weighted
}

func NewWeightedMetrics(items []Weighted) (*WeightedMetrics, error) {
	if len(items) == 0 {
		return nil, errors.New("at least one metric is required")
	}
	total := 0.0
	for i, item := range items {
		if item.Metric == nil {
			return nil, fmt.Errorf("metric is required at index %d", i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("weight must be >= 0 at index %d", i)
		}
		total += item.Weight
	}
	if total <= 0 {
		return nil, errors.New("at least one weight must be > 0")
	}
	return &WeightedMetrics{items: items}, nil
}

func (w *WeightedMetrics) Name() string {
	name := "weighted"
	for _, item := range w.items {
		name += ":" + item.Metric.Name()
	}
	return name
}

func (w *WeightedMetrics) Score(ctx context.Context, candidate, reference table.Table) (float64, error) {
	total := 0.0
	weightSum := 0.0
	for _, item := range w.items {
		if item.Weight == 0 {
			continue
		}
		score, err := item.Metric.Score(ctx, candidate, reference)
		if err != nil {
			return 0, fmt.Errorf("score %s: %w", item.Metric.Name(), err)
		}
		total += item.Weight * score
		weightSum += item.Weight
	}
	return total / weightSum, nil
}

// DefaultPatienceMetric builds the criterion used when the caller supplies
// none: a detection-family metric weighted entirely on that one criterion.
// It is a plain factory; instances share no state.
func DefaultPatienceMetric() Metric {
	combined, err := NewWeightedMetrics([]Weighted{
		{Metric: Detection{}, Weight: 1},
	})
	if err != nil {
		// Unreachable with the fixed arguments above.
		panic(err)
	}
	return combined
}
