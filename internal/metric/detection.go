package metric

import (
	"context"
	"errors"
	"fmt"
	"math"

	"synthflow/internal/table"
)

// Detection scores how hard it is to tell synthetic rows from real ones.
// 1 means the per-column distributions are indistinguishable, 0 means they
// are disjoint. Continuous columns compare standardized location and scale;
// categorical columns compare vocabulary frequency overlap.
type Detection struct{}

func (Detection) Name() string { return "detection" }

func (Detection) Score(ctx context.Context, candidate, reference table.Table) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if candidate.NumRows() == 0 || reference.NumRows() == 0 {
		return 0, errors.New("detection requires non-empty tables")
	}
	if !candidate.SameColumns(reference) {
		return 0, fmt.Errorf("%w: got=%v want=%v", table.ErrColumnMismatch, candidate.Columns(), reference.Columns())
	}

	total := 0.0
	for _, name := range reference.Columns() {
		refValues, err := reference.Column(name)
		if err != nil {
			return 0, err
		}
		candValues, err := candidate.Column(name)
		if err != nil {
			return 0, err
		}
		similarity, err := columnSimilarity(name, candValues, refValues)
		if err != nil {
			return 0, err
		}
		total += similarity
	}
	return total / float64(reference.NumCols()), nil
}

func columnSimilarity(name string, candidate, reference []any) (float64, error) {
	switch reference[0].(type) {
	case float64:
		candMean, candStd, err := moments(name, candidate)
		if err != nil {
			return 0, err
		}
		refMean, refStd, err := moments(name, reference)
		if err != nil {
			return 0, err
		}
		scale := refStd
		if scale < 1e-9 {
			scale = 1
		}
		locGap := math.Abs(candMean-refMean) / scale
		scaleGap := math.Abs(candStd-refStd) / scale
		return 1 / (1 + locGap + scaleGap), nil
	case string:
		candFreq, err := frequencies(name, candidate)
		if err != nil {
			return 0, err
		}
		refFreq, err := frequencies(name, reference)
		if err != nil {
			return 0, err
		}
		// Total-variation overlap between the two category distributions.
		overlap := 0.0
		for category, rf := range refFreq {
			overlap += math.Min(rf, candFreq[category])
		}
		return overlap, nil
	default:
		return 0, fmt.Errorf("unsupported cell type in column %s", name)
	}
}

func moments(name string, values []any) (float64, float64, error) {
	sum := 0.0
	sumSq := 0.0
	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			return 0, 0, fmt.Errorf("mixed cell types in column %s", name)
		}
		sum += f
		sumSq += f * f
	}
	n := float64(len(values))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}

func frequencies(name string, values []any) (map[string]float64, error) {
	freq := make(map[string]float64)
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("mixed cell types in column %s", name)
		}
		freq[s]++
	}
	for k := range freq {
		freq[k] /= float64(len(values))
	}
	return freq, nil
}
