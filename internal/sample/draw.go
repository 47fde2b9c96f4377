// Package sample produces a requested number of generated rows through
// bounded-size draws with a fixed retry budget. Per-batch generation failures
// are absorbed; the result may fall short of the request once the budget is
// spent, and that shortfall is reported, not raised.
package sample

import (
	"context"
	"errors"
	"fmt"

	"synthflow/internal/flow"
	"synthflow/internal/table"
)

// MaxBatch bounds the number of rows requested from the model in one draw.
const MaxBatch = 5000

type Sampler interface {
	Generate(ctx context.Context, count int) (table.Table, error)
}

type Stats struct {
	Requested int `json:"requested"`
	Returned  int `json:"returned"`
	Attempts  int `json:"attempts"`
	Failures  int `json:"failures"`
}

func (s Stats) Short() bool {
	return s.Returned < s.Requested
}

// Draw accumulates count rows from sampler. The first draw is a single row
// and is not shielded: a model that cannot produce one row is broken and the
// error propagates. The retry budget count/initialBatch+1 is fixed up front
// from the original request and the initial batch size; each loop iteration
// spends one attempt and reduces the remaining count by the attempted batch
// whether or not the draw succeeded. Only failures carrying
// flow.ErrGeneration are absorbed; anything else propagates.
func Draw(ctx context.Context, sampler Sampler, count int) (table.Table, Stats, error) {
	if sampler == nil {
		return table.Table{}, Stats{}, errors.New("sampler is required")
	}
	if count < 1 {
		return table.Table{}, Stats{}, fmt.Errorf("count must be >= 1, got %d", count)
	}

	initialBatch := MaxBatch
	if count < initialBatch {
		initialBatch = count
	}

	result, err := sampler.Generate(ctx, 1)
	if err != nil {
		return table.Table{}, Stats{}, fmt.Errorf("initial draw: %w", err)
	}

	maxRetries := count/initialBatch + 1
	remaining := count - 1
	batch := initialBatch
	stats := Stats{Requested: count}

	for remaining > 0 && stats.Attempts < maxRetries {
		if err := ctx.Err(); err != nil {
			return table.Table{}, stats, err
		}
		if batch > remaining {
			batch = remaining
		}

		drawn, err := sampler.Generate(ctx, batch)
		if err != nil {
			if !errors.Is(err, flow.ErrGeneration) {
				return table.Table{}, stats, err
			}
			stats.Failures++
		} else {
			merged, err := result.Append(drawn)
			if err != nil {
				return table.Table{}, stats, err
			}
			result = merged
		}

		remaining -= batch
		stats.Attempts++
	}

	stats.Returned = result.NumRows()
	return result, stats, nil
}
