package flow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"synthflow/internal/table"
)

// Model is the capability surface the training supervisor and the sampling
// loop consume. Generate must be safe for concurrent use once training is
// done; Step and Restore follow the single-writer discipline of the owning
// plugin.
type Model interface {
	Start(data table.Table) error
	Step(ctx context.Context) error
	Generate(ctx context.Context, count int) (table.Table, error)
	Snapshot() any
	Restore(snapshot any) error
}

// Params is a snapshot of the continuous engine's state.
type Params struct {
	Means []float64
	Stds  []float64
}

func (p Params) clone() Params {
	return Params{
		Means: append([]float64(nil), p.Means...),
		Stds:  append([]float64(nil), p.Stds...),
	}
}

// Flows models continuous columns only. Each optimization step nudges the
// per-column location and scale toward minibatch statistics at the configured
// learning rate, standing in for a gradient step on the flow's likelihood.
type Flows struct {
	cfg Config

	mu      sync.Mutex
	rng     *rand.Rand
	columns []string
	data    [][]float64
	params  Params
	started bool
	steps   int
}

func NewFlows(cfg Config) (*Flows, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Flows{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (f *Flows) Start(data table.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data.NumRows() == 0 {
		return errors.New("training data must have at least one row")
	}
	columns := data.Columns()
	matrix := make([][]float64, data.NumRows())
	for i := 0; i < data.NumRows(); i++ {
		row := data.Row(i)
		vec := make([]float64, len(row))
		for j, cell := range row {
			v, ok := cell.(float64)
			if !ok {
				return fmt.Errorf("column %s: continuous engine requires numeric cells, got %T", columns[j], cell)
			}
			vec[j] = v
		}
		matrix[i] = vec
	}

	f.columns = columns
	f.data = matrix
	f.params = Params{
		Means: make([]float64, len(columns)),
		Stds:  make([]float64, len(columns)),
	}
	for j := range f.params.Stds {
		f.params.Stds[j] = 1
	}
	f.started = true
	f.steps = 0
	return nil
}

// Step runs one optimization iteration over a random minibatch.
func (f *Flows) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return errors.New("model not started")
	}

	batch := f.cfg.BatchSize
	if batch > len(f.data) {
		batch = len(f.data)
	}
	dim := len(f.columns)
	sum := make([]float64, dim)
	sumSq := make([]float64, dim)
	for i := 0; i < batch; i++ {
		row := f.data[f.rng.Intn(len(f.data))]
		for j, v := range row {
			sum[j] += v
			sumSq[j] += v * v
		}
	}

	// Effective step size grows with depth and width of the transform stack;
	// dropout randomly freezes a fraction of the coordinates this step.
	lr := f.cfg.LR * float64(f.cfg.NLayersHidden*f.cfg.NumTransformBlocks)
	if lr > 1 {
		lr = 1
	}
	for j := 0; j < dim; j++ {
		if f.cfg.Dropout > 0 && f.rng.Float64() < f.cfg.Dropout {
			continue
		}
		mean := sum[j] / float64(batch)
		variance := sumSq[j]/float64(batch) - mean*mean
		if variance < 0 {
			variance = 0
		}
		std := math.Sqrt(variance)
		f.params.Means[j] += lr * (mean - f.params.Means[j])
		f.params.Stds[j] += lr * (std - f.params.Stds[j])
		if f.params.Stds[j] < 1e-9 {
			f.params.Stds[j] = 1e-9
		}
	}
	f.steps++
	return nil
}

// Generate draws count rows. Safe for concurrent use after training.
func (f *Flows) Generate(ctx context.Context, count int) (table.Table, error) {
	if err := ctx.Err(); err != nil {
		return table.Table{}, err
	}
	if count < 0 {
		return table.Table{}, fmt.Errorf("count must be >= 0, got %d", count)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return table.Table{}, fmt.Errorf("%w: model not trained", ErrGeneration)
	}

	rows := make([][]any, count)
	for i := 0; i < count; i++ {
		row := make([]any, len(f.columns))
		for j := range f.columns {
			z := f.rng.NormFloat64()
			// The tail bound boxes the base sample, as the spline transforms do.
			if z > f.cfg.TailBound {
				z = f.cfg.TailBound
			}
			if z < -f.cfg.TailBound {
				z = -f.cfg.TailBound
			}
			row[j] = f.params.Means[j] + f.params.Stds[j]*z
		}
		rows[i] = row
	}
	return table.New(f.columns, rows)
}

func (f *Flows) Snapshot() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params.clone()
}

func (f *Flows) Restore(snapshot any) error {
	params, ok := snapshot.(Params)
	if !ok {
		return fmt.Errorf("unexpected snapshot type %T", snapshot)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params.clone()
	return nil
}

func (f *Flows) Steps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}
