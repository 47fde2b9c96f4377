package flow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"synthflow/internal/table"
)

// TabularParams is a snapshot of the tabular engine's state.
type TabularParams struct {
	Base  Params
	Freqs [][]float64
}

func (p TabularParams) clone() TabularParams {
	out := TabularParams{Base: p.Base.clone(), Freqs: make([][]float64, len(p.Freqs))}
	for i, f := range p.Freqs {
		out.Freqs[i] = append([]float64(nil), f...)
	}
	return out
}

// TabularFlows wraps Flows with a categorical encoder so mixed tables train
// end to end: continuous columns go through the inner flow, categorical
// columns through per-column frequency models with a bounded vocabulary.
type TabularFlows struct {
	cfg Config

	mu       sync.Mutex
	rng      *rand.Rand
	columns  []string
	contIdx  []int
	catIdx   []int
	vocabs   [][]string
	encoded  [][]int
	freqs    [][]float64
	inner    *Flows
	started  bool
	numSteps int
}

func NewTabularFlows(cfg Config) (*TabularFlows, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	inner, err := NewFlows(cfg)
	if err != nil {
		return nil, err
	}
	return &TabularFlows{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed + 1)),
		inner: inner,
	}, nil
}

func (t *TabularFlows) Start(data table.Table) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if data.NumRows() == 0 {
		return errors.New("training data must have at least one row")
	}
	columns := data.Columns()
	var contIdx, catIdx []int
	for j, name := range columns {
		switch data.Row(0)[j].(type) {
		case float64:
			contIdx = append(contIdx, j)
		case string:
			catIdx = append(catIdx, j)
		default:
			return fmt.Errorf("column %s: unsupported cell type", name)
		}
	}

	vocabs := make([][]string, len(catIdx))
	encoded := make([][]int, len(catIdx))
	for k, j := range catIdx {
		values, err := data.Column(columns[j])
		if err != nil {
			return err
		}
		vocab, codes, err := encodeColumn(columns[j], values, t.cfg.EncoderMaxClusters)
		if err != nil {
			return err
		}
		vocabs[k] = vocab
		encoded[k] = codes
	}

	if len(contIdx) > 0 {
		contCols := make([]string, len(contIdx))
		contRows := make([][]any, data.NumRows())
		for i := 0; i < data.NumRows(); i++ {
			row := data.Row(i)
			vec := make([]any, len(contIdx))
			for k, j := range contIdx {
				if _, ok := row[j].(float64); !ok {
					return fmt.Errorf("column %s: mixed cell types", columns[j])
				}
				vec[k] = row[j]
			}
			contRows[i] = vec
		}
		for k, j := range contIdx {
			contCols[k] = columns[j]
		}
		contTable, err := table.New(contCols, contRows)
		if err != nil {
			return err
		}
		if err := t.inner.Start(contTable); err != nil {
			return err
		}
	}

	freqs := make([][]float64, len(catIdx))
	for k, vocab := range vocabs {
		freqs[k] = make([]float64, len(vocab))
		for i := range freqs[k] {
			freqs[k][i] = 1 / float64(len(vocab))
		}
	}

	t.columns = columns
	t.contIdx = contIdx
	t.catIdx = catIdx
	t.vocabs = vocabs
	t.encoded = encoded
	t.freqs = freqs
	t.started = true
	t.numSteps = 0
	return nil
}

// encodeColumn builds a frequency-ranked vocabulary capped at maxClusters.
// Values outside the cap collapse onto the most frequent category.
func encodeColumn(name string, values []any, maxClusters int) ([]string, []int, error) {
	counts := map[string]int{}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, nil, fmt.Errorf("column %s: mixed cell types", name)
		}
		counts[s]++
	}
	vocab := make([]string, 0, len(counts))
	for s := range counts {
		vocab = append(vocab, s)
	}
	sort.Slice(vocab, func(i, j int) bool {
		if counts[vocab[i]] == counts[vocab[j]] {
			return vocab[i] < vocab[j]
		}
		return counts[vocab[i]] > counts[vocab[j]]
	})
	if len(vocab) > maxClusters {
		vocab = vocab[:maxClusters]
	}
	index := make(map[string]int, len(vocab))
	for i, s := range vocab {
		index[s] = i
	}
	codes := make([]int, len(values))
	for i, v := range values {
		s := v.(string)
		if code, ok := index[s]; ok {
			codes[i] = code
		} else {
			codes[i] = 0
		}
	}
	return vocab, codes, nil
}

func (t *TabularFlows) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return errors.New("model not started")
	}
	if len(t.contIdx) > 0 {
		if err := t.inner.Step(ctx); err != nil {
			return err
		}
	}

	if len(t.catIdx) > 0 {
		n := len(t.encoded[0])
		batch := t.cfg.BatchSize
		if batch > n {
			batch = n
		}
		lr := t.cfg.LR * float64(t.cfg.NLayersHidden*t.cfg.NumTransformBlocks)
		if lr > 1 {
			lr = 1
		}
		for k := range t.catIdx {
			batchCounts := make([]float64, len(t.vocabs[k]))
			for i := 0; i < batch; i++ {
				batchCounts[t.encoded[k][t.rng.Intn(n)]]++
			}
			for c := range t.freqs[k] {
				target := batchCounts[c] / float64(batch)
				t.freqs[k][c] += lr * (target - t.freqs[k][c])
			}
		}
	}
	t.numSteps++
	return nil
}

func (t *TabularFlows) Generate(ctx context.Context, count int) (table.Table, error) {
	if err := ctx.Err(); err != nil {
		return table.Table{}, err
	}
	if count < 0 {
		return table.Table{}, fmt.Errorf("count must be >= 0, got %d", count)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return table.Table{}, fmt.Errorf("%w: model not trained", ErrGeneration)
	}

	var contRows [][]any
	if len(t.contIdx) > 0 {
		contTable, err := t.inner.Generate(ctx, count)
		if err != nil {
			return table.Table{}, err
		}
		contRows = make([][]any, count)
		for i := 0; i < count; i++ {
			contRows[i] = contTable.Row(i)
		}
	}

	rows := make([][]any, count)
	for i := 0; i < count; i++ {
		row := make([]any, len(t.columns))
		for k, j := range t.contIdx {
			row[j] = contRows[i][k]
		}
		for k, j := range t.catIdx {
			row[j] = t.vocabs[k][sampleIndex(t.rng, t.freqs[k])]
		}
		rows[i] = row
	}
	return table.New(t.columns, rows)
}

func sampleIndex(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	pick := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if pick <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func (t *TabularFlows) Snapshot() any {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := TabularParams{Freqs: make([][]float64, len(t.freqs))}
	for i, f := range t.freqs {
		snapshot.Freqs[i] = append([]float64(nil), f...)
	}
	if len(t.contIdx) > 0 {
		snapshot.Base = t.inner.Snapshot().(Params)
	}
	return snapshot
}

func (t *TabularFlows) Restore(snapshot any) error {
	params, ok := snapshot.(TabularParams)
	if !ok {
		return fmt.Errorf("unexpected snapshot type %T", snapshot)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(params.Freqs) != len(t.freqs) {
		return fmt.Errorf("snapshot frequency arity mismatch: got=%d want=%d", len(params.Freqs), len(t.freqs))
	}
	cloned := params.clone()
	t.freqs = cloned.Freqs
	if len(t.contIdx) > 0 {
		return t.inner.Restore(cloned.Base)
	}
	return nil
}
