// Package train bounds training cost with metric-driven early stopping.
package train

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"synthflow/internal/table"
)

// Trainable is the slice of the model the supervisor drives: one optimization
// step at a time, plus validation draws for scoring.
type Trainable interface {
	Step(ctx context.Context) error
	Generate(ctx context.Context, count int) (table.Table, error)
}

// Snapshotter is optional. When the model supports it, the supervisor keeps
// the best-scoring parameter snapshot and restores it at stop.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any) error
}

type ScoreFn func(ctx context.Context, candidate, reference table.Table) (float64, error)

type StopReason string

const (
	StopCeiling  StopReason = "ceiling"
	StopPatience StopReason = "patience"
)

type Config struct {
	NIter           int
	NIterMin        int
	NIterPrint      int
	Patience        int
	ValidationCount int
	RestoreBest     bool
	Logger          *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		NIter:           1000,
		NIterMin:        100,
		NIterPrint:      50,
		Patience:        5,
		ValidationCount: 500,
		RestoreBest:     true,
	}
}

type Check struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Improved  bool    `json:"improved"`
	Failed    bool    `json:"failed"`
}

type Report struct {
	Iterations    int        `json:"iterations"`
	BestScore     float64    `json:"best_score"`
	BestIteration int        `json:"best_iteration"`
	Checks        []Check    `json:"checks"`
	StoppedBy     StopReason `json:"stopped_by"`
	RestoredBest  bool       `json:"restored_best"`
}

type Supervisor struct {
	cfg Config
	log *zap.Logger
}

func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.NIter <= 0 {
		return nil, errors.New("n_iter must be > 0")
	}
	if cfg.NIterMin < 0 {
		return nil, errors.New("n_iter_min must be >= 0")
	}
	if cfg.NIterPrint <= 0 {
		return nil, errors.New("n_iter_print must be > 0")
	}
	if cfg.Patience <= 0 {
		return nil, errors.New("patience must be > 0")
	}
	if cfg.ValidationCount <= 0 {
		cfg.ValidationCount = DefaultConfig().ValidationCount
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{cfg: cfg, log: log}, nil
}

// Run drives model through at most NIter steps. While warming
// (iteration < NIterMin) no checks happen; once monitoring, every NIterPrint
// iterations a validation sample is drawn and scored against reference. A
// non-improving check is a strike, an improving one resets strikes and records
// the best snapshot; Patience strikes stop training early. A failed draw or
// score is a strike, never a training failure. Step errors are fatal.
func (s *Supervisor) Run(ctx context.Context, model Trainable, reference table.Table, score ScoreFn) (Report, error) {
	if model == nil {
		return Report{}, errors.New("model is required")
	}
	if score == nil {
		return Report{}, errors.New("score function is required")
	}

	report := Report{BestScore: math.Inf(-1)}
	snapshotter, canSnapshot := model.(Snapshotter)
	var bestSnapshot any
	strikes := 0

	for iteration := 1; iteration <= s.cfg.NIter; iteration++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		if err := model.Step(ctx); err != nil {
			return Report{}, fmt.Errorf("training step %d: %w", iteration, err)
		}
		report.Iterations = iteration

		if iteration < s.cfg.NIterMin || iteration%s.cfg.NIterPrint != 0 {
			continue
		}

		check := Check{Iteration: iteration}
		value, err := s.scoreModel(ctx, model, reference, score)
		if err != nil {
			if ctx.Err() != nil {
				return Report{}, ctx.Err()
			}
			check.Failed = true
			strikes++
			s.log.Warn("validation check failed, counting as strike",
				zap.Int("iteration", iteration),
				zap.Int("strikes", strikes),
				zap.Error(err),
			)
		} else {
			check.Score = value
			if value > report.BestScore {
				check.Improved = true
				report.BestScore = value
				report.BestIteration = iteration
				strikes = 0
				if canSnapshot && s.cfg.RestoreBest {
					bestSnapshot = snapshotter.Snapshot()
				}
			} else {
				strikes++
			}
			s.log.Debug("validation check",
				zap.Int("iteration", iteration),
				zap.Float64("score", value),
				zap.Float64("best", report.BestScore),
				zap.Int("strikes", strikes),
			)
		}
		report.Checks = append(report.Checks, check)

		if strikes >= s.cfg.Patience {
			report.StoppedBy = StopPatience
			break
		}
	}
	if report.StoppedBy == "" {
		report.StoppedBy = StopCeiling
	}

	if bestSnapshot != nil {
		if err := snapshotter.Restore(bestSnapshot); err != nil {
			return Report{}, fmt.Errorf("restore best snapshot: %w", err)
		}
		report.RestoredBest = true
	}

	s.log.Info("training stopped",
		zap.Int("iterations", report.Iterations),
		zap.String("stopped_by", string(report.StoppedBy)),
		zap.Float64("best_score", report.BestScore),
		zap.Int("best_iteration", report.BestIteration),
		zap.Bool("restored_best", report.RestoredBest),
	)
	return report, nil
}

func (s *Supervisor) scoreModel(ctx context.Context, model Trainable, reference table.Table, score ScoreFn) (float64, error) {
	count := s.cfg.ValidationCount
	if count > reference.NumRows() && reference.NumRows() > 0 {
		count = reference.NumRows()
	}
	candidate, err := model.Generate(ctx, count)
	if err != nil {
		return 0, fmt.Errorf("validation draw: %w", err)
	}
	return score(ctx, candidate, reference)
}
