package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"synthflow/internal/dataset"
	"synthflow/internal/flow"
	"synthflow/internal/hyper"
	"synthflow/internal/metric"
	"synthflow/internal/sample"
	"synthflow/internal/table"
	"synthflow/internal/train"
)

// NFlowConfig carries every knob the normalizing-flow plugin accepts. The
// tunable subset is declared by NFlowHyperparameterSpace; the rest is plugin
// plumbing (engine variant, early stopping, holdout, seed).
type NFlowConfig struct {
	NIter                       int
	NLayersHidden               int
	NUnitsHidden                int
	BatchSize                   int
	NumTransformBlocks          int
	Dropout                     float64
	BatchNorm                   bool
	NumBins                     int
	TailBound                   float64
	LR                          float64
	ApplyUnconditionalTransform bool
	BaseDistribution            string
	LinearTransformType         string
	BaseTransformType           string
	EncoderMaxClusters          int
	Tabular                     bool

	NIterMin   int
	NIterPrint int
	Patience   int
	// PatienceMetric drives early stopping; nil selects the default
	// detection-family criterion.
	PatienceMetric metric.Metric

	HoldoutFraction float64
	Seed            int64
	Logger          *zap.Logger
}

func DefaultNFlowConfig() NFlowConfig {
	return NFlowConfig{
		NIter:                       1000,
		NLayersHidden:               1,
		NUnitsHidden:                100,
		BatchSize:                   500,
		NumTransformBlocks:          1,
		Dropout:                     0.1,
		BatchNorm:                   false,
		NumBins:                     8,
		TailBound:                   3,
		LR:                          1e-3,
		ApplyUnconditionalTransform: true,
		BaseDistribution:            flow.BaseDistributionStandardNormal,
		LinearTransformType:         flow.LinearTransformPermutation,
		BaseTransformType:           flow.BaseTransformRQAutoregressive,
		EncoderMaxClusters:          10,
		Tabular:                     true,
		NIterMin:                    100,
		NIterPrint:                  50,
		Patience:                    5,
		HoldoutFraction:             0.2,
	}
}

// NFlowHyperparameterSpace declares the tunable axes. It is independent of
// any plugin instance so tuners can sample configurations before construction,
// and its axis names round-trip as constructor override keys.
func NFlowHyperparameterSpace() hyper.Space {
	return hyper.Space{
		hyper.Integer{Axis: "n_iter", Low: 100, High: 5000, Step: 100},
		hyper.Integer{Axis: "n_layers_hidden", Low: 1, High: 10},
		hyper.Integer{Axis: "n_units_hidden", Low: 10, High: 100},
		hyper.Categorical{Axis: "batch_size", Choices: []any{32, 64, 128, 256, 512}},
		hyper.Float{Axis: "dropout", Low: 0, High: 0.2},
		hyper.Categorical{Axis: "batch_norm", Choices: []any{true, false}},
		hyper.Categorical{Axis: "lr", Choices: []any{1e-3, 1e-4, 2e-4}},
		hyper.Categorical{Axis: "linear_transform_type", Choices: []any{
			flow.LinearTransformLU,
			flow.LinearTransformPermutation,
			flow.LinearTransformSVD,
		}},
		hyper.Categorical{Axis: "base_transform_type", Choices: []any{
			flow.BaseTransformAffineCoupling,
			flow.BaseTransformQuadraticCoupling,
			flow.BaseTransformRQCoupling,
			flow.BaseTransformAffineAutoregressive,
			flow.BaseTransformQuadraticAutoregressive,
			flow.BaseTransformRQAutoregressive,
		}},
	}
}

// NFlow adapts the flow engine to the plugin lifecycle. It exclusively owns
// its trained model; each Fit discards the previous one.
type NFlow struct {
	cfg      NFlowConfig
	criteria metric.Metric
	log      *zap.Logger

	model  flow.Model
	report train.Report
}

// NewNFlow validates cfg eagerly: tunable values that differ from their
// defaults must fall inside the declared search domains, and every value must
// pass engine sanity checks. Defaults never fail validation.
func NewNFlow(cfg NFlowConfig) (*NFlow, error) {
	if err := validateTunables(cfg); err != nil {
		return nil, err
	}
	if cfg.NIter <= 0 {
		return nil, fmt.Errorf("%w: n_iter must be > 0", ErrConfiguration)
	}
	if cfg.NIterMin < 0 {
		return nil, fmt.Errorf("%w: n_iter_min must be >= 0", ErrConfiguration)
	}
	if cfg.NIterPrint <= 0 {
		return nil, fmt.Errorf("%w: n_iter_print must be > 0", ErrConfiguration)
	}
	if cfg.Patience <= 0 {
		return nil, fmt.Errorf("%w: patience must be > 0", ErrConfiguration)
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 1 {
		return nil, fmt.Errorf("%w: holdout fraction must be in (0, 1)", ErrConfiguration)
	}
	if err := engineConfig(cfg).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	criteria := cfg.PatienceMetric
	if criteria == nil {
		criteria = metric.DefaultPatienceMetric()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &NFlow{cfg: cfg, criteria: criteria, log: log}, nil
}

// NewNFlowWithOverrides builds the plugin from defaults plus tuner-supplied
// overrides keyed by hyperparameter axis name.
func NewNFlowWithOverrides(overrides map[string]any) (*NFlow, error) {
	cfg := DefaultNFlowConfig()
	if err := applyOverrides(&cfg, overrides); err != nil {
		return nil, err
	}
	return NewNFlow(cfg)
}

func (p *NFlow) Name() string { return "nflow" }

func (p *NFlow) Type() string { return "generic" }

func (p *NFlow) HyperparameterSpace() hyper.Space {
	return NFlowHyperparameterSpace()
}

func (p *NFlow) Fit(ctx context.Context, ds dataset.Dataset) error {
	trainTable, reference, err := ds.Split(p.cfg.HoldoutFraction, p.cfg.Seed)
	if err != nil {
		return err
	}

	var model flow.Model
	if p.cfg.Tabular {
		model, err = flow.NewTabularFlows(engineConfig(p.cfg))
	} else {
		model, err = flow.NewFlows(engineConfig(p.cfg))
	}
	if err != nil {
		return err
	}
	if err := model.Start(trainTable); err != nil {
		return fmt.Errorf("start training: %w", err)
	}

	supervisor, err := train.NewSupervisor(train.Config{
		NIter:       p.cfg.NIter,
		NIterMin:    p.cfg.NIterMin,
		NIterPrint:  p.cfg.NIterPrint,
		Patience:    p.cfg.Patience,
		RestoreBest: true,
		Logger:      p.log,
	})
	if err != nil {
		return err
	}
	report, err := supervisor.Run(ctx, model, reference, p.criteria.Score)
	if err != nil {
		return err
	}

	p.model = model
	p.report = report
	return nil
}

func (p *NFlow) Generate(ctx context.Context, count int, target table.Schema) (table.Table, sample.Stats, error) {
	if p.model == nil {
		return table.Table{}, sample.Stats{}, ErrNotFitted
	}
	raw, stats, err := sample.Draw(ctx, p.model, count)
	if err != nil {
		return table.Table{}, stats, err
	}
	filtered := target.MatchConstraints(raw)
	if stats.Short() {
		p.log.Warn("generation fell short of request",
			zap.Int("requested", stats.Requested),
			zap.Int("returned", stats.Returned),
			zap.Int("failures", stats.Failures),
		)
	}
	return filtered, stats, nil
}

// Report describes the most recent Fit's training run.
func (p *NFlow) Report() train.Report {
	return p.report
}

func engineConfig(cfg NFlowConfig) flow.Config {
	return flow.Config{
		NLayersHidden:               cfg.NLayersHidden,
		NUnitsHidden:                cfg.NUnitsHidden,
		BatchSize:                   cfg.BatchSize,
		NumTransformBlocks:          cfg.NumTransformBlocks,
		Dropout:                     cfg.Dropout,
		BatchNorm:                   cfg.BatchNorm,
		NumBins:                     cfg.NumBins,
		TailBound:                   cfg.TailBound,
		LR:                          cfg.LR,
		ApplyUnconditionalTransform: cfg.ApplyUnconditionalTransform,
		BaseDistribution:            cfg.BaseDistribution,
		LinearTransformType:         cfg.LinearTransformType,
		BaseTransformType:           cfg.BaseTransformType,
		EncoderMaxClusters:          cfg.EncoderMaxClusters,
		Seed:                        cfg.Seed,
	}
}

// validateTunables checks each tunable value that differs from its default
// against the declared axis domain.
func validateTunables(cfg NFlowConfig) error {
	defaults := DefaultNFlowConfig()
	space := NFlowHyperparameterSpace()
	supplied := map[string]any{}

	if cfg.NIter != defaults.NIter {
		supplied["n_iter"] = cfg.NIter
	}
	if cfg.NLayersHidden != defaults.NLayersHidden {
		supplied["n_layers_hidden"] = cfg.NLayersHidden
	}
	if cfg.NUnitsHidden != defaults.NUnitsHidden {
		supplied["n_units_hidden"] = cfg.NUnitsHidden
	}
	if cfg.BatchSize != defaults.BatchSize {
		supplied["batch_size"] = cfg.BatchSize
	}
	if cfg.Dropout != defaults.Dropout {
		supplied["dropout"] = cfg.Dropout
	}
	if cfg.BatchNorm != defaults.BatchNorm {
		supplied["batch_norm"] = cfg.BatchNorm
	}
	if cfg.LR != defaults.LR {
		supplied["lr"] = cfg.LR
	}
	if cfg.LinearTransformType != defaults.LinearTransformType {
		supplied["linear_transform_type"] = cfg.LinearTransformType
	}
	if cfg.BaseTransformType != defaults.BaseTransformType {
		supplied["base_transform_type"] = cfg.BaseTransformType
	}

	if err := space.CheckValues(supplied); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

func applyOverrides(cfg *NFlowConfig, overrides map[string]any) error {
	for name, value := range overrides {
		switch name {
		case "n_iter":
			v, ok := asInt(value)
			if !ok {
				return fmt.Errorf("%w: n_iter must be an integer, got %T", ErrConfiguration, value)
			}
			cfg.NIter = v
		case "n_layers_hidden":
			v, ok := asInt(value)
			if !ok {
				return fmt.Errorf("%w: n_layers_hidden must be an integer, got %T", ErrConfiguration, value)
			}
			cfg.NLayersHidden = v
		case "n_units_hidden":
			v, ok := asInt(value)
			if !ok {
				return fmt.Errorf("%w: n_units_hidden must be an integer, got %T", ErrConfiguration, value)
			}
			cfg.NUnitsHidden = v
		case "batch_size":
			v, ok := asInt(value)
			if !ok {
				return fmt.Errorf("%w: batch_size must be an integer, got %T", ErrConfiguration, value)
			}
			cfg.BatchSize = v
		case "dropout":
			v, ok := asFloat(value)
			if !ok {
				return fmt.Errorf("%w: dropout must be a number, got %T", ErrConfiguration, value)
			}
			cfg.Dropout = v
		case "batch_norm":
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("%w: batch_norm must be a bool, got %T", ErrConfiguration, value)
			}
			cfg.BatchNorm = v
		case "lr":
			v, ok := asFloat(value)
			if !ok {
				return fmt.Errorf("%w: lr must be a number, got %T", ErrConfiguration, value)
			}
			cfg.LR = v
		case "linear_transform_type":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: linear_transform_type must be a string, got %T", ErrConfiguration, value)
			}
			cfg.LinearTransformType = v
		case "base_transform_type":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: base_transform_type must be a string, got %T", ErrConfiguration, value)
			}
			cfg.BaseTransformType = v
		default:
			return fmt.Errorf("%w: unknown hyperparameter: %s", ErrConfiguration, name)
		}
	}
	return nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
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
