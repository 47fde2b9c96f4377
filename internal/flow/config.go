// Package flow implements the trainable density model behind the nflow
// plugin: an invertible-flow-shaped engine exposed through a small train and
// sample capability surface. The numeric core is a moment-matching surrogate;
// the training and sampling contract around it is the load-bearing part.
package flow

import (
	"errors"
	"fmt"
)

const (
	BaseDistributionStandardNormal = "standard_normal"

	LinearTransformLU          = "lu"
	LinearTransformPermutation = "permutation"
	LinearTransformSVD         = "svd"

	BaseTransformAffineCoupling          = "affine-coupling"
	BaseTransformQuadraticCoupling       = "quadratic-coupling"
	BaseTransformRQCoupling              = "rq-coupling"
	BaseTransformAffineAutoregressive    = "affine-autoregressive"
	BaseTransformQuadraticAutoregressive = "quadratic-autoregressive"
	BaseTransformRQAutoregressive        = "rq-autoregressive"
)

// ErrGeneration marks a transient per-batch sampling failure. The draw loop
// absorbs errors carrying this sentinel and propagates everything else.
var ErrGeneration = errors.New("generation failed")

func LinearTransformTypes() []string {
	return []string{LinearTransformLU, LinearTransformPermutation, LinearTransformSVD}
}

func BaseTransformTypes() []string {
	return []string{
		BaseTransformAffineCoupling,
		BaseTransformQuadraticCoupling,
		BaseTransformRQCoupling,
		BaseTransformAffineAutoregressive,
		BaseTransformQuadraticAutoregressive,
		BaseTransformRQAutoregressive,
	}
}

type Config struct {
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
	Seed                        int64
}

func DefaultConfig() Config {
	return Config{
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
		BaseDistribution:            BaseDistributionStandardNormal,
		LinearTransformType:         LinearTransformPermutation,
		BaseTransformType:           BaseTransformRQAutoregressive,
		EncoderMaxClusters:          10,
	}
}

func (c Config) Validate() error {
	if c.NLayersHidden <= 0 {
		return errors.New("n_layers_hidden must be > 0")
	}
	if c.NUnitsHidden <= 0 {
		return errors.New("n_units_hidden must be > 0")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch_size must be > 0")
	}
	if c.NumTransformBlocks <= 0 {
		return errors.New("num_transform_blocks must be > 0")
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return errors.New("dropout must be in [0, 1)")
	}
	if c.NumBins <= 0 {
		return errors.New("num_bins must be > 0")
	}
	if c.TailBound <= 0 {
		return errors.New("tail_bound must be > 0")
	}
	if c.LR <= 0 {
		return errors.New("lr must be > 0")
	}
	if c.BaseDistribution != BaseDistributionStandardNormal {
		return fmt.Errorf("unsupported base distribution: %s", c.BaseDistribution)
	}
	if !contains(LinearTransformTypes(), c.LinearTransformType) {
		return fmt.Errorf("unsupported linear transform type: %s", c.LinearTransformType)
	}
	if !contains(BaseTransformTypes(), c.BaseTransformType) {
		return fmt.Errorf("unsupported base transform type: %s", c.BaseTransformType)
	}
	if c.EncoderMaxClusters <= 0 {
		return errors.New("encoder_max_clusters must be > 0")
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
