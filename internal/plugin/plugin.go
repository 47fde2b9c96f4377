// Package plugin defines the fit/generate lifecycle contract the host
// framework drives, and the registry plugins are looked up from.
package plugin

import (
	"context"
	"errors"

	"synthflow/internal/dataset"
	"synthflow/internal/hyper"
	"synthflow/internal/sample"
	"synthflow/internal/table"
)

var (
	// ErrConfiguration marks a supplied hyperparameter value outside its
	// declared domain. Raised at construction, never during training.
	ErrConfiguration = errors.New("invalid configuration")
	ErrNotFitted     = errors.New("plugin is not fitted")
)

// Plugin is a generative model behind the uniform fit/generate contract.
// Fit replaces the plugin's owned model; concurrent Fit calls on one plugin
// are not safe (single-writer discipline, documented precondition). Generate
// is read-only with respect to the fitted model.
type Plugin interface {
	Name() string
	Type() string
	HyperparameterSpace() hyper.Space
	Fit(ctx context.Context, ds dataset.Dataset) error
	Generate(ctx context.Context, count int, target table.Schema) (table.Table, sample.Stats, error)
}
