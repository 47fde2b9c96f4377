package storage

import (
	"context"

	"synthflow/internal/model"
)

// Store defines persistence for run records and their score histories.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveScoreHistory(ctx context.Context, runID string, checks []model.ScoreCheck) error
	GetScoreHistory(ctx context.Context, runID string) ([]model.ScoreCheck, bool, error)
}
