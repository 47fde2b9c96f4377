// Package synthflow is the embedding API for the synthetic data framework:
// resolve a plugin, fit it on tabular data, draw synthetic rows, and persist
// the run to the store and the artifacts directory.
package synthflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"synthflow/internal/dataset"
	"synthflow/internal/hyper"
	"synthflow/internal/model"
	"synthflow/internal/plugin"
	"synthflow/internal/stats"
	"synthflow/internal/storage"
	"synthflow/internal/table"
	"synthflow/internal/train"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "synthflow.db"
	defaultCount      = 1000
	previewRows       = 10
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *zap.Logger
}

type Client struct {
	store storage.Store
	log   *zap.Logger

	storeKind  string
	runsDir    string
	exportsDir string
}

type RunRequest struct {
	Plugin    string
	CSVPath   string
	Count     int
	Overrides map[string]any
	Seed      int64
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	TrainRows    int
	Requested    int
	Returned     int
	Attempts     int
	Failures     int
	Iterations   int
	BestScore    float64
	StoppedBy    string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Plugin       string
	Seed         int64
	TrainRows    int
	Requested    int
	Returned     int
	BestScore    float64
	StoppedBy    string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	if err := plugin.RegisterBuiltins(); err != nil {
		return nil, err
	}

	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		log:        log,
		storeKind:  storeKind,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Plugins lists registered plugin names.
func (c *Client) Plugins() []string {
	return plugin.List()
}

// Space returns the hyperparameter search space a plugin declares.
func (c *Client) Space(name string) (hyper.Space, error) {
	p, err := plugin.Resolve(name, nil, plugin.Runtime{})
	if err != nil {
		return nil, err
	}
	return p.HyperparameterSpace(), nil
}

// trainReporter is implemented by plugins that expose their most recent
// training report.
type trainReporter interface {
	Report() train.Report
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Plugin == "" {
		req.Plugin = "nflow"
	}
	if req.Count <= 0 {
		req.Count = defaultCount
	}
	if req.CSVPath == "" {
		return RunSummary{}, errors.New("csv path is required")
	}

	ds, err := dataset.FromCSV(req.CSVPath)
	if err != nil {
		return RunSummary{}, err
	}

	p, err := plugin.Resolve(req.Plugin, req.Overrides, plugin.Runtime{
		Seed:   req.Seed,
		Logger: c.log,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := c.store.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	if err := p.Fit(ctx, ds); err != nil {
		return RunSummary{}, fmt.Errorf("fit %s: %w", req.Plugin, err)
	}

	target, err := table.InferSchema(ds.Table())
	if err != nil {
		return RunSummary{}, err
	}
	generated, drawStats, err := p.Generate(ctx, req.Count, target)
	if err != nil {
		return RunSummary{}, fmt.Errorf("generate %s: %w", req.Plugin, err)
	}

	var report train.Report
	if reporter, ok := p.(trainReporter); ok {
		report = reporter.Report()
	}

	runID := uuid.NewString()
	now := time.Now().UTC()
	createdAt := now.Format(time.RFC3339Nano)

	record := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:            runID,
		Plugin:        req.Plugin,
		CreatedAtUTC:  createdAt,
		Seed:          req.Seed,
		Overrides:     req.Overrides,
		TrainRows:     ds.NumRows(),
		Iterations:    report.Iterations,
		BestScore:     report.BestScore,
		BestIteration: report.BestIteration,
		StoppedBy:     string(report.StoppedBy),
		Requested:     drawStats.Requested,
		Returned:      drawStats.Returned,
		Attempts:      drawStats.Attempts,
		Failures:      drawStats.Failures,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}

	checks := scoreChecks(report)
	if err := c.store.SaveScoreHistory(ctx, runID, checks); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         runID,
			Plugin:        req.Plugin,
			PluginType:    p.Type(),
			CSVPath:       req.CSVPath,
			TrainRows:     ds.NumRows(),
			GenerateCount: req.Count,
			Overrides:     req.Overrides,
			Seed:          req.Seed,
			StoreKind:     c.storeKind,
		},
		ScoreHistory: checks,
		GenerateStats: stats.GenerateStats{
			Requested: drawStats.Requested,
			Returned:  drawStats.Returned,
			Attempts:  drawStats.Attempts,
			Failures:  drawStats.Failures,
			Short:     drawStats.Short(),
		},
		Preview: previewOf(generated),
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:        runID,
		Plugin:       req.Plugin,
		TrainRows:    ds.NumRows(),
		Requested:    drawStats.Requested,
		Returned:     drawStats.Returned,
		BestScore:    report.BestScore,
		StoppedBy:    string(report.StoppedBy),
		Seed:         req.Seed,
		CreatedAtUTC: createdAt,
	}); err != nil {
		return RunSummary{}, err
	}

	c.log.Info("run complete",
		zap.String("run_id", runID),
		zap.String("plugin", req.Plugin),
		zap.Int("train_rows", ds.NumRows()),
		zap.Int("requested", drawStats.Requested),
		zap.Int("returned", drawStats.Returned),
		zap.Float64("best_score", report.BestScore),
	)

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		TrainRows:    ds.NumRows(),
		Requested:    drawStats.Requested,
		Returned:     drawStats.Returned,
		Attempts:     drawStats.Attempts,
		Failures:     drawStats.Failures,
		Iterations:   report.Iterations,
		BestScore:    report.BestScore,
		StoppedBy:    string(report.StoppedBy),
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}

	out := make([]RunItem, 0, len(records))
	for _, r := range records {
		out = append(out, RunItem{
			RunID:        r.ID,
			CreatedAtUTC: r.CreatedAtUTC,
			Plugin:       r.Plugin,
			Seed:         r.Seed,
			TrainRows:    r.TrainRows,
			Requested:    r.Requested,
			Returned:     r.Returned,
			BestScore:    r.BestScore,
			StoppedBy:    r.StoppedBy,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func scoreChecks(report train.Report) []model.ScoreCheck {
	checks := make([]model.ScoreCheck, 0, len(report.Checks))
	for _, check := range report.Checks {
		checks = append(checks, model.ScoreCheck{
			Iteration: check.Iteration,
			Score:     check.Score,
			Improved:  check.Improved,
			Failed:    check.Failed,
		})
	}
	return checks
}

func previewOf(t table.Table) stats.Preview {
	head := t.Head(previewRows)
	rows := make([][]any, 0, head.NumRows())
	for i := 0; i < head.NumRows(); i++ {
		rows = append(rows, head.Row(i))
	}
	return stats.Preview{Columns: t.Columns(), Rows: rows}
}
