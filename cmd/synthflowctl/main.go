package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"synthflow/internal/storage"
	"synthflow/pkg/synthflow"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "plugins":
		return runPlugins(ctx, args[1:])
	case "space":
		return runSpace(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "synthflow.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := synthflow.New(synthflow.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runPlugins(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("plugins", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := synthflow.New(synthflow.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for _, name := range client.Plugins() {
		fmt.Println(name)
	}
	return nil
}

func runSpace(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("space", flag.ContinueOnError)
	pluginName := fs.String("plugin", "nflow", "plugin name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := synthflow.New(synthflow.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	space, err := client.Space(*pluginName)
	if err != nil {
		return err
	}

	out := make([]map[string]any, 0, len(space))
	for _, spec := range space {
		out = append(out, map[string]any{"axis": spec.Name()})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	pluginName := fs.String("plugin", "nflow", "plugin name")
	csvPath := fs.String("csv", "", "training data CSV path")
	count := fs.Int("count", 1000, "rows to generate")
	seed := fs.Int64("seed", 1, "rng seed")
	overridesJSON := fs.String("overrides", "", "hyperparameter overrides as a JSON object")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "synthflow.db", "sqlite database path")
	runsDir := fs.String("runs-dir", "runs", "run artifacts directory")
	verbose := fs.Bool("verbose", false, "log training progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" {
		return usageError("run requires -csv")
	}

	var overrides map[string]any
	if *overridesJSON != "" {
		if err := json.Unmarshal([]byte(*overridesJSON), &overrides); err != nil {
			return fmt.Errorf("parse overrides: %w", err)
		}
	}

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() {
			_ = log.Sync()
		}()
	}

	client, err := synthflow.New(synthflow.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		RunsDir:   *runsDir,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, synthflow.RunRequest{
		Plugin:    *pluginName,
		CSVPath:   *csvPath,
		Count:     *count,
		Overrides: overrides,
		Seed:      *seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run=%s plugin=%s iterations=%d stopped_by=%s best_score=%.4f returned=%d/%d artifacts=%s\n",
		summary.RunID, *pluginName, summary.Iterations, summary.StoppedBy,
		summary.BestScore, summary.Returned, summary.Requested, summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum rows to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "synthflow.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := synthflow.New(synthflow.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, synthflow.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	if err := table.Append([]string{"RUN", "CREATED", "PLUGIN", "SEED", "TRAIN", "RETURNED", "BEST", "STOPPED"}); err != nil {
		return err
	}
	for _, item := range items {
		if err := table.Append([]string{
			item.RunID,
			item.CreatedAtUTC,
			item.Plugin,
			strconv.FormatInt(item.Seed, 10),
			strconv.Itoa(item.TrainRows),
			fmt.Sprintf("%d/%d", item.Returned, item.Requested),
			strconv.FormatFloat(item.BestScore, 'f', 4, 64),
			item.StoppedBy,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to export")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "export output directory")
	runsDir := fs.String("runs-dir", "runs", "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := synthflow.New(synthflow.Options{StoreKind: "memory", RunsDir: *runsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, synthflow.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: synthflowctl <init|plugins|space|run|runs|export> [flags]", msg)
}
