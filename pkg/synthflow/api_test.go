package synthflow

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTrainingCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,city\n")
	for i := 0; i < 60; i++ {
		city := "oslo"
		if i%3 == 0 {
			city = "bergen"
		}
		b.WriteString(strconv.Itoa(20+i%30) + "," + city + "\n")
	}
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:  "memory",
		RunsDir:    filepath.Join(t.TempDir(), "runs"),
		ExportsDir: filepath.Join(t.TempDir(), "exports"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientPluginsAndSpace(t *testing.T) {
	client := newTestClient(t)

	require.Contains(t, client.Plugins(), "nflow")

	space, err := client.Space("nflow")
	require.NoError(t, err)
	require.NotEmpty(t, space)

	_, err = client.Space("missing")
	require.Error(t, err)
}

func TestClientRunPersistsEverything(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	csvPath := writeTrainingCSV(t)

	summary, err := client.Run(ctx, RunRequest{
		CSVPath:   csvPath,
		Count:     40,
		Seed:      7,
		Overrides: map[string]any{"n_iter": 200},
	})
	require.NoError(t, err)

	require.NotEmpty(t, summary.RunID)
	require.Equal(t, 60, summary.TrainRows)
	require.Equal(t, 40, summary.Requested)
	require.Positive(t, summary.Iterations)
	require.NotEmpty(t, summary.StoppedBy)

	for _, file := range []string{"config.json", "score_history.json", "generate_stats.json", "preview.json"} {
		_, err := os.Stat(filepath.Join(summary.ArtifactsDir, file))
		require.NoError(t, err, file)
	}

	items, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, summary.RunID, items[0].RunID)
	require.Equal(t, "nflow", items[0].Plugin)

	export, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	require.Equal(t, summary.RunID, export.RunID)
	_, err = os.Stat(filepath.Join(export.Directory, "config.json"))
	require.NoError(t, err)
}

func TestClientRunValidation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Run(ctx, RunRequest{})
	require.Error(t, err)

	_, err = client.Run(ctx, RunRequest{CSVPath: writeTrainingCSV(t), Overrides: map[string]any{"dropout": 0.9}})
	require.ErrorContains(t, err, "configuration")
}

func TestClientExportRequiresSelector(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Export(ctx, ExportRequest{})
	require.Error(t, err)

	_, err = client.Export(ctx, ExportRequest{RunID: "x", Latest: true})
	require.Error(t, err)
}
