// Package stats persists per-run JSON artifacts alongside the store: the run
// configuration, the early-stopping score history, generation statistics, and
// a preview of generated rows.
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"synthflow/internal/model"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID           string         `json:"run_id"`
	Plugin          string         `json:"plugin"`
	PluginType      string         `json:"plugin_type,omitempty"`
	CSVPath         string         `json:"csv_path,omitempty"`
	TrainRows       int            `json:"train_rows"`
	GenerateCount   int            `json:"generate_count"`
	Overrides       map[string]any `json:"overrides,omitempty"`
	Seed            int64          `json:"seed"`
	StoreKind       string         `json:"store_kind,omitempty"`
	HoldoutFraction float64        `json:"holdout_fraction,omitempty"`
}

type GenerateStats struct {
	Requested int  `json:"requested"`
	Returned  int  `json:"returned"`
	Attempts  int  `json:"attempts"`
	Failures  int  `json:"failures"`
	Short     bool `json:"short"`
}

type Preview struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type RunArtifacts struct {
	Config        RunConfig          `json:"config"`
	ScoreHistory  []model.ScoreCheck `json:"score_history,omitempty"`
	GenerateStats GenerateStats      `json:"generate_stats"`
	Preview       Preview            `json:"preview"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Plugin       string  `json:"plugin"`
	TrainRows    int     `json:"train_rows"`
	Requested    int     `json:"requested"`
	Returned     int     `json:"returned"`
	BestScore    float64 `json:"best_score"`
	StoppedBy    string  `json:"stopped_by,omitempty"`
	Seed         int64   `json:"seed"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "score_history.json"), artifacts.ScoreHistory); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generate_stats.json"), artifacts.GenerateStats); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "preview.json"), artifacts.Preview); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "score_history.json", "generate_stats.json", "preview.json"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

func ReadScoreHistory(baseDir, runID string) ([]model.ScoreCheck, bool, error) {
	path := filepath.Join(baseDir, runID, "score_history.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var checks []model.ScoreCheck
	if err := json.Unmarshal(data, &checks); err != nil {
		return nil, false, err
	}
	return checks, true, nil
}

func ReadPreview(baseDir, runID string) (Preview, bool, error) {
	path := filepath.Join(baseDir, runID, "preview.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Preview{}, false, nil
		}
		return Preview{}, false, err
	}

	var preview Preview
	if err := json.Unmarshal(data, &preview); err != nil {
		return Preview{}, false, err
	}
	return preview, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
