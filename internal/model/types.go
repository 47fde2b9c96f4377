package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one fit+generate run.
type RunRecord struct {
	VersionedRecord
	ID            string         `json:"id"`
	Plugin        string         `json:"plugin"`
	CreatedAtUTC  string         `json:"created_at_utc"`
	Seed          int64          `json:"seed"`
	Overrides     map[string]any `json:"overrides,omitempty"`
	TrainRows     int            `json:"train_rows"`
	Iterations    int            `json:"iterations"`
	BestScore     float64        `json:"best_score"`
	BestIteration int            `json:"best_iteration"`
	StoppedBy     string         `json:"stopped_by"`
	Requested     int            `json:"requested"`
	Returned      int            `json:"returned"`
	Attempts      int            `json:"attempts"`
	Failures      int            `json:"failures"`
}

// ScoreCheck is one early-stopping validation check.
type ScoreCheck struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Improved  bool    `json:"improved"`
	Failed    bool    `json:"failed"`
}
