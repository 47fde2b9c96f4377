package storage

import (
	"context"
	"sort"
	"sync"

	"synthflow/internal/model"
)

type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]model.RunRecord
	history map[string][]model.ScoreCheck
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]model.RunRecord),
		history: make(map[string][]model.ScoreCheck),
	}
}

// Init is idempotent; the in-memory backend needs no setup.
func (s *MemoryStore) Init(_ context.Context) error {
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func (s *MemoryStore) SaveScoreHistory(_ context.Context, runID string, checks []model.ScoreCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.ScoreCheck, len(checks))
	copy(copied, checks)
	s.history[runID] = copied
	return nil
}

func (s *MemoryStore) GetScoreHistory(_ context.Context, runID string) ([]model.ScoreCheck, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checks, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.ScoreCheck, len(checks))
	copy(copied, checks)
	return copied, true, nil
}
