package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	benchFile = "bench.json"
)

// BenchState records what the last bench run created on a server.
type BenchState struct {
	// Target is the API URL the run was made against.
	Target string `json:"target"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Categories are the created category names, parents before children.
	Categories []string `json:"categories"`
}

// LoadBenchState loads the bench state from a target .warren/bench.json.
// Returns nil, nil if no bench state exists.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadBenchState(overrideDir string) (*BenchState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	path := filepath.Join(dir, benchFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading bench state: %w", err)
	}

	state := &BenchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing bench state: %w", err)
	}

	return state, nil
}

// SaveBenchState persists the bench state to a target .warren/bench.json,
// creating ~/.warren/ if needed.
func (m *Manager) SaveBenchState(state *BenchState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil bench state")
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bench state: %w", err)
	}

	path := filepath.Join(dir, benchFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing bench state: %w", err)
	}

	return nil
}

// ClearBenchState removes the bench state file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearBenchState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	path := filepath.Join(dir, benchFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing bench state: %w", err)
	}

	return nil
}
