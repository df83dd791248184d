package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Manifest is the run.json metadata file dropped alongside a trial's
// CSV outputs. spec.md's trialIndex is a plain per-process integer;
// this UUID disambiguates two trials that reuse the same trialIndex
// across process restarts.
type Manifest struct {
	RunID      string    `json:"runId"`
	TrialIndex int       `json:"trialIndex"`
	StartedAt  time.Time `json:"startedAt"`
}

// NewManifest stamps a fresh run UUID for trialIndex.
func NewManifest(trialIndex int, startedAt time.Time) Manifest {
	return Manifest{RunID: uuid.NewString(), TrialIndex: trialIndex, StartedAt: startedAt}
}

// WriteTo writes run.json into dir, creating dir if necessary.
func (m Manifest) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("reports: creating report directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("reports: marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "run.json"), data, 0o644)
}
