package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// RecordFileName is the audit record written into the scratch
	// directory, where the CI system collects it as a build artifact.
	RecordFileName = "trampoline.run.json"

	RecordSchemaVersion = "1.0"
)

// RunRecord is the audit trail of a single trampoline run.
type RunRecord struct {
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Image         string    `json:"image"`
	CommitSHA     string    `json:"commit_sha,omitempty"`
	Pulled        bool      `json:"pulled"`
	Built         bool      `json:"built"`
	Published     bool      `json:"published"`
	// FailedStage names the stage that aborted the run before the
	// container's exit code was determined. Empty for completed runs.
	FailedStage string    `json:"failed_stage,omitempty"`
	ExitCode    int       `json:"exit_code"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// newRecord creates the record for a fresh run.
func newRecord(image, commitSHA string) *RunRecord {
	return &RunRecord{
		SchemaVersion: RecordSchemaVersion,
		RunID:         uuid.New().String(),
		Image:         image,
		CommitSHA:     commitSHA,
		StartedAt:     time.Now(),
	}
}

// save persists the record into dir. The scratch directory outlives the
// process, so a failed write loses only the audit trail, never the run.
func (r *RunRecord) save(dir string) error {
	r.FinishedAt = time.Now()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	path := filepath.Join(dir, RecordFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	return nil
}

// loadRecord reads a previously written record, used by CI tooling and
// tests to inspect a finished run.
func loadRecord(dir string) (*RunRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, RecordFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse run record: %w", err)
	}

	return &record, nil
}
