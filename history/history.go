// Package history records completed workflow runs so callers can inspect a
// run's outcome and full step log after the fact. The in-memory store backs
// tests and ephemeral deployments; the SQLite store survives restarts.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/flowmesh/workflow"
)

// ErrNotFound is returned when a run id does not exist in the store.
var ErrNotFound = errors.New("run not found")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// RunRecord is the persisted outcome of one workflow run.
type RunRecord struct {
	RunID     string          `json:"run_id"`
	Workflow  string          `json:"workflow"`
	TraceID   string          `json:"trace_id,omitempty"`
	Input     string          `json:"input"`
	Output    string          `json:"output"`
	Status    string          `json:"status"` // completed or failed
	Error     string          `json:"error,omitempty"`
	Steps     []workflow.Step `json:"execution_steps"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

// Store persists run records.
type Store interface {
	// Save stores a run record, replacing any record with the same run id.
	Save(ctx context.Context, rec *RunRecord) error

	// Get returns the record for runID, or ErrNotFound.
	Get(ctx context.Context, runID string) (*RunRecord, error)

	// List returns up to limit records, most recent first. limit <= 0 means
	// no limit.
	List(ctx context.Context, limit int) ([]*RunRecord, error)

	// Close releases store resources.
	Close() error
}
