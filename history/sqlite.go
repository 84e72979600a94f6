package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/hupe1980/flowmesh/workflow"
)

// SQLiteStore persists run records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite run store.
// The path should be a file path (e.g., "./flowmesh.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT NOT NULL PRIMARY KEY,
			workflow TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL,
			steps BLOB NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON runs(started_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow, trace_id, input, output, status, error, steps, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			workflow = excluded.workflow,
			trace_id = excluded.trace_id,
			input = excluded.input,
			output = excluded.output,
			status = excluded.status,
			error = excluded.error,
			steps = excluded.steps,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at
	`, rec.RunID, rec.Workflow, rec.TraceID, rec.Input, rec.Output, rec.Status, rec.Error,
		steps,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.EndedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, workflow, trace_id, input, output, status, error, steps, started_at, ended_at
		FROM runs
		WHERE run_id = ?
	`, runID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return rec, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT run_id, workflow, trace_id, input, output, status, error, steps, started_at, ended_at
		FROM runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var recs []*RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return recs, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*RunRecord, error) {
	var (
		rec     RunRecord
		steps   []byte
		started string
		ended   string
	)

	if err := row.Scan(&rec.RunID, &rec.Workflow, &rec.TraceID, &rec.Input, &rec.Output,
		&rec.Status, &rec.Error, &steps, &started, &ended); err != nil {
		return nil, err
	}

	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &rec.Steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
	}
	if rec.Steps == nil {
		rec.Steps = []workflow.Step{}
	}

	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	rec.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)

	return &rec, nil
}
