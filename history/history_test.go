package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowmesh/workflow"
)

func sampleRecord(runID string, started time.Time) *RunRecord {
	return &RunRecord{
		RunID:    runID,
		Workflow: "demo",
		TraceID:  "trace-" + runID,
		Input:    "hello",
		Output:   "world",
		Status:   "completed",
		Steps: []workflow.Step{
			{Kind: workflow.StepWorkflowBuilt, Status: "success"},
			{Kind: workflow.StepExecutionCompleted, Status: "success", OutputLength: 5},
		},
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleRecord("run-1", base)))
	require.NoError(t, s.Save(ctx, sampleRecord("run-2", base.Add(time.Minute))))

	rec, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Workflow)
	assert.Equal(t, "world", rec.Output)
	require.Len(t, rec.Steps, 2)
	assert.Equal(t, workflow.StepExecutionCompleted, rec.Steps[1].Kind)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Most recent first.
	assert.Equal(t, "run-2", recs[0].RunID)

	recs, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-2", recs[0].RunID)

	// Saving again replaces the record.
	updated := sampleRecord("run-1", base)
	updated.Status = "failed"
	updated.Error = "boom"
	require.NoError(t, s.Save(ctx, updated))

	rec, err = s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", rec.Status)
	assert.Equal(t, "boom", rec.Error)
}

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	testStore(t, s)
}

func TestInMemoryStore_CopiesOnRead(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRecord("run-1", time.Now())))

	rec, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	rec.Steps[0].Kind = workflow.StepExecutionFailed

	again, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StepWorkflowBuilt, again.Steps[0].Kind)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	testStore(t, s)
}

func TestSQLiteStore_Closed(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Save(context.Background(), sampleRecord("run-1", time.Now()))
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = s.Get(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrStoreClosed)
}
