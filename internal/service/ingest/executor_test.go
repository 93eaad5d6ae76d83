package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftline/internal/domain"
)

func TestExecutorProcessesQueuedFolders(t *testing.T) {
	h := newIngestHarness(t)
	exec := NewExecutor(h.svc, 2, 8, discardLogger())
	h.svc.SetExecutor(exec)
	exec.Start(context.Background())
	t.Cleanup(exec.Stop)

	h.createDataset(t, "orders", nil)
	h.seedFolder("orders", "2024-01-02-00-00-00", map[string]string{"part-1.csv": ordersCSV})

	scan, err := h.svc.TriggerDataset(context.Background(), "orders", false)
	require.NoError(t, err)
	require.Len(t, scan.RunIDs, 1)

	runID := scan.RunIDs[0]
	require.Eventually(t, func() bool {
		run, err := h.runs.Get(context.Background(), runID)
		return err == nil && run.Status == domain.RunStatusSuccess
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, "2024-01-02-00-00-00", h.watermarkTS(t, "orders"))
}

func TestExecutorRejectsWhenQueueFull(t *testing.T) {
	h := newIngestHarness(t)
	// Not started, so nothing drains the one-slot queue.
	exec := NewExecutor(h.svc, 1, 1, discardLogger())
	h.svc.SetExecutor(exec)
	t.Cleanup(exec.Stop)

	h.createDataset(t, "orders", nil)
	h.createDataset(t, "refunds", nil)
	h.seedFolder("orders", "2024-01-02-00-00-00", map[string]string{"part-1.csv": ordersCSV})
	h.seedFolder("refunds", "2024-01-02-00-00-00", map[string]string{"part-1.csv": ordersCSV})

	_, err := h.svc.TriggerDataset(context.Background(), "orders", false)
	require.NoError(t, err)

	scan, err := h.svc.TriggerDataset(context.Background(), "refunds", false)
	require.NoError(t, err)
	require.Len(t, scan.RunIDs, 1)

	run, err := h.runs.Get(context.Background(), scan.RunIDs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSkipped, run.Status)
	require.NotNil(t, run.ErrorMessage)
	assert.Contains(t, *run.ErrorMessage, "queue full")

	// The rejected folder is free to be claimed by the next scan.
	assert.True(t, h.svc.claimInflight("refunds", "2024-01-02-00-00-00"))
}

func TestExecutorSubmitAfterStop(t *testing.T) {
	h := newIngestHarness(t)
	exec := NewExecutor(h.svc, 1, 4, discardLogger())
	exec.Start(context.Background())
	exec.Stop()

	err := exec.Submit(folderJob{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped")
}

func TestExecutorStopCancelsInflightRuns(t *testing.T) {
	h := newIngestHarness(t)
	h.landing.getBlocks = true

	exec := NewExecutor(h.svc, 1, 4, discardLogger())
	h.svc.SetExecutor(exec)
	exec.Start(context.Background())

	h.createDataset(t, "orders", nil)
	h.seedFolder("orders", "2024-01-02-00-00-00", map[string]string{"part-1.csv": ordersCSV})

	scan, err := h.svc.TriggerDataset(context.Background(), "orders", false)
	require.NoError(t, err)
	require.Len(t, scan.RunIDs, 1)
	runID := scan.RunIDs[0]

	// Wait for the worker to pick the job up and block on the download.
	require.Eventually(t, func() bool {
		run, err := h.runs.Get(context.Background(), runID)
		return err == nil && run.Status == domain.RunStatusRunning
	}, 3*time.Second, 20*time.Millisecond)

	exec.Stop()

	run, err := h.runs.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, run.Status)
	assert.Empty(t, h.watermarkTS(t, "orders"))
}
