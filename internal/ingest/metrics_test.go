package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotComputesRateAndETA(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMetrics("b1", 10, start)
	for i := 0; i < 4; i++ {
		m.RecordCompleted()
	}
	m.RecordSkipped()
	m.RecordFailed()

	snap := m.Snapshot(start.Add(2 * time.Second))
	assert.Equal(t, 10, snap.Total)
	assert.Equal(t, 4, snap.Completed)
	assert.Equal(t, 1, snap.Skipped)
	assert.Equal(t, 1, snap.Failed)
	assert.InDelta(t, 2.0, snap.RatePerSecond, 0.0001)
	assert.InDelta(t, 2.5, snap.ETASeconds, 0.0001)
	assert.InDelta(t, 50.0, snap.PercentComplete, 0.0001)
}

func TestSnapshotETAIsZeroBeforeAnyCompletion(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMetrics("b1", 10, start)
	snap := m.Snapshot(start.Add(time.Second))
	assert.Equal(t, 0.0, snap.RatePerSecond)
	assert.Equal(t, 0.0, snap.ETASeconds)
}

func TestSnapshotWriteFilePersistsJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMetrics("b1", 2, start)
	m.RecordCompleted()
	snap := m.Snapshot(start.Add(time.Second))

	path := filepath.Join(t.TempDir(), "ingest_metrics.json")
	require.NoError(t, snap.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var readBack Snapshot
	require.NoError(t, json.Unmarshal(raw, &readBack))
	assert.Equal(t, snap, readBack)
}
