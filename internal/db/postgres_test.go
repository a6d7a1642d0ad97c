package db

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/correlation"
	"github.com/tpcgrp/p6ebs-sync/internal/integration"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

var (
	_ integration.HistoryStore = (*PostgresStore)(nil)
	_ correlation.Persister    = (*PostgresStore)(nil)
)

func setupTestDB(t *testing.T) *PostgresStore {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewPostgresStore(dsn, logger)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())

	t.Cleanup(func() {
		_, err := store.db.Exec(`TRUNCATE sync_records, id_correlations`)
		assert.NoError(t, err)
		store.Close()
	})
	return store
}

func TestPostgresStore_History(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	records := []models.SyncRecord{
		{SessionID: "a", SyncType: "timesheet", Direction: models.DirectionP6ToEBS, Status: models.SessionCompleted,
			StartTime: base, EndTime: base.Add(time.Minute), Duration: time.Minute, EntitiesProcessed: 10, EntitiesUpdated: 2},
		{SessionID: "b", SyncType: "timesheet", Direction: models.DirectionP6ToEBS, Status: models.SessionFailed,
			StartTime: base.Add(time.Hour), EndTime: base.Add(time.Hour + time.Second), Duration: time.Second, ErrorMessage: "boom"},
		{SessionID: "c", SyncType: "projectWbs", Direction: models.DirectionP6ToEBS, Status: models.SessionCompleted,
			StartTime: base.Add(2 * time.Hour), EndTime: base.Add(2*time.Hour + time.Minute), Duration: time.Minute},
	}
	for _, r := range records {
		require.NoError(t, store.Append(ctx, r))
	}

	t.Run("list by type keeps insertion order", func(t *testing.T) {
		got, err := store.List(ctx, "timesheet")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].SessionID)
		assert.Equal(t, "boom", got[1].ErrorMessage)
		assert.Equal(t, time.Minute, got[0].Duration)
	})

	t.Run("list all", func(t *testing.T) {
		got, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("last sync ignores failures", func(t *testing.T) {
		last, err := store.LastSyncTimes(ctx)
		require.NoError(t, err)
		assert.True(t, last["timesheet"].Equal(base.Add(time.Minute)))
		assert.True(t, last["projectWbs"].Equal(base.Add(2*time.Hour+time.Minute)))
	})
}

func TestPostgresStore_Correlations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	empty, err := store.LoadCorrelations(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveCorrelations(ctx, correlation.Correlations{
		"project":  {"P6_PROJ_1": "1001", "P6_PROJ_2": "1002"},
		"resource": {"R1": "9001"},
	}))
	require.NoError(t, store.SaveCorrelations(ctx, correlation.Correlations{
		"project": {"P6_PROJ_1": "1001"},
	}))

	got, err := store.LoadCorrelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, correlation.Correlations{"project": {"P6_PROJ_1": "1001"}}, got)
}
