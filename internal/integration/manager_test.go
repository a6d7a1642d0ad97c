package integration

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// MockSaver is a mock implementation of CorrelationSaver
type MockSaver struct {
	mock.Mock
}

func (m *MockSaver) Save(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestManager(saver CorrelationSaver) (*Manager, *MemoryHistory) {
	history := NewMemoryHistory()
	provider := config.NewStaticProvider(config.DefaultIntegrationConfig())
	return NewManager(provider, history, saver, testLogger()), history
}

func TestManagerStartRejectsBusyType(t *testing.T) {
	m, _ := newTestManager(nil)

	session, err := m.Start(config.Timesheet, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, session.Status)
	assert.Equal(t, models.DirectionP6ToEBS, session.Direction)

	_, err = m.Start(config.Timesheet, nil)
	assert.True(t, apperrors.IsSyncInProgress(err))

	other, err := m.Start(config.ResourceManagement, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionBidirectional, other.Direction)
	assert.Equal(t, []string{config.ResourceManagement, config.Timesheet}, m.ActiveTypes())
}

func TestManagerCompleteRecordsHistory(t *testing.T) {
	saver := new(MockSaver)
	saver.On("Save", mock.Anything).Return(nil).Once()
	m, _ := newTestManager(saver)
	ctx := context.Background()

	session, err := m.Start(config.Timesheet, nil)
	require.NoError(t, err)
	require.NoError(t, m.Complete(ctx, session, map[string]interface{}{
		models.ResultTotalEntities:   40,
		models.ResultUpdatedEntities: 3,
	}))

	history, err := m.History(ctx, config.Timesheet)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.SessionCompleted, history[0].Status)
	assert.Equal(t, 40, history[0].EntitiesProcessed)
	assert.Equal(t, 3, history[0].EntitiesUpdated)
	assert.Equal(t, history[0].EndTime.Sub(history[0].StartTime), history[0].Duration)

	last, ok := m.LastSyncTime(config.Timesheet)
	require.True(t, ok)
	assert.Equal(t, session.EndTime, last)

	_, busy := m.ActiveSession(config.Timesheet)
	assert.False(t, busy)
	saver.AssertExpectations(t)
}

func TestManagerFailKeepsLastSync(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	session, err := m.Start(config.Procurement, nil)
	require.NoError(t, err)
	require.NoError(t, m.Fail(ctx, session, errors.New("EBS is unreachable")))

	history, err := m.History(ctx, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.SessionFailed, history[0].Status)
	assert.Equal(t, "EBS is unreachable", history[0].ErrorMessage)

	_, ok := m.LastSyncTime(config.Procurement)
	assert.False(t, ok)

	// the type can run again after a failure
	_, err = m.Start(config.Procurement, nil)
	assert.NoError(t, err)
}

func TestManagerHistoryIsMonotonic(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		session, err := m.Start(config.Timesheet, nil)
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, m.Complete(ctx, session, nil))
		} else {
			require.NoError(t, m.Fail(ctx, session, errors.New("boom")))
		}
		history, err := m.History(ctx, config.Timesheet)
		require.NoError(t, err)
		assert.Len(t, history, i+1)
	}

	other, err := m.History(ctx, config.Procurement)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestIsSyncNeeded(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()
	now := time.Now()

	assert.True(t, m.IsSyncNeeded(config.Timesheet, time.Time{}, time.Time{}))

	session, err := m.Start(config.Timesheet, nil)
	require.NoError(t, err)
	require.NoError(t, m.Complete(ctx, session, nil))

	assert.False(t, m.IsSyncNeeded(config.Timesheet, now.Add(-time.Hour), now.Add(-time.Hour)))
	assert.True(t, m.IsSyncNeeded(config.Timesheet, time.Now().Add(time.Hour), time.Time{}))
	assert.True(t, m.IsSyncNeeded(config.Timesheet, time.Time{}, time.Now().Add(time.Hour)))
}

func TestManagerRestore(t *testing.T) {
	history := NewMemoryHistory()
	end := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, history.Append(ctx, models.SyncRecord{SyncType: config.Timesheet, Status: models.SessionCompleted, EndTime: end.Add(-time.Hour)}))
	require.NoError(t, history.Append(ctx, models.SyncRecord{SyncType: config.Timesheet, Status: models.SessionCompleted, EndTime: end}))
	require.NoError(t, history.Append(ctx, models.SyncRecord{SyncType: config.Timesheet, Status: models.SessionFailed, EndTime: end.Add(time.Hour)}))

	m := NewManager(config.NewStaticProvider(config.DefaultIntegrationConfig()), history, nil, testLogger())
	require.NoError(t, m.Restore(ctx))

	last, ok := m.LastSyncTime(config.Timesheet)
	require.True(t, ok)
	assert.Equal(t, end, last)
}

func TestSortByStartDesc(t *testing.T) {
	base := time.Now()
	records := []models.SyncRecord{
		{SessionID: "a", StartTime: base},
		{SessionID: "b", StartTime: base.Add(time.Hour)},
		{SessionID: "c", StartTime: base.Add(-time.Hour)},
	}

	SortByStartDesc(records)

	assert.Equal(t, "b", records[0].SessionID)
	assert.Equal(t, "a", records[1].SessionID)
	assert.Equal(t, "c", records[2].SessionID)
}
