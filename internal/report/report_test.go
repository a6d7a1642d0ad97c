package report

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tpcgrp/p6ebs-sync/internal/logging"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) History(ctx context.Context, integrationType string) ([]models.SyncRecord, error) {
	args := m.Called(ctx, integrationType)
	if records := args.Get(0); records != nil {
		return records.([]models.SyncRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteReport(text, path string) error {
	return m.Called(text, path).Error(0)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleHistory() []models.SyncRecord {
	return []models.SyncRecord{
		{
			SessionID:         "s1",
			SyncType:          "timesheet",
			Direction:         models.DirectionP6ToEBS,
			Status:            models.SessionCompleted,
			StartTime:         fixedNow.Add(-5 * time.Hour),
			EndTime:           fixedNow.Add(-5*time.Hour + 10*time.Second),
			Duration:          10 * time.Second,
			EntitiesProcessed: 40,
			EntitiesUpdated:   3,
		},
		{
			SessionID:         "s2",
			SyncType:          "timesheet",
			Direction:         models.DirectionP6ToEBS,
			Status:            models.SessionFailed,
			StartTime:         fixedNow.Add(-1 * time.Hour),
			EndTime:           fixedNow.Add(-1*time.Hour + 20*time.Second),
			Duration:          20 * time.Second,
			EntitiesProcessed: 0,
			ErrorMessage:      "connection refused",
		},
	}
}

func newGenerator(t *testing.T, history HistorySource, logs LogSource) *Generator {
	g := NewGenerator(t.TempDir(), history, logs, nil, quietLogger())
	g.now = func() time.Time { return fixedNow }
	return g
}

func TestSummaryReport(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, "").Return(sampleHistory(), nil)

	ring := logging.NewRingHook(10)
	logger := quietLogger()
	logger.AddHook(ring)
	logger.Info("routine")
	logger.Warn("EBS slow to respond")

	text, err := newGenerator(t, h, ring).Summary(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "P6-EBS INTEGRATION SUMMARY REPORT")
	assert.Contains(t, text, "Generated: 2025-03-14 09:30:00")
	assert.Contains(t, text, "timesheet: 2025-03-14 04:30:10")
	assert.Contains(t, text, "Error: connection refused")
	assert.Contains(t, text, "[WARNING] EBS slow to respond")
	assert.NotContains(t, text, "routine")
	assert.Less(t, strings.Index(text, "Session: s2"), strings.Index(text, "Session: s1"))
	h.AssertExpectations(t)
}

func TestSummaryReportEmpty(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, "").Return([]models.SyncRecord{}, nil)

	text, err := newGenerator(t, h, nil).Summary(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "No synchronization records found.")
	assert.Contains(t, text, "No synchronization history found.")
	assert.Contains(t, text, "No relevant log entries found.")
}

func TestDetailedReportStatistics(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, "timesheet").Return(sampleHistory(), nil)

	text, err := newGenerator(t, h, nil).Detailed(context.Background(), "timesheet")
	require.NoError(t, err)

	assert.Contains(t, text, "TIMESHEET INTEGRATION DETAILED REPORT")
	assert.Contains(t, text, "Total runs: 2")
	assert.Contains(t, text, "Successful runs: 1")
	assert.Contains(t, text, "Failed runs: 1")
	assert.Contains(t, text, "Success rate: 50%")
	assert.Contains(t, text, "Total entities processed: 40")
	assert.Contains(t, text, "Average duration: 15 seconds")
}

func TestDetailedReportHistoryError(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, "timesheet").Return(nil, errors.New("db down"))

	_, err := newGenerator(t, h, nil).Detailed(context.Background(), "timesheet")
	assert.Error(t, err)
}

func sampleRecords() []*models.DiscrepancyRecord {
	return []*models.DiscrepancyRecord{
		{
			EntityType:      "project",
			EntityID:        "P6_PROJ_3",
			EntityIDB:       "1003",
			EntityName:      "Project 3",
			DiscrepancyType: models.DiscrepancyValueMismatch,
			Status:          models.StatusUnresolved,
			FieldDiscrepancies: []*models.FieldDiscrepancy{
				{FieldName: "proj_name", FieldA: "proj_name", FieldB: "project_name",
					ValueA: models.String("Project 3"), ValueB: models.String("Project 3 (EBS)")},
				{FieldName: "budget", ValueA: models.Int(100), ValueB: models.Null()},
			},
		},
		{
			EntityType:      "project",
			EntityID:        "1011",
			EntityName:      "Project 11",
			DiscrepancyType: models.DiscrepancyMissingInP6,
			Status:          models.StatusUnresolved,
		},
	}
}

func TestReconciliationReport(t *testing.T) {
	g := newGenerator(t, new(MockHistory), nil)
	text := g.Reconciliation("projectFinancials", sampleRecords())

	assert.Contains(t, text, "PROJECTFINANCIALS DATA RECONCILIATION REPORT")
	assert.Contains(t, text, "Records: 2")
	assert.Contains(t, text, "Total fields: 2")
	assert.Contains(t, text, "Mismatched fields: 1")
	assert.Contains(t, text, "P6 only fields: 1")
	assert.Contains(t, text, "N/A")
}

func TestGenerateSummaryUsesWriter(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, "").Return([]models.SyncRecord{}, nil)
	w := new(MockWriter)
	w.On("WriteReport", mock.AnythingOfType("string"), "/reports/integration_summary_20250314_093000.txt").Return(nil)

	g := NewGenerator("/reports", h, nil, w, quietLogger())
	g.now = func() time.Time { return fixedNow }

	info, err := g.GenerateSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TypeSummary, info.Type)
	assert.Equal(t, "integration_summary_20250314_093000.txt", info.Name)
	w.AssertExpectations(t)
}

func TestGenerateSummaryWriterFailure(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, "").Return([]models.SyncRecord{}, nil)
	w := new(MockWriter)
	w.On("WriteReport", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	g := NewGenerator("/reports", h, nil, w, quietLogger())
	_, err := g.GenerateSummary(context.Background())
	assert.Error(t, err)
}

func TestListReports(t *testing.T) {
	h := new(MockHistory)
	h.On("History", mock.Anything, mock.Anything).Return(sampleHistory(), nil)
	g := newGenerator(t, h, nil)

	_, err := g.GenerateSummary(context.Background())
	require.NoError(t, err)
	_, err = g.GenerateDetailed(context.Background(), "timesheet")
	require.NoError(t, err)
	_, err = g.GenerateReconciliation("projectFinancials", sampleRecords())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(g.Dir(), "notes.md"), []byte("x"), 0o644))

	reports, err := g.List()
	require.NoError(t, err)
	require.Len(t, reports, 3)

	types := map[string]bool{}
	for _, r := range reports {
		types[r.Type] = true
		assert.Positive(t, r.Size)
	}
	assert.True(t, types[TypeSummary])
	assert.True(t, types[TypeDetailed])
	assert.True(t, types[TypeReconciliation])
}

func TestListReportsMissingDir(t *testing.T) {
	reports, err := ListReports(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestReconciliationWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects_reconciliation.xlsx")
	require.NoError(t, WriteReconciliationWorkbook(sampleRecords(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(recordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Entity Type", rows[0][0])
	assert.Equal(t, "P6_PROJ_3", rows[1][1])
	assert.Equal(t, "Project 3 (EBS)", rows[1][10])
	assert.Equal(t, "MissingInP6", rows[3][4])

	value, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", value)

	reports, err := ListReports(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, TypeReconciliation, reports[0].Type)
}
