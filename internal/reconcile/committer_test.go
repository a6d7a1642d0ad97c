package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/batch"
	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// MockWriter is a mock implementation of Writer
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error {
	args := m.Called(ctx, entityType, id, updates)
	return args.Error(0)
}

// MockCreator is a writer that can also create entities
type MockCreator struct {
	MockWriter
}

func (m *MockCreator) CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error) {
	args := m.Called(ctx, entityType, fields)
	return args.String(0), args.Error(1)
}

type recordingCorrelator struct {
	pairs map[string]string
}

func (c *recordingCorrelator) Correlate(entityType, idP6, idEBS string) {
	c.pairs[idP6] = idEBS
}

func newProcessor() *batch.Processor {
	return batch.NewProcessor(&config.BatchConfig{Size: 2, Workers: 2})
}

func TestCommitWritesUseAToEBS(t *testing.T) {
	p6 := new(MockWriter)
	ebs := new(MockWriter)
	ebs.On("WriteEntity", mock.Anything, "project", "E1", map[string]models.Value{"budget": models.Int(100)}).Return(nil).Once()

	rec := &models.DiscrepancyRecord{
		EntityType:      "project",
		EntityID:        "P1",
		EntityIDB:       "E1",
		DiscrepancyType: models.DiscrepancyValueMismatch,
		Status:          models.StatusUnresolved,
		FieldDiscrepancies: []*models.FieldDiscrepancy{
			{FieldName: "budget", FieldA: "budget", FieldB: "budget", ValueA: models.Int(100), ValueB: models.Int(95), Resolution: models.ResolutionPending},
		},
	}
	require.NoError(t, ApplyResolution(rec, []string{"budget"}, models.ResolutionUseA, nil))
	assert.Equal(t, models.StatusResolved, rec.Status)

	c := NewCommitter(p6, ebs, newProcessor(), nil, nil, testLogger())
	result, err := c.Commit(context.Background(), []*models.DiscrepancyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, models.StatusApplied, rec.Status)

	// committing again is a no-op
	result, err = c.Commit(context.Background(), []*models.DiscrepancyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, 1, result.Skipped)

	ebs.AssertExpectations(t)
	p6.AssertNotCalled(t, "WriteEntity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitIsolatesFailures(t *testing.T) {
	p6 := new(MockWriter)
	ebs := new(MockWriter)
	ebs.On("WriteEntity", mock.Anything, "project", "E1", mock.Anything).Return(errors.New("ORA-00054: resource busy")).Once()
	ebs.On("WriteEntity", mock.Anything, "project", "E2", mock.Anything).Return(nil).Once()

	build := func(p6ID, ebsID string) *models.DiscrepancyRecord {
		rec := &models.DiscrepancyRecord{
			EntityType:      "project",
			EntityID:        p6ID,
			EntityIDB:       ebsID,
			DiscrepancyType: models.DiscrepancyValueMismatch,
			Status:          models.StatusUnresolved,
			FieldDiscrepancies: []*models.FieldDiscrepancy{
				{FieldName: "budget", FieldA: "budget", FieldB: "budget", ValueA: models.Int(1), ValueB: models.Int(2)},
			},
		}
		require.NoError(t, ResolveAll(rec, models.ResolutionUseA))
		return rec
	}
	failing := build("P1", "E1")
	ok := build("P2", "E2")
	unresolved := &models.DiscrepancyRecord{EntityID: "P3", Status: models.StatusUnresolved}

	c := NewCommitter(p6, ebs, newProcessor(), nil, nil, testLogger())
	result, err := c.Commit(context.Background(), []*models.DiscrepancyRecord{failing, ok, unresolved})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "P1", result.Errors[0].EntityID)

	assert.Equal(t, models.StatusResolved, failing.Status)
	assert.Contains(t, failing.Error, "resource busy")
	assert.Equal(t, models.StatusApplied, ok.Status)
	assert.Equal(t, models.StatusUnresolved, unresolved.Status)
	ebs.AssertExpectations(t)
}

func TestCommitCreatesMissingEntity(t *testing.T) {
	p6 := new(MockWriter)
	ebs := new(MockCreator)
	ebs.On("CreateEntity", mock.Anything, "project", map[string]models.Value{"project_name": models.String("New")}).Return("E77", nil).Once()
	corr := &recordingCorrelator{pairs: map[string]string{}}

	rec := &models.DiscrepancyRecord{
		EntityType:      "project",
		EntityID:        "P7",
		DiscrepancyType: models.DiscrepancyMissingInEBS,
		Status:          models.StatusUnresolved,
		FieldDiscrepancies: []*models.FieldDiscrepancy{
			{FieldName: "proj_name", FieldA: "proj_name", FieldB: "project_name", ValueA: models.String("New"), ValueB: models.Null()},
		},
	}
	require.NoError(t, ResolveAll(rec, models.ResolutionUseA))

	c := NewCommitter(p6, ebs, newProcessor(), corr, nil, testLogger())
	result, err := c.Commit(context.Background(), []*models.DiscrepancyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, "E77", rec.EntityIDB)
	assert.Equal(t, "E77", corr.pairs["P7"])
	assert.True(t, SupportsCreate(ebs))
	assert.False(t, SupportsCreate(p6))
}

func TestCommitWithoutCreatorFails(t *testing.T) {
	rec := &models.DiscrepancyRecord{
		EntityType:      "project",
		EntityID:        "E5",
		EntityIDB:       "E5",
		DiscrepancyType: models.DiscrepancyMissingInP6,
		Status:          models.StatusUnresolved,
		FieldDiscrepancies: []*models.FieldDiscrepancy{
			{FieldName: "project_name", FieldA: "proj_name", FieldB: "project_name", ValueA: models.Null(), ValueB: models.String("X")},
		},
	}
	require.NoError(t, ResolveAll(rec, models.ResolutionUseB))

	c := NewCommitter(new(MockWriter), new(MockWriter), newProcessor(), nil, nil, testLogger())
	result, err := c.Commit(context.Background(), []*models.DiscrepancyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, models.StatusResolved, rec.Status)
	assert.Contains(t, rec.Error, "does not support creating")
}

func TestWorkspaceResolveAndCommit(t *testing.T) {
	ebs := new(MockWriter)
	ebs.On("WriteEntity", mock.Anything, "project", "P1", mock.Anything).Return(nil).Once()

	d := NewDetector(testLogger())
	a := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "P1", "budget": 100})}
	b := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "P1", "budget": 95})}

	ws := NewWorkspace(time.Hour)
	set := ws.Put("project", d.Detect(a, b, budgetOptions()))
	assert.Equal(t, 1, set.Summary.ValueMismatch)

	got, err := ws.Get(set.ID)
	require.NoError(t, err)

	_, err = got.Resolve("missing", "", []string{"budget"}, models.ResolutionUseA, nil)
	assert.True(t, apperrors.IsNotFound(err))

	rec, err := got.Resolve("P1", "", []string{"budget"}, models.ResolutionUseA, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, rec.Status)

	result, err := got.Commit(context.Background(), NewCommitter(new(MockWriter), ebs, newProcessor(), nil, nil, testLogger()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, models.StatusApplied, got.Snapshot()[0].Status)

	_, err = ws.Get("nope")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Len(t, ws.List(), 1)
	ws.Delete(set.ID)
	assert.Empty(t, ws.List())
}
