package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

func mismatch() *models.DiscrepancyRecord {
	return &models.DiscrepancyRecord{
		EntityType:      "project",
		EntityID:        "P1",
		EntityIDB:       "E1",
		DiscrepancyType: models.DiscrepancyValueMismatch,
		Status:          models.StatusUnresolved,
		FieldDiscrepancies: []*models.FieldDiscrepancy{
			{FieldName: "budget", FieldA: "budget", FieldB: "budget", ValueA: models.Int(100), ValueB: models.Int(95), Resolution: models.ResolutionPending},
			{FieldName: "name / title", FieldA: "name", FieldB: "title", ValueA: models.String("A"), ValueB: models.String("B"), Resolution: models.ResolutionPending},
		},
	}
}

func TestApplyResolutionTransitions(t *testing.T) {
	rec := mismatch()

	require.NoError(t, ApplyResolution(rec, []string{"budget"}, models.ResolutionUseA, nil))
	assert.Equal(t, models.StatusUnresolved, rec.Status)

	custom := models.String("C")
	require.NoError(t, ApplyResolution(rec, []string{"name / title"}, models.ResolutionCustom, &custom))
	assert.Equal(t, models.StatusResolved, rec.Status)

	payload := BuildWritePayload(rec)
	assert.True(t, payload.ToEBS["budget"].Equal(models.Int(100)))
	assert.True(t, payload.ToEBS["title"].Equal(models.String("C")))
	assert.True(t, payload.ToP6["name"].Equal(models.String("C")))
	assert.NotContains(t, payload.ToP6, "budget")
}

func TestApplyResolutionIdempotent(t *testing.T) {
	rec := mismatch()
	require.NoError(t, ApplyResolution(rec, []string{"budget", "name / title"}, models.ResolutionUseB, nil))
	first := BuildWritePayload(rec)

	require.NoError(t, ApplyResolution(rec, []string{"budget", "name / title"}, models.ResolutionUseB, nil))
	assert.Equal(t, models.StatusResolved, rec.Status)
	assert.Equal(t, first, BuildWritePayload(rec))
	assert.Len(t, first.ToP6, 2)
	assert.Empty(t, first.ToEBS)
}

func TestApplyResolutionUsesSelectedFields(t *testing.T) {
	rec := mismatch()
	rec.FieldDiscrepancies[1].Selected = true

	require.NoError(t, ApplyResolution(rec, nil, models.ResolutionIgnore, nil))
	assert.Equal(t, models.ResolutionPending, rec.FieldDiscrepancies[0].Resolution)
	assert.Equal(t, models.ResolutionIgnore, rec.FieldDiscrepancies[1].Resolution)

	rec.FieldDiscrepancies[1].Selected = false
	err := ApplyResolution(rec, nil, models.ResolutionIgnore, nil)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestApplyResolutionRejects(t *testing.T) {
	rec := mismatch()
	assert.True(t, apperrors.IsInvalidInput(ApplyResolution(rec, []string{"budget"}, models.ResolutionCustom, nil)))
	assert.True(t, apperrors.IsInvalidInput(ApplyResolution(rec, []string{"budget"}, models.ResolutionPending, nil)))
	assert.True(t, apperrors.IsNotFound(ApplyResolution(rec, []string{"nope"}, models.ResolutionUseA, nil)))

	rec.Status = models.StatusApplied
	assert.True(t, apperrors.IsInvalidInput(ApplyResolution(rec, []string{"budget"}, models.ResolutionUseA, nil)))
}

func TestIgnoreWritesNothing(t *testing.T) {
	rec := mismatch()
	require.NoError(t, ResolveAll(rec, models.ResolutionIgnore))
	assert.Equal(t, models.StatusResolved, rec.Status)
	assert.True(t, BuildWritePayload(rec).Empty())
}

func TestMissingRecordPayloadSkipsNulls(t *testing.T) {
	rec := &models.DiscrepancyRecord{
		EntityID:        "P9",
		DiscrepancyType: models.DiscrepancyMissingInEBS,
		Status:          models.StatusUnresolved,
		FieldDiscrepancies: []*models.FieldDiscrepancy{
			{FieldName: "proj_name", FieldA: "proj_name", FieldB: "project_name", ValueA: models.String("Z"), ValueB: models.Null(), Resolution: models.ResolutionPending},
			{FieldName: "notes", FieldA: "notes", ValueA: models.String("n"), ValueB: models.Null(), Resolution: models.ResolutionPending},
		},
	}
	require.NoError(t, ResolveAll(rec, models.ResolutionUseB))
	assert.True(t, BuildWritePayload(rec).Empty())

	rec.Status = models.StatusUnresolved
	require.NoError(t, ApplyResolution(rec, []string{"proj_name", "notes"}, models.ResolutionUseA, nil))
	payload := BuildWritePayload(rec)
	assert.Equal(t, map[string]models.Value{"project_name": models.String("Z")}, payload.ToEBS)
	assert.Equal(t, "", TargetID(rec, models.SystemEBS))
	assert.Equal(t, "P9", TargetID(rec, models.SystemP6))
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, models.ResolutionUseA, PolicyFor(models.DirectionP6ToEBS, models.SystemEBS))
	assert.Equal(t, models.ResolutionUseB, PolicyFor(models.DirectionEBSToP6, models.SystemP6))
	assert.Equal(t, models.ResolutionUseB, PolicyFor(models.DirectionBidirectional, models.SystemEBS))
	assert.Equal(t, models.ResolutionUseA, PolicyFor(models.DirectionBidirectional, models.SystemP6))
}
