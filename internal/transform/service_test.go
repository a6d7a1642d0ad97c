package transform

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

func newTestService() *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(mapping.NewDefaultRegistry(), logger)
}

func TestFormatDate(t *testing.T) {
	want := models.Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		in   models.Value
	}{
		{"iso", models.String("2024-03-01")},
		{"rfc3339", models.String("2024-03-01T17:30:00Z")},
		{"sql timestamp", models.String("2024-03-01 08:00:00")},
		{"us", models.String("03/01/2024")},
		{"oracle", models.String("01-Mar-2024")},
		{"time value", models.Date(time.Date(2024, 3, 1, 13, 5, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FormatDate(tt.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(out), out.String())
			assert.Equal(t, "2024-03-01", out.Canonical())
		})
	}

	bad := models.String("next tuesday")
	out, err := FormatDate(bad)
	assert.Error(t, err)
	assert.True(t, bad.Equal(out))
}

func TestRoundDecimalHalfUp(t *testing.T) {
	round := RoundDecimal(2)

	out, err := round(models.Number(decimal.RequireFromString("7.125")))
	require.NoError(t, err)
	assert.Equal(t, "7.13", out.Canonical())

	out, err = round(models.String("3.14159"))
	require.NoError(t, err)
	assert.Equal(t, "3.14", out.Canonical())

	_, err = round(models.String("n/a"))
	assert.Error(t, err)
}

func TestMapStatusCode(t *testing.T) {
	out, _ := MapStatusCode(models.Int(2))
	assert.Equal(t, "IN_PROGRESS", out.Canonical())

	out, _ = MapStatusCode(models.String("3"))
	assert.Equal(t, "COMPLETED", out.Canonical())

	out, _ = MapStatusCode(models.String("ON_HOLD"))
	assert.Equal(t, "ON_HOLD", out.Canonical())
}

func TestTransformProjectP6ToEBS(t *testing.T) {
	svc := newTestService()
	rec := models.NewEntityRecord("101", "Alpha", map[string]interface{}{
		"proj_id":         101,
		"proj_name":       "Alpha",
		"status_code":     1,
		"plan_start_date": "2024-01-15 00:00:00",
		"ignored":         true,
	})

	out, err := svc.Transform(mapping.EntityProject, rec, models.SystemP6, models.SystemEBS)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", out.Fields["project_status_code"].Canonical())
	assert.Equal(t, "2024-01-15", out.Fields["start_date"].Canonical())
	assert.Equal(t, models.KindDate, out.Fields["start_date"].Kind())
	assert.NotContains(t, out.Fields, "ignored")
}

func TestRegisterWhileNormalizing(t *testing.T) {
	svc := newTestService()
	rec := models.NewEntityRecord("101", "Alpha", map[string]interface{}{
		"plan_start_date": "2024-01-15 00:00:00",
		"extra_date":      "2024-02-01 08:30:00",
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			svc.Register(mapping.EntityProject, fmt.Sprintf("custom_%d", i), FormatDate)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			out := svc.Normalize(mapping.EntityProject, rec)
			assert.Equal(t, "2024-01-15", out.Fields["plan_start_date"].Canonical())
		}
	}()
	wg.Wait()

	svc.Register(mapping.EntityProject, "extra_date", FormatDate)
	out := svc.Normalize(mapping.EntityProject, rec)
	assert.Equal(t, models.KindDate, out.Fields["extra_date"].Kind())
	assert.Equal(t, "2024-02-01", out.Fields["extra_date"].Canonical())
	assert.Equal(t, models.KindString, rec.Fields["extra_date"].Kind(), "input record is not modified")
}

func TestTransformUnknownTypeIsMappingGap(t *testing.T) {
	svc := newTestService()
	out, err := svc.Transform("invoice", models.NewEntityRecord("1", "x", nil), models.SystemP6, models.SystemEBS)
	assert.True(t, apperrors.IsMappingGap(err))
	assert.Empty(t, out.Fields)
}

func TestTransformSameSystemPassesThrough(t *testing.T) {
	svc := newTestService()
	rec := models.NewEntityRecord("1", "x", map[string]interface{}{"a": 1})
	out, err := svc.Transform(mapping.EntityProject, rec, models.SystemP6, models.SystemP6)
	require.NoError(t, err)
	assert.Equal(t, rec, out)
}

func TestTransformFinancial(t *testing.T) {
	svc := newTestService()
	p6 := models.NewEntityRecord("101", "Alpha", map[string]interface{}{
		"planned_cost":   1000.456,
		"actual_cost":    "250.5",
		"remaining_cost": "not a number",
	})
	ebs := models.NewEntityRecord("9001", "Alpha", map[string]interface{}{
		"budgeted_amount":  1200,
		"actual_cost":      300,
		"committed_amount": nil,
	})

	t.Run("P6 to EBS", func(t *testing.T) {
		out := svc.TransformFinancial(&p6, &ebs, models.DirectionP6ToEBS, DefaultMergePolicy())
		assert.Equal(t, "1000.46", out.Fields["budget_amount"].Canonical())
		assert.Equal(t, "250.5", out.Fields["actual_cost"].Canonical())
		assert.Equal(t, "0", out.Fields["committed_amount"].Canonical())
		assert.Equal(t, "101", out.ID)
	})

	t.Run("EBS to P6", func(t *testing.T) {
		out := svc.TransformFinancial(&p6, &ebs, models.DirectionEBSToP6, DefaultMergePolicy())
		assert.Equal(t, "1200", out.Fields["target_cost"].Canonical())
		assert.Equal(t, "300", out.Fields["act_cost"].Canonical())
		assert.Equal(t, "0", out.Fields["remain_cost"].Canonical())
	})

	t.Run("bidirectional EBS wins", func(t *testing.T) {
		out := svc.TransformFinancial(&p6, &ebs, models.DirectionBidirectional, DefaultMergePolicy())
		assert.Equal(t, "300", out.Fields["actual_cost"].Canonical())
		assert.Equal(t, "1000.46", out.Fields["planned_cost"].Canonical())
		assert.Equal(t, "9001", out.ID)
	})

	t.Run("bidirectional P6 wins", func(t *testing.T) {
		out := svc.TransformFinancial(&p6, &ebs, models.DirectionBidirectional, MergePolicy{Priority: models.SystemP6})
		assert.Equal(t, "250.5", out.Fields["actual_cost"].Canonical())
		assert.Equal(t, "101", out.ID)
	})

	t.Run("missing side", func(t *testing.T) {
		out := svc.TransformFinancial(nil, &ebs, models.DirectionP6ToEBS, DefaultMergePolicy())
		assert.Empty(t, out.Fields)
	})
}

func TestTransformTimesheet(t *testing.T) {
	svc := newTestService()
	rec := models.NewEntityRecord("T1", "", map[string]interface{}{
		"work_date":   "03/04/2024",
		"hours":       7.456,
		"employee_id": "E7",
	})

	out := svc.TransformTimesheet(rec)
	assert.Equal(t, "2024-03-04", out.Fields["work_date"].Canonical())
	assert.Equal(t, "7.46", out.Fields["hours"].Canonical())
	assert.Equal(t, "E7", out.Fields["employee_id"].Canonical())
	assert.Equal(t, "03/04/2024", rec.Fields["work_date"].Canonical())
}
