package validation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type staticFetcher []models.EntityRecord

func (f staticFetcher) FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error) {
	return f, nil
}

func TestUnknownTypeIsBlocking(t *testing.T) {
	g := NewGate(testLogger())
	issues := g.Validate(context.Background(), "payroll")
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueValidationError, issues[0].IssueType)
	assert.True(t, HasBlockingIssues(issues))
}

func TestKnownTypeWithoutChecksPasses(t *testing.T) {
	g := NewGate(testLogger())
	g.Known("timesheet")
	report := g.Run(context.Background(), "timesheet")
	assert.Equal(t, 0, report.TotalIssues)
	assert.False(t, report.HasBlocking())
	assert.NotNil(t, report.Issues)
}

func TestCheckErrorsAndPanicsBlock(t *testing.T) {
	g := NewGate(testLogger())
	g.Register("procurement", "fails", func(ctx context.Context) ([]models.ValidationIssue, error) {
		return nil, errors.New("query timeout")
	})
	g.Register("procurement", "panics", func(ctx context.Context) ([]models.ValidationIssue, error) {
		panic("nil map")
	})

	report := g.Run(context.Background(), "procurement")
	assert.Equal(t, 2, report.BlockingIssues)
	assert.Contains(t, report.Issues[0].Description, "query timeout")
	assert.Contains(t, report.Issues[1].Description, "nil map")
}

func TestBuiltInChecks(t *testing.T) {
	g := NewGate(testLogger())
	registry := mapping.NewDefaultRegistry()
	projects := staticFetcher{
		models.NewEntityRecord("", "", map[string]interface{}{"proj_id": 1, "planned_cost": -5, "proj_short_name": "A"}),
		models.NewEntityRecord("", "", map[string]interface{}{"proj_id": 2, "planned_cost": 10}),
	}

	g.Register("projectFinancials", "p6-ping", ConnectivityCheck("projectFinancials", models.SystemP6, pingFunc(func(ctx context.Context) error { return nil })))
	g.Register("projectFinancials", "mapping", MappingCheck(registry, "financial"))
	g.Register("projectFinancials", "budget", NonNegativeCheck(projects, models.SystemP6, "project", "proj_id", "planned_cost"))
	g.Register("projectFinancials", "short-name", RequiredFieldCheck(projects, models.SystemP6, "project", "proj_id", "proj_short_name"))

	report := g.Run(context.Background(), "projectFinancials")
	assert.Equal(t, 3, report.TotalIssues)
	assert.Equal(t, 0, report.BlockingIssues)
	assert.Equal(t, 3, report.Warnings)

	types := map[string]string{}
	for _, issue := range report.Issues {
		types[issue.IssueType] = issue.EntityID
	}
	assert.Equal(t, "1", types[models.IssueValidationError])
	assert.Equal(t, "2", types[models.IssueMissingField])
	assert.Contains(t, types, models.IssueMappingGap)

	g.Register("projectFinancials", "ebs-ping", ConnectivityCheck("projectFinancials", models.SystemEBS, pingFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	})))
	assert.True(t, g.Run(context.Background(), "projectFinancials").HasBlocking())
}
