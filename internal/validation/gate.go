package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Check inspects one aspect of an integration type before it syncs.
// A returned error becomes a blocking issue.
type Check func(ctx context.Context) ([]models.ValidationIssue, error)

type namedCheck struct {
	name  string
	check Check
}

// Gate runs the pre-flight checks registered for each integration type
type Gate struct {
	mu     sync.RWMutex
	checks map[string][]namedCheck
	logger *logrus.Logger
}

// NewGate creates an empty gate
func NewGate(logger *logrus.Logger) *Gate {
	return &Gate{checks: make(map[string][]namedCheck), logger: logger}
}

// Register adds a check for an integration type. Registering a type with no
// checks is done with Known.
func (g *Gate) Register(integrationType, name string, check Check) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks[integrationType] = append(g.checks[integrationType], namedCheck{name: name, check: check})
}

// Known marks an integration type as valid even when it has no checks
func (g *Gate) Known(integrationType string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.checks[integrationType]; !ok {
		g.checks[integrationType] = nil
	}
}

// Validate runs every check for integrationType. An unknown type, a failing
// check or a panicking check each produce a blocking VALIDATION_ERROR issue.
func (g *Gate) Validate(ctx context.Context, integrationType string) []models.ValidationIssue {
	g.mu.RLock()
	checks, known := g.checks[integrationType]
	checks = append([]namedCheck(nil), checks...)
	g.mu.RUnlock()

	log := g.logger.WithField("integration_type", integrationType)
	log.Info("Validating data for integration type")

	if !known {
		log.Error("Validation requested for unknown integration type")
		return []models.ValidationIssue{{
			EntityType:  integrationType,
			IssueType:   models.IssueValidationError,
			Description: fmt.Sprintf("Error during validation: unknown integration type: %s", integrationType),
			Blocking:    true,
		}}
	}

	var issues []models.ValidationIssue
	for _, c := range checks {
		found, err := runCheck(ctx, c.check)
		if err != nil {
			log.WithField("check", c.name).WithError(err).Error("Validation check failed")
			issues = append(issues, models.ValidationIssue{
				EntityType:  integrationType,
				IssueType:   models.IssueValidationError,
				Description: fmt.Sprintf("Error during validation (%s): %v", c.name, err),
				Blocking:    true,
			})
			continue
		}
		issues = append(issues, found...)
	}
	return issues
}

func runCheck(ctx context.Context, check Check) (issues []models.ValidationIssue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return check(ctx)
}

// HasBlockingIssues reports whether any issue blocks the sync
func HasBlockingIssues(issues []models.ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Blocking {
			return true
		}
	}
	return false
}

// GenerateReport counts issues into a report
func GenerateReport(integrationType string, issues []models.ValidationIssue) *models.ValidationReport {
	report := &models.ValidationReport{
		IntegrationType: integrationType,
		Timestamp:       time.Now(),
		Issues:          issues,
		TotalIssues:     len(issues),
	}
	if report.Issues == nil {
		report.Issues = []models.ValidationIssue{}
	}
	for _, issue := range issues {
		if issue.Blocking {
			report.BlockingIssues++
		} else {
			report.Warnings++
		}
	}
	return report
}

// Run validates integrationType and returns the report
func (g *Gate) Run(ctx context.Context, integrationType string) *models.ValidationReport {
	return GenerateReport(integrationType, g.Validate(ctx, integrationType))
}
