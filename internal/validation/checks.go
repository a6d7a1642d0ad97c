package validation

import (
	"context"
	"fmt"

	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/transform"
)

// Pinger is anything that can report whether a system is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Fetcher returns all entities of a type from one system
type Fetcher interface {
	FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error)
}

// ConnectivityCheck blocks the sync when system cannot be reached
func ConnectivityCheck(integrationType string, system models.System, p Pinger) Check {
	return func(ctx context.Context) ([]models.ValidationIssue, error) {
		if err := p.Ping(ctx); err != nil {
			return []models.ValidationIssue{{
				EntityType:  integrationType,
				IssueType:   models.IssueConnection,
				Description: fmt.Sprintf("%s is unreachable: %v", system, err),
				Blocking:    true,
			}}, nil
		}
		return nil, nil
	}
}

// MappingCheck warns when an entity type has no field mapping
func MappingCheck(registry *mapping.Registry, entityType string) Check {
	return func(ctx context.Context) ([]models.ValidationIssue, error) {
		if _, ok := registry.Snapshot().Binding(entityType); !ok {
			return []models.ValidationIssue{{
				EntityType:  entityType,
				IssueType:   models.IssueMappingGap,
				Description: fmt.Sprintf("no field mapping registered for %s; comparison will find no discrepancies", entityType),
			}}, nil
		}
		return nil, nil
	}
}

// RequiredFieldCheck warns about every entity missing field
func RequiredFieldCheck(f Fetcher, system models.System, entityType, idField, field string) Check {
	return func(ctx context.Context) ([]models.ValidationIssue, error) {
		recs, err := f.FetchEntities(ctx, entityType)
		if err != nil {
			return nil, fmt.Errorf("fetch %s from %s: %w", entityType, system, err)
		}
		var issues []models.ValidationIssue
		for _, rec := range recs {
			if _, ok := rec.Get(field); ok {
				continue
			}
			issues = append(issues, models.ValidationIssue{
				EntityType:  entityType,
				EntityID:    entityID(rec, idField),
				IssueType:   models.IssueMissingField,
				Description: fmt.Sprintf("%s %s has no %s", system, entityType, field),
			})
		}
		return issues, nil
	}
}

// NonNegativeCheck warns about entities whose numeric field is below zero
func NonNegativeCheck(f Fetcher, system models.System, entityType, idField, field string) Check {
	return func(ctx context.Context) ([]models.ValidationIssue, error) {
		recs, err := f.FetchEntities(ctx, entityType)
		if err != nil {
			return nil, fmt.Errorf("fetch %s from %s: %w", entityType, system, err)
		}
		var issues []models.ValidationIssue
		for _, rec := range recs {
			v, ok := rec.Get(field)
			if !ok || !transform.ToDecimal(v).IsNegative() {
				continue
			}
			issues = append(issues, models.ValidationIssue{
				EntityType:  entityType,
				EntityID:    entityID(rec, idField),
				IssueType:   models.IssueValidationError,
				Description: fmt.Sprintf("%s %s has negative %s (%s)", system, entityType, field, v),
			})
		}
		return issues, nil
	}
}

func entityID(rec models.EntityRecord, idField string) string {
	if v, ok := rec.Get(idField); ok {
		return v.Canonical()
	}
	return rec.ID
}
