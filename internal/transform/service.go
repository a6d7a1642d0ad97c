package transform

import (
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Entity types with value transforms but no reconciliation of their own
const (
	EntityFinancial = "financial"
	EntityTimesheet = mapping.EntityTimesheet
)

// Service maps records between schemas and converts field values
type Service struct {
	registry *mapping.Registry
	logger   *logrus.Logger

	mu         sync.RWMutex
	transforms map[string]map[string]ValueFunc
}

// NewService creates a service with the default value transforms
func NewService(registry *mapping.Registry, logger *logrus.Logger) *Service {
	s := &Service{
		registry:   registry,
		logger:     logger,
		transforms: make(map[string]map[string]ValueFunc),
	}
	s.registerDefaults()
	return s
}

func (s *Service) registerDefaults() {
	round2 := RoundDecimal(2)

	for _, f := range []string{"start_date", "completion_date", "plan_start_date", "plan_end_date"} {
		s.Register(mapping.EntityProject, f, FormatDate)
	}
	for _, f := range []string{"status_code", "project_status_code"} {
		s.Register(mapping.EntityProject, f, MapStatusCode)
	}

	for _, entityType := range []string{mapping.EntityActivity, mapping.EntityTask} {
		for _, f := range []string{"start_date", "finish_date", "completion_date"} {
			s.Register(entityType, f, FormatDate)
		}
		for _, f := range []string{"status_code", "task_status_code"} {
			s.Register(entityType, f, MapStatusCode)
		}
	}
	for _, f := range []string{"act_start_date", "act_end_date", "actual_start_date", "actual_finish_date"} {
		s.Register(mapping.EntityTask, f, FormatDate)
	}

	for _, f := range []string{"budget_amount", "budgeted_amount", "actual_cost", "committed_amount", "target_cost", "act_cost", "remain_cost", "planned_cost", "remaining_cost"} {
		s.Register(EntityFinancial, f, round2)
	}

	for _, f := range []string{"work_date", "expenditure_item_date"} {
		s.Register(EntityTimesheet, f, FormatDate)
	}
	for _, f := range []string{"hours", "quantity"} {
		s.Register(EntityTimesheet, f, round2)
	}
}

// Register sets the transform applied to field of entityType
func (s *Service) Register(entityType, field string, fn ValueFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Inner maps are never mutated once published, so apply can range over
	// one without holding the lock.
	old := s.transforms[entityType]
	fields := make(map[string]ValueFunc, len(old)+1)
	for k, v := range old {
		fields[k] = v
	}
	fields[field] = fn
	s.transforms[entityType] = fields
}

// Transform maps rec out of source into target field names and then converts its values.
// An unknown entity type returns an empty record and a mapping gap error.
func (s *Service) Transform(entityType string, rec models.EntityRecord, source, target models.System) (models.EntityRecord, error) {
	if source == target || !source.Valid() || !target.Valid() {
		s.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"source":      source,
			"target":      target,
		}).Warn("Unsupported system combination, record left unchanged")
		return rec, nil
	}

	mapped, ok := s.registry.MapFields(entityType, source, rec)
	if !ok {
		return mapped, apperrors.NewMappingGapError(entityType)
	}
	return s.apply(entityType, rec.ID, mapped), nil
}

// Normalize converts values in place of the record's own schema, keeping field names
func (s *Service) Normalize(entityType string, rec models.EntityRecord) models.EntityRecord {
	return s.apply(entityType, rec.ID, rec.Clone())
}

// NormalizeAll normalizes every record of a collection
func (s *Service) NormalizeAll(entityType string, recs []models.EntityRecord) []models.EntityRecord {
	out := make([]models.EntityRecord, len(recs))
	for i, rec := range recs {
		out[i] = s.Normalize(entityType, rec)
	}
	return out
}

func (s *Service) apply(entityType, id string, rec models.EntityRecord) models.EntityRecord {
	s.mu.RLock()
	fields := s.transforms[entityType]
	s.mu.RUnlock()

	for name, fn := range fields {
		v, ok := rec.Fields[name]
		if !ok {
			continue
		}
		converted, err := fn(v)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"entity_type": entityType,
				"entity_id":   id,
				"field":       name,
			}).WithError(err).Warn("Field transform failed, value passed through")
			continue
		}
		rec.Fields[name] = converted
	}
	return rec
}

// TransformTimesheet normalises work_date and rounds hours; other fields are copied
func (s *Service) TransformTimesheet(rec models.EntityRecord) models.EntityRecord {
	return s.Normalize(EntityTimesheet, rec)
}
