package reconcile

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/batch"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Writer updates fields of an existing entity in one system
type Writer interface {
	WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error
}

// Creator is implemented by writers that can also create entities
type Creator interface {
	CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error)
}

// Correlator records the id pair of an entity created during commit
type Correlator interface {
	Correlate(entityType, idP6, idEBS string)
}

// WriteObserver is told about every write-back attempt
type WriteObserver interface {
	ObserveWrite(system models.System, err error)
}

// CommitError describes one record that failed to apply
type CommitError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Error      string `json:"error"`
}

// CommitResult summarises a commit
type CommitResult struct {
	Applied int           `json:"applied"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	Errors  []CommitError `json:"errors,omitempty"`
}

// Committer writes resolved discrepancies back to P6 and EBS
type Committer struct {
	writers    map[models.System]Writer
	processor  *batch.Processor
	correlator Correlator
	observer   WriteObserver
	logger     *logrus.Logger
}

// NewCommitter creates a committer. correlator and observer may be nil.
func NewCommitter(p6, ebs Writer, processor *batch.Processor, correlator Correlator, observer WriteObserver, logger *logrus.Logger) *Committer {
	return &Committer{
		writers:    map[models.System]Writer{models.SystemP6: p6, models.SystemEBS: ebs},
		processor:  processor,
		correlator: correlator,
		observer:   observer,
		logger:     logger,
	}
}

type pending struct {
	rec *models.DiscrepancyRecord
}

func (p pending) Label() string {
	return p.rec.EntityType + ":" + p.rec.EntityID
}

// Commit applies every Resolved record. Records are isolated from each other: a
// failed record keeps its status and gets Error set, the rest continue. Records
// that are not Resolved are skipped. Writes already made are not rolled back.
func (c *Committer) Commit(ctx context.Context, records []*models.DiscrepancyRecord) (CommitResult, error) {
	var result CommitResult
	items := make([]interface{}, 0, len(records))
	for _, rec := range records {
		if rec.Status != models.StatusResolved {
			result.Skipped++
			continue
		}
		items = append(items, pending{rec: rec})
	}

	failures, err := c.processor.ProcessItems(ctx, items, func(ctx context.Context, item interface{}) error {
		return c.apply(ctx, item.(pending).rec)
	})

	for i, item := range items {
		rec := item.(pending).rec
		if ferr, failed := failures[i]; failed {
			rec.Error = ferr.Error()
			result.Failed++
			result.Errors = append(result.Errors, CommitError{EntityType: rec.EntityType, EntityID: rec.EntityID, Error: rec.Error})
			c.logger.WithFields(logrus.Fields{
				"entity_type": rec.EntityType,
				"entity_id":   rec.EntityID,
			}).WithError(ferr).Error("Failed to apply resolution")
			continue
		}
		if rec.Status == models.StatusApplied {
			result.Applied++
		} else {
			result.Skipped++
		}
	}

	if err != nil {
		return result, fmt.Errorf("commit interrupted: %w", err)
	}
	return result, nil
}

func (c *Committer) apply(ctx context.Context, rec *models.DiscrepancyRecord) error {
	payload := BuildWritePayload(rec)

	writes := []struct {
		system  models.System
		updates map[string]models.Value
	}{
		{models.SystemP6, payload.ToP6},
		{models.SystemEBS, payload.ToEBS},
	}

	for _, w := range writes {
		if len(w.updates) == 0 {
			continue
		}
		if err := c.write(ctx, rec, w.system, w.updates); err != nil {
			return err
		}
	}

	rec.Status = models.StatusApplied
	rec.Error = ""
	return nil
}

func (c *Committer) write(ctx context.Context, rec *models.DiscrepancyRecord, system models.System, updates map[string]models.Value) error {
	writer := c.writers[system]
	if writer == nil {
		return apperrors.NewWriteBackError(fmt.Sprintf("no writer configured for %s", system), nil)
	}

	id := TargetID(rec, system)
	var err error
	if id != "" {
		err = writer.WriteEntity(ctx, rec.EntityType, id, updates)
	} else {
		err = c.create(ctx, rec, system, writer, updates)
	}
	if c.observer != nil {
		c.observer.ObserveWrite(system, err)
	}
	if err != nil {
		return apperrors.NewWriteBackError(fmt.Sprintf("write %s %s to %s", rec.EntityType, rec.EntityID, system), err)
	}
	return nil
}

func (c *Committer) create(ctx context.Context, rec *models.DiscrepancyRecord, system models.System, writer Writer, fields map[string]models.Value) error {
	creator, ok := writer.(Creator)
	if !ok {
		return fmt.Errorf("%s does not support creating %s entities", system, rec.EntityType)
	}
	newID, err := creator.CreateEntity(ctx, rec.EntityType, fields)
	if err != nil {
		return err
	}

	if system == models.SystemEBS {
		rec.EntityIDB = newID
		if c.correlator != nil {
			c.correlator.Correlate(rec.EntityType, rec.EntityID, newID)
		}
	} else if c.correlator != nil {
		c.correlator.Correlate(rec.EntityType, newID, rec.EntityIDB)
	}
	return nil
}

// SupportsCreate reports whether writer can create entities
func SupportsCreate(writer Writer) bool {
	_, ok := writer.(Creator)
	return ok
}
