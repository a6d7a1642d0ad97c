package integration

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/source"
	"github.com/tpcgrp/p6ebs-sync/internal/transform"
)

// transferResult counts the entities a transfer wrote, failed to write or
// left for a later run
type transferResult struct {
	updated int
	failed  int
	waiting int
}

type transferFunc func(r *Runner, ctx context.Context, session *models.SyncSession, logger *logrus.Entry) (transferResult, error)

type transfer struct {
	entityType string
	run        transferFunc
}

// transfers move data that is not reconciled field by field. They run after
// commit, so correlations created during commit are visible to them.
var transfers = map[string]transfer{
	config.ProjectFinancials: {transform.EntityFinancial, (*Runner).transferFinancials},
	config.Timesheet:         {mapping.EntityTimesheet, (*Runner).exportTimesheets},
}

// transferFinancials pairs financial summaries through project correlations,
// merges each pair for the session direction and writes the changed amounts.
// Pairs missing on either side are left alone.
func (r *Runner) transferFinancials(ctx context.Context, session *models.SyncSession, logger *logrus.Entry) (transferResult, error) {
	var res transferResult
	p6, ebs, err := r.fetch(ctx, transform.EntityFinancial)
	if apperrors.IsMappingGap(err) {
		logger.Warn("No source query for financials, skipping transfer")
		return res, nil
	}
	if err != nil {
		return res, err
	}

	ebsByID := make(map[string]models.EntityRecord, len(ebs))
	for _, rec := range ebs {
		ebsByID[rec.ID] = rec
	}
	policy := transform.MergePolicy{Priority: r.Provider.Get().MergePriority}

	unpaired := 0
	for _, p6rec := range p6 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		idEBS, ok := r.Correlations.LookupEBS(mapping.EntityProject, p6rec.ID)
		if !ok {
			unpaired++
			continue
		}
		ebsRec, ok := ebsByID[idEBS]
		if !ok {
			unpaired++
			continue
		}

		merged := r.Transformer.TransformFinancial(&p6rec, &ebsRec, session.Direction, policy)

		var writes []pendingWrite
		switch session.Direction {
		case models.DirectionP6ToEBS:
			writes = append(writes, pendingWrite{models.SystemEBS, idEBS, changedFields(merged, ebsRec, false)})
		case models.DirectionEBSToP6:
			writes = append(writes, pendingWrite{models.SystemP6, p6rec.ID, changedFields(merged, p6rec, false)})
		default:
			writes = append(writes,
				pendingWrite{models.SystemP6, p6rec.ID, changedFields(merged, p6rec, true)},
				pendingWrite{models.SystemEBS, idEBS, changedFields(merged, ebsRec, true)})
		}

		written, failed := r.applyWrites(ctx, transform.EntityFinancial, writes, logger)
		switch {
		case failed:
			res.failed++
		case written:
			res.updated++
		}
	}

	logger.WithFields(logrus.Fields{
		"updated":  res.updated,
		"failed":   res.failed,
		"unpaired": unpaired,
		"priority": policy.Priority,
	}).Info("Financial transfer finished")
	return res, nil
}

// exportTimesheets creates an EBS timecard for every P6 timesheet line not
// exported before. A line is exported once its activity and resource are
// correlated; the rest wait for a later run.
func (r *Runner) exportTimesheets(ctx context.Context, session *models.SyncSession, logger *logrus.Entry) (transferResult, error) {
	var res transferResult
	if session.Direction == models.DirectionEBSToP6 {
		return res, nil
	}

	fctx, cancel := context.WithTimeout(ctx, r.Config.FetchTimeout)
	lines, err := r.P6.FetchEntities(fctx, mapping.EntityTimesheet)
	cancel()
	if apperrors.IsMappingGap(err) {
		logger.Warn("No source query for timesheets, skipping export")
		return res, nil
	}
	if err != nil {
		return res, r.fetchError(models.SystemP6, mapping.EntityTimesheet, err)
	}

	creator, ok := r.EBS.(source.Creator)
	if !ok || !source.CanCreate(r.EBS) {
		logger.WithField("lines", len(lines)).Warn("EBS connector cannot create timecards, skipping export")
		return res, nil
	}

	references := []struct{ field, entityType string }{
		{"activity_id", mapping.EntityActivity},
		{"rsrc_id", mapping.EntityResource},
	}

next:
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, done := r.Correlations.LookupEBS(mapping.EntityTimesheet, line.ID); done {
			continue
		}

		ts := r.Transformer.TransformTimesheet(line)
		for _, ref := range references {
			v, ok := ts.Get(ref.field)
			if !ok {
				continue
			}
			idEBS, ok := r.Correlations.LookupEBS(ref.entityType, v.Canonical())
			if !ok {
				res.waiting++
				continue next
			}
			ts.Fields[ref.field] = models.String(idEBS)
		}

		timecard, err := r.Transformer.Transform(mapping.EntityTimesheet, ts, models.SystemP6, models.SystemEBS)
		if err != nil {
			return res, err
		}

		newID, err := creator.CreateEntity(ctx, mapping.EntityTimesheet, timecard.Fields)
		r.Metrics.ObserveWrite(models.SystemEBS, err)
		if err != nil {
			res.failed++
			logger.WithField("timesheet_id", line.ID).WithError(err).Error("Failed to export timesheet line")
			continue
		}
		r.Correlations.Correlate(mapping.EntityTimesheet, line.ID, newID)
		res.updated++
	}

	logger.WithFields(logrus.Fields{
		"exported": res.updated,
		"failed":   res.failed,
		"waiting":  res.waiting,
	}).Info("Timesheet export finished")
	return res, nil
}

type pendingWrite struct {
	system  models.System
	id      string
	updates map[string]models.Value
}

// applyWrites sends every non-empty write. It reports whether anything was
// written and whether any write failed.
func (r *Runner) applyWrites(ctx context.Context, entityType string, writes []pendingWrite, logger *logrus.Entry) (written, failed bool) {
	for _, w := range writes {
		if len(w.updates) == 0 {
			continue
		}
		target := r.P6
		if w.system == models.SystemEBS {
			target = r.EBS
		}
		err := target.WriteEntity(ctx, entityType, w.id, w.updates)
		r.Metrics.ObserveWrite(w.system, err)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"entity_type": entityType,
				"entity_id":   w.id,
				"system":      w.system,
			}).WithError(err).Error("Failed to write transferred fields")
			failed = true
			continue
		}
		written = true
	}
	return written, failed
}

// changedFields returns the fields of rec whose value differs in current.
// With existingOnly, fields current does not carry are left out.
func changedFields(rec, current models.EntityRecord, existingOnly bool) map[string]models.Value {
	out := make(map[string]models.Value)
	for k, v := range rec.Fields {
		cur, ok := current.Fields[k]
		if !ok && existingOnly {
			continue
		}
		if ok && cur.Equal(v) {
			continue
		}
		out[k] = v
	}
	return out
}
