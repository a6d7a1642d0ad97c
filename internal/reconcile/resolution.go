package reconcile

import (
	"fmt"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// ApplyResolution sets action on the named fields of rec, or on the fields marked
// Selected when fieldNames is empty. Custom requires customValue. When no field
// remains Pending the record moves from Unresolved to Resolved.
func ApplyResolution(rec *models.DiscrepancyRecord, fieldNames []string, action models.Resolution, customValue *models.Value) error {
	if rec.Status == models.StatusApplied {
		return apperrors.NewValidationError(fmt.Sprintf("discrepancy for %s %s is already applied", rec.EntityType, rec.EntityID), nil)
	}
	if !action.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown resolution action %q", action), nil)
	}
	if action == models.ResolutionCustom && customValue == nil {
		return apperrors.NewValidationError("custom resolution requires a value", nil)
	}

	var targets []*models.FieldDiscrepancy
	if len(fieldNames) == 0 {
		for _, fd := range rec.FieldDiscrepancies {
			if fd.Selected {
				targets = append(targets, fd)
			}
		}
	} else {
		for _, name := range fieldNames {
			fd := rec.Field(name)
			if fd == nil {
				return apperrors.NewNotFoundError(fmt.Sprintf("field %q not found on discrepancy for %s", name, rec.EntityID), nil)
			}
			targets = append(targets, fd)
		}
	}
	if len(targets) == 0 {
		return apperrors.NewValidationError("select at least one field to resolve", nil)
	}

	for _, fd := range targets {
		fd.Resolution = action
		if action == models.ResolutionCustom {
			v := *customValue
			fd.CustomValue = &v
		} else {
			fd.CustomValue = nil
		}
	}

	if rec.Status == models.StatusUnresolved && rec.AllResolved() {
		rec.Status = models.StatusResolved
	}
	return nil
}

// ResolveAll applies action to every Pending field of rec
func ResolveAll(rec *models.DiscrepancyRecord, action models.Resolution) error {
	var names []string
	for _, fd := range rec.FieldDiscrepancies {
		if fd.Resolution == models.ResolutionPending || fd.Resolution == "" {
			names = append(names, fd.FieldName)
		}
	}
	if len(names) == 0 {
		if rec.Status == models.StatusUnresolved && rec.AllResolved() {
			rec.Status = models.StatusResolved
		}
		return nil
	}
	return ApplyResolution(rec, names, action, nil)
}

// PolicyFor returns the automatic resolution used by scheduled runs for a direction.
// BIDIRECTIONAL follows the merge priority and lets EBS win.
func PolicyFor(direction models.Direction, priority models.System) models.Resolution {
	switch direction {
	case models.DirectionP6ToEBS:
		return models.ResolutionUseA
	case models.DirectionEBSToP6:
		return models.ResolutionUseB
	default:
		if priority == models.SystemP6 {
			return models.ResolutionUseA
		}
		return models.ResolutionUseB
	}
}

// WritePayload is the field updates a resolved record produces for each system
type WritePayload struct {
	ToP6  map[string]models.Value `json:"to_p6,omitempty"`
	ToEBS map[string]models.Value `json:"to_ebs,omitempty"`
}

// Empty reports whether the payload writes nothing
func (p WritePayload) Empty() bool {
	return len(p.ToP6) == 0 && len(p.ToEBS) == 0
}

// BuildWritePayload derives the writes for rec: UseA copies the P6 value to EBS,
// UseB copies the EBS value to P6, Custom writes the custom value to both and
// Ignore writes nothing. Fields without a counterpart in the target are skipped,
// as are null values on records describing a missing entity.
func BuildWritePayload(rec *models.DiscrepancyRecord) WritePayload {
	p := WritePayload{ToP6: map[string]models.Value{}, ToEBS: map[string]models.Value{}}
	missing := rec.DiscrepancyType != models.DiscrepancyValueMismatch

	put := func(dst map[string]models.Value, field string, v models.Value) {
		if field == "" || (missing && v.IsNull()) {
			return
		}
		dst[field] = v
	}

	for _, fd := range rec.FieldDiscrepancies {
		switch fd.Resolution {
		case models.ResolutionUseA:
			put(p.ToEBS, fd.FieldB, fd.ValueA)
		case models.ResolutionUseB:
			put(p.ToP6, fd.FieldA, fd.ValueB)
		case models.ResolutionCustom:
			if fd.CustomValue != nil {
				put(p.ToP6, fd.FieldA, *fd.CustomValue)
				put(p.ToEBS, fd.FieldB, *fd.CustomValue)
			}
		}
	}
	return p
}

// TargetID returns the id of rec's entity in system s, or "" when it does not exist there
func TargetID(rec *models.DiscrepancyRecord, s models.System) string {
	switch rec.DiscrepancyType {
	case models.DiscrepancyMissingInP6:
		if s == models.SystemP6 {
			return ""
		}
		return rec.EntityIDB
	case models.DiscrepancyMissingInEBS:
		if s == models.SystemP6 {
			return rec.EntityID
		}
		return ""
	default:
		if s == models.SystemP6 {
			return rec.EntityID
		}
		if rec.EntityIDB != "" {
			return rec.EntityIDB
		}
		return rec.EntityID
	}
}
