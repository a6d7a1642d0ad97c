package reconcile

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

const unknownName = "Unknown"

// untranslatedPrefix keeps P6 ids without a correlation out of the EBS key space
const untranslatedPrefix = "\x00p6:"

// KeyTranslator maps a P6 id into EBS id space, typically through the correlation store
type KeyTranslator func(idP6 string) (string, bool)

// DetectOptions describes how to compare two collections of one entity type
type DetectOptions struct {
	EntityType string
	IDFieldA   string
	IDFieldB   string
	NameFieldA string
	NameFieldB string
	Fields     []mapping.FieldPair

	// TranslateA, when set, converts P6 ids before they are matched against EBS ids.
	// P6 ids without a translation match nothing and are reported missing in EBS.
	TranslateA KeyTranslator
}

// OptionsFromBinding builds detect options from an entity binding
func OptionsFromBinding(b *mapping.Binding) DetectOptions {
	return DetectOptions{
		EntityType: b.EntityType,
		IDFieldA:   b.IDFieldP6,
		IDFieldB:   b.IDFieldEBS,
		NameFieldA: b.NameFieldP6,
		NameFieldB: b.NameFieldEBS,
		Fields:     b.Pairs(),
	}
}

// ExcludeIDs drops the id field pair from the compared fields. Used when ids
// are matched through TranslateA, where the raw ids never agree.
func (o DetectOptions) ExcludeIDs() DetectOptions {
	fields := make([]mapping.FieldPair, 0, len(o.Fields))
	for _, f := range o.Fields {
		if f.P6 == o.IDFieldA && f.EBS == o.IDFieldB {
			continue
		}
		fields = append(fields, f)
	}
	o.Fields = fields
	return o
}

// Detector computes discrepancies between P6 (A) and EBS (B) records
type Detector struct {
	logger *logrus.Logger
}

// NewDetector creates a detector
func NewDetector(logger *logrus.Logger) *Detector {
	return &Detector{logger: logger}
}

type indexed struct {
	key        string
	id         string
	translated bool
	rec        models.EntityRecord
}

// Detect returns one record per P6 id missing from EBS, one per EBS id missing
// from P6, and one ValueMismatch per shared id with at least one differing mapped field.
// Records without an id are skipped.
func (d *Detector) Detect(entitiesA, entitiesB []models.EntityRecord, opts DetectOptions) []*models.DiscrepancyRecord {
	listA := d.index(entitiesA, opts.IDFieldA, opts.EntityType, models.SystemP6, opts.TranslateA)
	listB := d.index(entitiesB, opts.IDFieldB, opts.EntityType, models.SystemEBS, nil)

	byKeyA := make(map[string]indexed, len(listA))
	for _, e := range listA {
		byKeyA[e.key] = e
	}
	byKeyB := make(map[string]indexed, len(listB))
	for _, e := range listB {
		byKeyB[e.key] = e
	}

	toEBS := make(map[string]string, len(opts.Fields))
	toP6 := make(map[string]string, len(opts.Fields))
	for _, f := range opts.Fields {
		toEBS[f.P6] = f.EBS
		toP6[f.EBS] = f.P6
	}

	var out []*models.DiscrepancyRecord
	seen := make(map[string]bool, len(listA))

	for _, a := range listA {
		if seen[a.key] {
			continue
		}
		seen[a.key] = true
		if _, ok := byKeyB[a.key]; ok {
			continue
		}
		a = byKeyA[a.key]
		rec := &models.DiscrepancyRecord{
			EntityType:      opts.EntityType,
			EntityID:        a.id,
			EntityName:      nameOf(a.rec, opts.NameFieldA),
			DiscrepancyType: models.DiscrepancyMissingInEBS,
			Status:          models.StatusUnresolved,
		}
		if a.translated {
			rec.EntityIDB = a.key
		}
		for _, field := range sortedFields(a.rec) {
			rec.FieldDiscrepancies = append(rec.FieldDiscrepancies, &models.FieldDiscrepancy{
				FieldName:  field,
				FieldA:     field,
				FieldB:     toEBS[field],
				ValueA:     a.rec.Fields[field],
				ValueB:     models.Null(),
				Resolution: models.ResolutionPending,
			})
		}
		out = append(out, rec)
	}

	seenB := make(map[string]bool, len(listB))
	for _, b := range listB {
		if seenB[b.key] {
			continue
		}
		seenB[b.key] = true
		if _, ok := byKeyA[b.key]; ok {
			continue
		}
		b = byKeyB[b.key]
		rec := &models.DiscrepancyRecord{
			EntityType:      opts.EntityType,
			EntityID:        b.id,
			EntityIDB:       b.id,
			EntityName:      nameOf(b.rec, opts.NameFieldB),
			DiscrepancyType: models.DiscrepancyMissingInP6,
			Status:          models.StatusUnresolved,
		}
		for _, field := range sortedFields(b.rec) {
			rec.FieldDiscrepancies = append(rec.FieldDiscrepancies, &models.FieldDiscrepancy{
				FieldName:  field,
				FieldA:     toP6[field],
				FieldB:     field,
				ValueA:     models.Null(),
				ValueB:     b.rec.Fields[field],
				Resolution: models.ResolutionPending,
			})
		}
		out = append(out, rec)
	}

	compared := make(map[string]bool, len(listA))
	for _, a := range listA {
		if compared[a.key] {
			continue
		}
		compared[a.key] = true
		b, ok := byKeyB[a.key]
		if !ok {
			continue
		}
		a = byKeyA[a.key]

		var fields []*models.FieldDiscrepancy
		for _, pair := range opts.Fields {
			va := fieldValue(a.rec, pair.P6)
			vb := fieldValue(b.rec, pair.EBS)
			if va.Equal(vb) {
				continue
			}
			name := pair.P6
			if pair.P6 != pair.EBS {
				name = pair.P6 + " / " + pair.EBS
			}
			fields = append(fields, &models.FieldDiscrepancy{
				FieldName:  name,
				FieldA:     pair.P6,
				FieldB:     pair.EBS,
				ValueA:     va,
				ValueB:     vb,
				Resolution: models.ResolutionPending,
			})
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, &models.DiscrepancyRecord{
			EntityType:         opts.EntityType,
			EntityID:           a.id,
			EntityIDB:          b.id,
			EntityName:         nameOf(a.rec, opts.NameFieldA),
			DiscrepancyType:    models.DiscrepancyValueMismatch,
			Status:             models.StatusUnresolved,
			FieldDiscrepancies: fields,
		})
	}

	return out
}

// index keys every record by its id field, keeping input order. Later rows with
// the same id replace earlier ones in the lookup maps built by the caller. A
// translated key already taken by another id is demoted to the untranslated
// space so both entities are still reported.
func (d *Detector) index(recs []models.EntityRecord, idField, entityType string, system models.System, translate KeyTranslator) []indexed {
	out := make([]indexed, 0, len(recs))
	owner := make(map[string]string, len(recs))
	skipped := 0
	for _, rec := range recs {
		id := rec.ID
		if idField != "" {
			v, ok := rec.Get(idField)
			if !ok {
				skipped++
				continue
			}
			id = v.Canonical()
		}
		if id == "" {
			skipped++
			continue
		}
		e := indexed{key: id, id: id, rec: rec}
		if translate != nil {
			e.key = untranslatedPrefix + id
			if t, ok := translate(id); ok {
				e.key, e.translated = t, true
			}
		}
		if prev, ok := owner[e.key]; ok && prev != id {
			d.logger.WithFields(logrus.Fields{
				"entity_type": entityType,
				"system":      system,
				"key":         e.key,
				"id":          id,
				"other_id":    prev,
			}).Warn("Two records share one match key, matching only the first")
			e.key, e.translated = untranslatedPrefix+id, false
		}
		owner[e.key] = id
		out = append(out, e)
	}
	if skipped > 0 {
		d.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"system":      system,
			"id_field":    idField,
			"skipped":     skipped,
		}).Warn("Skipped records without an id")
	}
	return out
}

func fieldValue(rec models.EntityRecord, field string) models.Value {
	if v, ok := rec.Fields[field]; ok {
		return v
	}
	return models.Null()
}

func nameOf(rec models.EntityRecord, nameField string) string {
	if v, ok := rec.Get(nameField); ok {
		return v.Canonical()
	}
	if rec.Name != "" {
		return rec.Name
	}
	return unknownName
}

func sortedFields(rec models.EntityRecord) []string {
	names := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
