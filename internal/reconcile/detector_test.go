package reconcile

import (
	"fmt"
	"io"
	"math/rand"
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

func budgetOptions() DetectOptions {
	return DetectOptions{
		EntityType: "project",
		IDFieldA:   "id",
		IDFieldB:   "id",
		NameFieldA: "name",
		NameFieldB: "name",
		Fields:     []mapping.FieldPair{{P6: "budget", EBS: "budget"}},
	}
}

func TestDetectMissingInEBS(t *testing.T) {
	d := NewDetector(testLogger())
	a := []models.EntityRecord{models.NewEntityRecord("P1", "A", map[string]interface{}{"id": "P1", "name": "A"})}

	out := d.Detect(a, nil, budgetOptions())
	require.Len(t, out, 1)
	assert.Equal(t, models.DiscrepancyMissingInEBS, out[0].DiscrepancyType)
	assert.Equal(t, models.StatusUnresolved, out[0].Status)
	assert.Equal(t, "P1", out[0].EntityID)
	assert.Equal(t, "A", out[0].EntityName)
	require.Len(t, out[0].FieldDiscrepancies, 2)
	for _, fd := range out[0].FieldDiscrepancies {
		assert.True(t, fd.ValueB.IsNull())
		assert.Equal(t, models.ResolutionPending, fd.Resolution)
	}
}

func TestDetectValueMismatch(t *testing.T) {
	d := NewDetector(testLogger())
	a := []models.EntityRecord{models.NewEntityRecord("P1", "", map[string]interface{}{"id": "P1", "budget": 100})}
	b := []models.EntityRecord{models.NewEntityRecord("P1", "", map[string]interface{}{"id": "P1", "budget": 95})}

	out := d.Detect(a, b, budgetOptions())
	require.Len(t, out, 1)
	rec := out[0]
	assert.Equal(t, models.DiscrepancyValueMismatch, rec.DiscrepancyType)
	assert.Equal(t, "Unknown", rec.EntityName)
	require.Len(t, rec.FieldDiscrepancies, 1)

	fd := rec.FieldDiscrepancies[0]
	assert.Equal(t, "budget", fd.FieldName)
	assert.True(t, fd.ValueA.Equal(models.Int(100)))
	assert.True(t, fd.ValueB.Equal(models.Int(95)))
	assert.Equal(t, models.ResolutionPending, fd.Resolution)
}

func TestDetectEqualAndUnmappedProduceNothing(t *testing.T) {
	d := NewDetector(testLogger())
	a := []models.EntityRecord{
		models.NewEntityRecord("1", "", map[string]interface{}{"id": 1, "budget": "100.00", "extra": "x"}),
		models.NewEntityRecord("2", "", map[string]interface{}{"id": 2}),
	}
	b := []models.EntityRecord{
		models.NewEntityRecord("1", "", map[string]interface{}{"id": "1", "budget": 100, "extra": "y"}),
		models.NewEntityRecord("2", "", map[string]interface{}{"id": "2"}),
	}
	assert.Empty(t, d.Detect(a, b, budgetOptions()))

	opts := budgetOptions()
	opts.Fields = nil
	b[0].Fields["budget"] = models.Int(1)
	assert.Empty(t, d.Detect(a, b, opts))
}

func TestDetectSkipsRecordsWithoutID(t *testing.T) {
	d := NewDetector(testLogger())
	a := []models.EntityRecord{
		models.NewEntityRecord("", "", map[string]interface{}{"budget": 1}),
		models.NewEntityRecord("", "", map[string]interface{}{"id": nil}),
	}
	assert.Empty(t, d.Detect(a, nil, budgetOptions()))
}

func TestDetectMappedFieldNames(t *testing.T) {
	d := NewDetector(testLogger())
	binding, ok := mapping.NewDefaultRegistry().Snapshot().Binding(mapping.EntityResource)
	require.True(t, ok)
	opts := OptionsFromBinding(binding)

	a := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"rsrc_id": 7, "rsrc_name": "Ann", "email_addr": "ann@x.io"})}
	b := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"person_id": 7, "full_name": "Ann", "email_address": "ann@y.io"})}

	out := d.Detect(a, b, opts)
	require.Len(t, out, 1)
	fd := out[0].FieldDiscrepancies
	require.Len(t, fd, 1)
	assert.Equal(t, "email_addr / email_address", fd[0].FieldName)
	assert.Equal(t, "email_addr", fd[0].FieldA)
	assert.Equal(t, "email_address", fd[0].FieldB)
	assert.Equal(t, "Ann", out[0].EntityName)
}

func TestDetectWithTranslator(t *testing.T) {
	d := NewDetector(testLogger())
	opts := budgetOptions()
	opts.TranslateA = func(id string) (string, bool) {
		if id == "P1" {
			return "E1", true
		}
		return "", false
	}

	a := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "P1", "budget": 10})}
	b := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "E1", "budget": 12})}

	out := d.Detect(a, b, opts)
	require.Len(t, out, 1)
	assert.Equal(t, models.DiscrepancyValueMismatch, out[0].DiscrepancyType)
	assert.Equal(t, "P1", out[0].EntityID)
	assert.Equal(t, "E1", out[0].EntityIDB)
}

func TestDetectUncorrelatedIDDoesNotShadowTranslatedID(t *testing.T) {
	d := NewDetector(testLogger())
	opts := budgetOptions()
	opts.TranslateA = func(id string) (string, bool) {
		if id == "P2" {
			return "E1", true
		}
		return "", false
	}

	a := []models.EntityRecord{
		models.NewEntityRecord("", "", map[string]interface{}{"id": "E1", "budget": 1}),
		models.NewEntityRecord("", "", map[string]interface{}{"id": "P2", "budget": 2}),
	}

	out := d.Detect(a, nil, opts)
	require.Len(t, out, 2)
	assert.Equal(t, models.DiscrepancyMissingInEBS, out[0].DiscrepancyType)
	assert.Equal(t, "E1", out[0].EntityID)
	assert.Empty(t, out[0].EntityIDB)
	assert.Equal(t, models.DiscrepancyMissingInEBS, out[1].DiscrepancyType)
	assert.Equal(t, "P2", out[1].EntityID)
	assert.Equal(t, "E1", out[1].EntityIDB)
}

func TestDetectUncorrelatedIDNeverMatchesRawEBSID(t *testing.T) {
	d := NewDetector(testLogger())
	opts := budgetOptions()
	opts.TranslateA = func(string) (string, bool) { return "", false }

	a := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "1001", "budget": 1})}
	b := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "1001", "budget": 2})}

	s := models.Summarize(d.Detect(a, b, opts))
	assert.Equal(t, 1, s.MissingInEBS)
	assert.Equal(t, 1, s.MissingInP6)
	assert.Zero(t, s.ValueMismatch)
}

func TestDetectTwoIDsTranslatedToOneKey(t *testing.T) {
	d := NewDetector(testLogger())
	opts := budgetOptions()
	opts.TranslateA = func(string) (string, bool) { return "E1", true }

	a := []models.EntityRecord{
		models.NewEntityRecord("", "", map[string]interface{}{"id": "P1", "budget": 5}),
		models.NewEntityRecord("", "", map[string]interface{}{"id": "P2", "budget": 5}),
	}
	b := []models.EntityRecord{models.NewEntityRecord("", "", map[string]interface{}{"id": "E1", "budget": 5})}

	out := d.Detect(a, b, opts)
	require.Len(t, out, 1)
	assert.Equal(t, models.DiscrepancyMissingInEBS, out[0].DiscrepancyType)
	assert.Equal(t, "P2", out[0].EntityID)
}

func TestDetectPartitionProperty(t *testing.T) {
	d := NewDetector(testLogger())
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 25; round++ {
		var a, b []models.EntityRecord
		onlyA, onlyB, changed := 0, 0, 0
		for i := 0; i < 40; i++ {
			id := fmt.Sprintf("ID%d", i)
			switch rng.Intn(4) {
			case 0:
				a = append(a, models.NewEntityRecord(id, "", map[string]interface{}{"id": id, "budget": i}))
				onlyA++
			case 1:
				b = append(b, models.NewEntityRecord(id, "", map[string]interface{}{"id": id, "budget": i}))
				onlyB++
			case 2:
				a = append(a, models.NewEntityRecord(id, "", map[string]interface{}{"id": id, "budget": i}))
				b = append(b, models.NewEntityRecord(id, "", map[string]interface{}{"id": id, "budget": i}))
			default:
				a = append(a, models.NewEntityRecord(id, "", map[string]interface{}{"id": id, "budget": i}))
				b = append(b, models.NewEntityRecord(id, "", map[string]interface{}{"id": id, "budget": i + 1}))
				changed++
			}
		}

		s := models.Summarize(d.Detect(a, b, budgetOptions()))
		assert.Equal(t, onlyA, s.MissingInEBS)
		assert.Equal(t, onlyB, s.MissingInP6)
		assert.Equal(t, changed, s.ValueMismatch)
	}
}

func TestExcludeIDs(t *testing.T) {
	opts := DetectOptions{
		IDFieldA: "proj_id",
		IDFieldB: "project_id",
		Fields: []mapping.FieldPair{
			{P6: "proj_id", EBS: "project_id"},
			{P6: "proj_name", EBS: "project_name"},
		},
	}

	trimmed := opts.ExcludeIDs()

	assert.Equal(t, []mapping.FieldPair{{P6: "proj_name", EBS: "project_name"}}, trimmed.Fields)
	assert.Len(t, opts.Fields, 2)
}
