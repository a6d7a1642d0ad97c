package mapping

import (
	"fmt"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// FieldPair links a P6 field to its EBS counterpart
type FieldPair struct {
	P6  string `json:"p6"`
	EBS string `json:"ebs"`
}

// Binding is everything the core needs to know about one entity type
type Binding struct {
	EntityType string
	Fields     []FieldPair

	IDFieldP6    string
	IDFieldEBS   string
	NameFieldP6  string
	NameFieldEBS string

	// Business keys used to build id correlations; empty when the type has none
	BusinessKeyP6  string
	BusinessKeyEBS string

	toEBS map[string]string
	toP6  map[string]string
}

// NewBinding validates the field table and builds both lookup directions.
// Each field may appear at most once per side so the reverse table is well defined.
func NewBinding(b Binding) (*Binding, error) {
	if b.EntityType == "" {
		return nil, fmt.Errorf("binding requires an entity type")
	}
	if b.IDFieldP6 == "" {
		b.IDFieldP6 = "id"
	}
	if b.IDFieldEBS == "" {
		b.IDFieldEBS = "id"
	}
	if b.NameFieldP6 == "" {
		b.NameFieldP6 = "name"
	}
	if b.NameFieldEBS == "" {
		b.NameFieldEBS = "name"
	}

	b.toEBS = make(map[string]string, len(b.Fields))
	b.toP6 = make(map[string]string, len(b.Fields))
	fields := make([]FieldPair, 0, len(b.Fields))
	for _, f := range b.Fields {
		if f.P6 == "" || f.EBS == "" {
			return nil, fmt.Errorf("%s: field pair %+v has an empty side", b.EntityType, f)
		}
		if _, dup := b.toEBS[f.P6]; dup {
			return nil, fmt.Errorf("%s: P6 field %q mapped twice", b.EntityType, f.P6)
		}
		if _, dup := b.toP6[f.EBS]; dup {
			return nil, fmt.Errorf("%s: EBS field %q mapped twice", b.EntityType, f.EBS)
		}
		b.toEBS[f.P6] = f.EBS
		b.toP6[f.EBS] = f.P6
		fields = append(fields, f)
	}
	b.Fields = fields
	return &b, nil
}

// IDField returns the id field name of the entity type in the given system
func (b *Binding) IDField(s models.System) string {
	if s == models.SystemP6 {
		return b.IDFieldP6
	}
	return b.IDFieldEBS
}

// NameField returns the name field of the entity type in the given system
func (b *Binding) NameField(s models.System) string {
	if s == models.SystemP6 {
		return b.NameFieldP6
	}
	return b.NameFieldEBS
}

// BusinessKey returns the business key field in the given system
func (b *Binding) BusinessKey(s models.System) string {
	if s == models.SystemP6 {
		return b.BusinessKeyP6
	}
	return b.BusinessKeyEBS
}

// Target returns the counterpart of field when mapping out of system from
func (b *Binding) Target(from models.System, field string) (string, bool) {
	var t string
	var ok bool
	if from == models.SystemP6 {
		t, ok = b.toEBS[field]
	} else {
		t, ok = b.toP6[field]
	}
	return t, ok
}

// Pairs returns the (P6, EBS) field table
func (b *Binding) Pairs() []FieldPair {
	out := make([]FieldPair, len(b.Fields))
	copy(out, b.Fields)
	return out
}

// Map projects rec from system from into the other system's field space.
// Fields without a mapping are dropped.
func (b *Binding) Map(from models.System, rec models.EntityRecord) models.EntityRecord {
	table := b.toEBS
	if from == models.SystemEBS {
		table = b.toP6
	}

	out := models.EntityRecord{ID: rec.ID, Name: rec.Name, Fields: make(map[string]models.Value, len(table))}
	for src, dst := range table {
		if v, ok := rec.Fields[src]; ok {
			out.Fields[dst] = v
		}
	}
	return out
}
