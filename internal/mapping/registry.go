package mapping

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Snapshot is an immutable view of every registered binding.
// A sync session holds one snapshot for its whole lifetime.
type Snapshot struct {
	bindings map[string]*Binding
}

// Binding returns the binding for an entity type
func (s *Snapshot) Binding(entityType string) (*Binding, bool) {
	b, ok := s.bindings[entityType]
	return b, ok
}

// EntityTypes returns the registered entity types, sorted
func (s *Snapshot) EntityTypes() []string {
	types := make([]string, 0, len(s.bindings))
	for t := range s.bindings {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MapFields projects rec out of sourceSystem into the other system's schema.
// An unknown entity type yields an empty record and ok=false.
func (s *Snapshot) MapFields(entityType string, sourceSystem models.System, rec models.EntityRecord) (models.EntityRecord, bool) {
	b, ok := s.bindings[entityType]
	if !ok {
		return models.EntityRecord{ID: rec.ID, Name: rec.Name, Fields: map[string]models.Value{}}, false
	}
	return b.Map(sourceSystem, rec), true
}

// MapP6ToEBS maps a P6 record into EBS field names
func (s *Snapshot) MapP6ToEBS(entityType string, rec models.EntityRecord) (models.EntityRecord, bool) {
	return s.MapFields(entityType, models.SystemP6, rec)
}

// MapEBSToP6 maps an EBS record into P6 field names
func (s *Snapshot) MapEBSToP6(entityType string, rec models.EntityRecord) (models.EntityRecord, bool) {
	return s.MapFields(entityType, models.SystemEBS, rec)
}

// Registry hands out binding snapshots. Registering swaps in a new snapshot;
// snapshots already handed out are never modified.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry holding the given bindings
func NewRegistry(bindings ...Binding) (*Registry, error) {
	r := &Registry{}
	r.current.Store(&Snapshot{bindings: map[string]*Binding{}})
	for _, b := range bindings {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry creates a registry with the built-in field tables
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultBindings()...)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in mapping: %v", err))
	}
	return r
}

// Register adds or replaces the binding for b.EntityType
func (r *Registry) Register(b Binding) error {
	built, err := NewBinding(b)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	next := make(map[string]*Binding, len(old.bindings)+1)
	for k, v := range old.bindings {
		next[k] = v
	}
	next[built.EntityType] = built
	r.current.Store(&Snapshot{bindings: next})
	return nil
}

// ApplyOverrides replaces field tables from configuration (entity type -> P6 field -> EBS field).
// Id, name and business key fields of existing bindings are kept.
func (r *Registry) ApplyOverrides(tables map[string]map[string]string) error {
	for entityType, table := range tables {
		if len(table) == 0 {
			continue
		}
		b := Binding{EntityType: entityType}
		if existing, ok := r.Snapshot().Binding(entityType); ok {
			b = *existing
		}

		p6Fields := make([]string, 0, len(table))
		for p6 := range table {
			p6Fields = append(p6Fields, p6)
		}
		sort.Strings(p6Fields)

		b.Fields = make([]FieldPair, 0, len(table))
		for _, p6 := range p6Fields {
			b.Fields = append(b.Fields, FieldPair{P6: p6, EBS: table[p6]})
		}
		if err := r.Register(b); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the current immutable view
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// MapFields maps through the current snapshot
func (r *Registry) MapFields(entityType string, sourceSystem models.System, rec models.EntityRecord) (models.EntityRecord, bool) {
	return r.Snapshot().MapFields(entityType, sourceSystem, rec)
}
