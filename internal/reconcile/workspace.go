package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// DiscrepancySet is the result of one interactive compare, kept until committed or expired
type DiscrepancySet struct {
	ID         string                      `json:"id"`
	EntityType string                      `json:"entity_type"`
	CreatedAt  time.Time                   `json:"created_at"`
	Records    []*models.DiscrepancyRecord `json:"records"`
	Summary    models.DiscrepancySummary   `json:"summary"`

	mu sync.Mutex
}

// Workspace holds discrepancy sets for operators to resolve and commit
type Workspace struct {
	mu   sync.RWMutex
	sets map[string]*DiscrepancySet
	ttl  time.Duration
}

// NewWorkspace creates a workspace; sets older than ttl are dropped on access
func NewWorkspace(ttl time.Duration) *Workspace {
	return &Workspace{sets: make(map[string]*DiscrepancySet), ttl: ttl}
}

// Put stores records as a new set
func (w *Workspace) Put(entityType string, records []*models.DiscrepancyRecord) *DiscrepancySet {
	set := &DiscrepancySet{
		ID:         uuid.NewString(),
		EntityType: entityType,
		CreatedAt:  time.Now(),
		Records:    records,
		Summary:    models.Summarize(records),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked()
	w.sets[set.ID] = set
	return set
}

// Get returns a set by id
func (w *Workspace) Get(id string) (*DiscrepancySet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked()
	set, ok := w.sets[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("discrepancy set %s not found", id), nil)
	}
	return set, nil
}

// List returns every live set, newest first
func (w *Workspace) List() []*DiscrepancySet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked()
	out := make([]*DiscrepancySet, 0, len(w.sets))
	for _, s := range w.sets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete drops a set
func (w *Workspace) Delete(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sets, id)
}

func (w *Workspace) expireLocked() {
	if w.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-w.ttl)
	for id, s := range w.sets {
		if s.CreatedAt.Before(cutoff) {
			delete(w.sets, id)
		}
	}
}

// Resolve applies a resolution to one record of the set. discrepancyType may be
// empty when entityID is unambiguous.
func (s *DiscrepancySet) Resolve(entityID string, discrepancyType models.DiscrepancyType, fields []string, action models.Resolution, custom *models.Value) (*models.DiscrepancyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.findLocked(entityID, discrepancyType)
	if err != nil {
		return nil, err
	}
	if err := ApplyResolution(rec, fields, action, custom); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *DiscrepancySet) findLocked(entityID string, discrepancyType models.DiscrepancyType) (*models.DiscrepancyRecord, error) {
	var match *models.DiscrepancyRecord
	for _, rec := range s.Records {
		if rec.EntityID != entityID {
			continue
		}
		if discrepancyType != "" && rec.DiscrepancyType != discrepancyType {
			continue
		}
		if match != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("entity %s is ambiguous, specify the discrepancy type", entityID), nil)
		}
		match = rec
	}
	if match == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no discrepancy for entity %s", entityID), nil)
	}
	return match, nil
}

// Commit applies the set's resolved records through c
func (s *DiscrepancySet) Commit(ctx context.Context, c *Committer) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.Commit(ctx, s.Records)
}

// Snapshot returns a copy of the set's records safe to read while operators keep resolving
func (s *DiscrepancySet) Snapshot() []*models.DiscrepancyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DiscrepancyRecord, len(s.Records))
	for i, rec := range s.Records {
		cp := *rec
		cp.FieldDiscrepancies = make([]*models.FieldDiscrepancy, len(rec.FieldDiscrepancies))
		for j, fd := range rec.FieldDiscrepancies {
			fcp := *fd
			cp.FieldDiscrepancies[j] = &fcp
		}
		out[i] = &cp
	}
	return out
}
