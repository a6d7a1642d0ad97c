package correlation

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Correlations is entity type -> P6 id -> EBS id
type Correlations map[string]map[string]string

// Persister loads and saves correlations. A missing store loads as empty.
type Persister interface {
	LoadCorrelations(ctx context.Context) (Correlations, error)
	SaveCorrelations(ctx context.Context, c Correlations) error
}

// Store is the single writer of id correlations. It keeps a reverse index
// per entity type next to the forward map.
type Store struct {
	mu        sync.RWMutex
	forward   map[string]map[string]string
	reverse   map[string]map[string]string
	persister Persister
	logger    *logrus.Logger
}

// NewStore creates an empty store. persister may be nil.
func NewStore(persister Persister, logger *logrus.Logger) *Store {
	return &Store{
		forward:   make(map[string]map[string]string),
		reverse:   make(map[string]map[string]string),
		persister: persister,
		logger:    logger,
	}
}

// Load replaces the in-memory correlations with the persisted ones
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.LoadCorrelations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load id correlations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.forward = make(map[string]map[string]string, len(loaded))
	s.reverse = make(map[string]map[string]string, len(loaded))
	count := 0
	for entityType, pairs := range loaded {
		for idP6, idEBS := range pairs {
			s.correlateLocked(entityType, idP6, idEBS)
			count++
		}
	}
	s.logger.WithField("correlations", count).Info("Loaded id correlations")
	return nil
}

// Save persists the current correlations
func (s *Store) Save(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.SaveCorrelations(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("failed to save id correlations: %w", err)
	}
	return nil
}

// Correlate records idP6 <-> idEBS, replacing any prior entry for (entityType, idP6)
func (s *Store) Correlate(entityType, idP6, idEBS string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correlateLocked(entityType, idP6, idEBS)
}

func (s *Store) correlateLocked(entityType, idP6, idEBS string) {
	fwd, ok := s.forward[entityType]
	if !ok {
		fwd = make(map[string]string)
		s.forward[entityType] = fwd
	}
	rev, ok := s.reverse[entityType]
	if !ok {
		rev = make(map[string]string)
		s.reverse[entityType] = rev
	}

	if prev, ok := fwd[idP6]; ok && prev != idEBS && rev[prev] == idP6 {
		delete(rev, prev)
		for otherP6, otherEBS := range fwd {
			if otherP6 != idP6 && otherEBS == prev {
				rev[prev] = otherP6
				break
			}
		}
	}
	if prevP6, ok := rev[idEBS]; ok && prevP6 != idP6 {
		// another P6 id still points at idEBS; only the reverse entry moves
		s.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"ebs_id":      idEBS,
			"p6_id":       prevP6,
		}).Debug("EBS id re-correlated to a different P6 id")
	}
	fwd[idP6] = idEBS
	rev[idEBS] = idP6
}

// LookupEBS returns the EBS id correlated with a P6 id
func (s *Store) LookupEBS(entityType, idP6 string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.forward[entityType][idP6]
	return id, ok
}

// LookupP6 returns the P6 id correlated with an EBS id
func (s *Store) LookupP6(entityType, idEBS string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.reverse[entityType][idEBS]
	return id, ok
}

// Lookup returns the counterpart of id, which belongs to system from
func (s *Store) Lookup(entityType string, from models.System, id string) (string, bool) {
	if from == models.SystemP6 {
		return s.LookupEBS(entityType, id)
	}
	return s.LookupP6(entityType, id)
}

// MatchByBusinessKey correlates P6 and EBS entities whose business keys are equal
// and persists the result. Returns the P6 id -> EBS id pairs found in this call.
func (s *Store) MatchByBusinessKey(ctx context.Context, entityType string, p6, ebs []models.EntityRecord, keyFieldP6, keyFieldEBS string) (map[string]string, error) {
	index := make(map[string]string, len(ebs))
	for _, rec := range ebs {
		key, ok := rec.Get(keyFieldEBS)
		if !ok || rec.ID == "" {
			continue
		}
		index[key.Canonical()] = rec.ID
	}

	matches := make(map[string]string)
	s.mu.Lock()
	for _, rec := range p6 {
		key, ok := rec.Get(keyFieldP6)
		if !ok || rec.ID == "" {
			continue
		}
		if idEBS, found := index[key.Canonical()]; found {
			s.correlateLocked(entityType, rec.ID, idEBS)
			matches[rec.ID] = idEBS
		}
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"entity_type": entityType,
		"matched":     len(matches),
		"p6_count":    len(p6),
		"ebs_count":   len(ebs),
	}).Info("Matched entities by business key")

	if len(matches) == 0 {
		return matches, nil
	}
	return matches, s.Save(ctx)
}

// Snapshot returns a deep copy of the forward correlations
func (s *Store) Snapshot() Correlations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Correlations, len(s.forward))
	for entityType, pairs := range s.forward {
		cp := make(map[string]string, len(pairs))
		for k, v := range pairs {
			cp[k] = v
		}
		out[entityType] = cp
	}
	return out
}

// Count returns the number of correlations for an entity type
func (s *Store) Count(entityType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forward[entityType])
}

// Clear drops every correlation for an entity type, or all of them when entityType is empty
func (s *Store) Clear(entityType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entityType == "" {
		s.forward = make(map[string]map[string]string)
		s.reverse = make(map[string]map[string]string)
		return
	}
	delete(s.forward, entityType)
	delete(s.reverse, entityType)
}
