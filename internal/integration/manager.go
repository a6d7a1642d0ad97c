package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// CorrelationSaver persists the correlation store
type CorrelationSaver interface {
	Save(ctx context.Context) error
}

// Manager owns the lifecycle of sync sessions and the sync history
type Manager struct {
	provider     *config.Provider
	history      HistoryStore
	correlations CorrelationSaver
	logger       *logrus.Logger

	mu       sync.RWMutex
	active   map[string]*models.SyncSession
	lastSync map[string]time.Time
}

// NewManager creates a manager. correlations may be nil.
func NewManager(provider *config.Provider, history HistoryStore, correlations CorrelationSaver, logger *logrus.Logger) *Manager {
	return &Manager{
		provider:     provider,
		history:      history,
		correlations: correlations,
		logger:       logger,
		active:       make(map[string]*models.SyncSession),
		lastSync:     make(map[string]time.Time),
	}
}

// Restore loads the last sync times from the history store
func (m *Manager) Restore(ctx context.Context) error {
	times, err := m.history.LastSyncTimes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load last sync times: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for t, ts := range times {
		m.lastSync[t] = ts
	}
	return nil
}

// Start opens an InProgress session. A second session for a type that
// already has one is rejected.
func (m *Manager) Start(integrationType string, params map[string]string) (*models.SyncSession, error) {
	direction := m.provider.DirectionFor(integrationType)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[integrationType]; busy {
		return nil, apperrors.NewSyncInProgressError(integrationType)
	}
	session := models.NewSyncSession(integrationType, direction, params)
	m.active[integrationType] = session

	m.logger.WithFields(logrus.Fields{
		"integration_type": integrationType,
		"session_id":       session.ID,
		"direction":        direction,
	}).Info("Sync session started")
	return session, nil
}

// Complete closes the session as Completed, appends its history record,
// records the last sync time and persists correlations
func (m *Manager) Complete(ctx context.Context, session *models.SyncSession, results map[string]interface{}) error {
	session.EndTime = time.Now()
	session.Status = models.SessionCompleted
	for k, v := range results {
		session.Results[k] = v
	}

	m.mu.Lock()
	m.lastSync[session.SyncType] = session.EndTime
	m.mu.Unlock()

	err := m.finish(ctx, session)

	if m.correlations != nil {
		if cerr := m.correlations.Save(ctx); cerr != nil {
			m.logger.WithField("session_id", session.ID).WithError(cerr).Error("Failed to persist correlations")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"integration_type": session.SyncType,
		"session_id":       session.ID,
		"duration":         session.EndTime.Sub(session.StartTime).String(),
	}).Info("Sync session completed")
	return err
}

// Fail closes the session as Failed. The record is appended to history but
// the last sync time is left unchanged.
func (m *Manager) Fail(ctx context.Context, session *models.SyncSession, cause error) error {
	session.EndTime = time.Now()
	session.Status = models.SessionFailed
	if cause != nil {
		session.ErrorMessage = cause.Error()
	}

	m.logger.WithFields(logrus.Fields{
		"integration_type": session.SyncType,
		"session_id":       session.ID,
	}).WithError(cause).Error("Sync session failed")
	return m.finish(ctx, session)
}

func (m *Manager) finish(ctx context.Context, session *models.SyncSession) error {
	m.mu.Lock()
	if m.active[session.SyncType] == session {
		delete(m.active, session.SyncType)
	}
	m.mu.Unlock()

	if err := m.history.Append(ctx, models.RecordFromSession(session)); err != nil {
		return fmt.Errorf("failed to append sync record: %w", err)
	}
	return nil
}

// ActiveSession returns the in-progress session of a type
func (m *Manager) ActiveSession(integrationType string) (*models.SyncSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.active[integrationType]
	return s, ok
}

// ActiveTypes returns the types with a session in progress, sorted
func (m *Manager) ActiveTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.active))
	for t := range m.active {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// History returns the records of a type, or all records for an empty type,
// in insertion order
func (m *Manager) History(ctx context.Context, integrationType string) ([]models.SyncRecord, error) {
	return m.history.List(ctx, integrationType)
}

// LastSyncTime returns when the type last completed
func (m *Manager) LastSyncTime(integrationType string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.lastSync[integrationType]
	return t, ok
}

// IsSyncNeeded reports whether the type never synced or either system changed
// after the last sync
func (m *Manager) IsSyncNeeded(integrationType string, lastChangeP6, lastChangeEBS time.Time) bool {
	last, ok := m.LastSyncTime(integrationType)
	if !ok {
		return true
	}
	return lastChangeP6.After(last) || lastChangeEBS.After(last)
}

// SortByStartDesc orders records newest first
func SortByStartDesc(records []models.SyncRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.After(records[j].StartTime)
	})
}
