package integration

import (
	"context"
	"sync"
	"time"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// HistoryStore persists sync records. Implementations must be safe for
// concurrent use; a reader never sees a partially appended record.
type HistoryStore interface {
	Append(ctx context.Context, rec models.SyncRecord) error
	// List returns records in insertion order; an empty type returns all
	List(ctx context.Context, integrationType string) ([]models.SyncRecord, error)
	// LastSyncTimes returns the end time of the latest completed record per type
	LastSyncTimes(ctx context.Context) (map[string]time.Time, error)
}

// MemoryHistory is an in-process HistoryStore
type MemoryHistory struct {
	mu      sync.RWMutex
	records []models.SyncRecord
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Append(ctx context.Context, rec models.SyncRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *MemoryHistory) List(ctx context.Context, integrationType string) ([]models.SyncRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.SyncRecord, 0, len(h.records))
	for _, r := range h.records {
		if integrationType == "" || r.SyncType == integrationType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (h *MemoryHistory) LastSyncTimes(ctx context.Context) (map[string]time.Time, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]time.Time)
	for _, r := range h.records {
		if r.Status != models.SessionCompleted {
			continue
		}
		if r.EndTime.After(out[r.SyncType]) {
			out[r.SyncType] = r.EndTime
		}
	}
	return out, nil
}
