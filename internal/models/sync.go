package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the state of a SyncSession
type SessionStatus string

const (
	SessionCreated    SessionStatus = "Created"
	SessionInProgress SessionStatus = "InProgress"
	SessionCompleted  SessionStatus = "Completed"
	SessionFailed     SessionStatus = "Failed"
)

// Result keys shared by the runner, history and reports
const (
	ResultTotalEntities   = "totalEntities"
	ResultUpdatedEntities = "updatedEntities"
	ResultFailedEntities  = "failedEntities"
	ResultDiscrepancies   = "discrepancies"
	ResultSkippedRecords  = "skippedRecords"
)

// SyncSession is one in-flight synchronization of an integration type
type SyncSession struct {
	ID           uuid.UUID              `json:"session_id"`
	SyncType     string                 `json:"sync_type"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time,omitempty"`
	Direction    Direction              `json:"direction"`
	Status       SessionStatus          `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Params       map[string]string      `json:"params,omitempty"`
	Results      map[string]interface{} `json:"results,omitempty"`
}

// NewSyncSession creates an InProgress session with a fresh id
func NewSyncSession(syncType string, direction Direction, params map[string]string) *SyncSession {
	return &SyncSession{
		ID:        uuid.New(),
		SyncType:  syncType,
		StartTime: time.Now(),
		Direction: direction,
		Status:    SessionInProgress,
		Params:    params,
		Results:   make(map[string]interface{}),
	}
}

// SyncRecord is the immutable history entry derived from a finished session
type SyncRecord struct {
	SessionID         string        `json:"session_id"`
	SyncType          string        `json:"sync_type"`
	Direction         Direction     `json:"direction"`
	Status            SessionStatus `json:"status"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	Duration          time.Duration `json:"duration"`
	EntitiesProcessed int           `json:"entities_processed"`
	EntitiesUpdated   int           `json:"entities_updated"`
	EntitiesFailed    int           `json:"entities_failed"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	Details           string        `json:"details,omitempty"`
}

// RecordFromSession converts a finished session into its history record
func RecordFromSession(s *SyncSession) SyncRecord {
	rec := SyncRecord{
		SessionID:    s.ID.String(),
		SyncType:     s.SyncType,
		Direction:    s.Direction,
		Status:       s.Status,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Duration:     s.EndTime.Sub(s.StartTime),
		ErrorMessage: s.ErrorMessage,
	}
	rec.EntitiesProcessed = resultInt(s.Results, ResultTotalEntities)
	rec.EntitiesUpdated = resultInt(s.Results, ResultUpdatedEntities)
	rec.EntitiesFailed = resultInt(s.Results, ResultFailedEntities)
	if len(s.Results) > 0 {
		if data, err := json.Marshal(s.Results); err == nil {
			rec.Details = string(data)
		}
	}
	return rec
}

func resultInt(results map[string]interface{}, key string) int {
	switch v := results[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (r SyncRecord) String() string {
	return fmt.Sprintf("%s %s %s (%s) processed=%d updated=%d failed=%d",
		r.StartTime.Format(time.RFC3339), r.SyncType, r.Status, r.Duration.Round(time.Millisecond),
		r.EntitiesProcessed, r.EntitiesUpdated, r.EntitiesFailed)
}

// SyncResult is returned by a run of an integration type
type SyncResult struct {
	SessionID       string             `json:"session_id,omitempty"`
	IntegrationType string             `json:"integration_type"`
	Status          string             `json:"status"` // completed, failed, skipped, cancelled
	TotalEntities   int                `json:"total_entities"`
	UpdatedEntities int                `json:"updated_entities"`
	FailedEntities  int                `json:"failed_entities"`
	SkippedRecords  int                `json:"skipped_records"`
	Discrepancies   DiscrepancySummary `json:"discrepancies"`
	Validation      *ValidationReport  `json:"validation,omitempty"`
	Error           string             `json:"error,omitempty"`
	StartTime       time.Time          `json:"start_time"`
	EndTime         time.Time          `json:"end_time"`
}

const (
	ResultStatusCompleted = "completed"
	ResultStatusFailed    = "failed"
	ResultStatusSkipped   = "skipped"
	ResultStatusCancelled = "cancelled"
)

// ScheduleInfo describes the recurring schedule of one integration type
type ScheduleInfo struct {
	IntegrationType string     `json:"integration_type"`
	IntervalHours   float64    `json:"interval_hours"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
	Active          bool       `json:"active"`
	LastError       string     `json:"last_error,omitempty"`
}
