package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

const recordColumns = `session_id, sync_type, direction, status, start_time, end_time, duration_ms,
	entities_processed, entities_updated, entities_failed, error_message, details`

// Append stores one finished session. Re-appending a session id overwrites it.
func (s *PostgresStore) Append(ctx context.Context, rec models.SyncRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id) DO UPDATE SET
			status = EXCLUDED.status,
			end_time = EXCLUDED.end_time,
			duration_ms = EXCLUDED.duration_ms,
			entities_processed = EXCLUDED.entities_processed,
			entities_updated = EXCLUDED.entities_updated,
			entities_failed = EXCLUDED.entities_failed,
			error_message = EXCLUDED.error_message,
			details = EXCLUDED.details`,
		rec.SessionID,
		rec.SyncType,
		string(rec.Direction),
		string(rec.Status),
		rec.StartTime,
		rec.EndTime,
		rec.Duration.Milliseconds(),
		rec.EntitiesProcessed,
		rec.EntitiesUpdated,
		rec.EntitiesFailed,
		nullString(rec.ErrorMessage),
		nullString(rec.Details))
	if err != nil {
		s.logger.WithError(err).WithField("session_id", rec.SessionID).Error("Failed to save sync record")
		return fmt.Errorf("failed to save sync record: %w", err)
	}
	return nil
}

// List returns records in insertion order; an empty type returns all
func (s *PostgresStore) List(ctx context.Context, integrationType string) ([]models.SyncRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM sync_records`
	var args []interface{}
	if integrationType != "" {
		query += ` WHERE sync_type = $1`
		args = append(args, integrationType)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	records := []models.SyncRecord{}
	for rows.Next() {
		var (
			r                 models.SyncRecord
			direction, status string
			durationMs        int64
			errMsg, details   sql.NullString
		)
		if err := rows.Scan(
			&r.SessionID,
			&r.SyncType,
			&direction,
			&status,
			&r.StartTime,
			&r.EndTime,
			&durationMs,
			&r.EntitiesProcessed,
			&r.EntitiesUpdated,
			&r.EntitiesFailed,
			&errMsg,
			&details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync record: %w", err)
		}
		r.Direction = models.Direction(direction)
		r.Status = models.SessionStatus(status)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.ErrorMessage = errMsg.String
		r.Details = details.String
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync records: %w", err)
	}
	return records, nil
}

// LastSyncTimes returns the end time of the latest completed record per type
func (s *PostgresStore) LastSyncTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sync_type, MAX(end_time)
		FROM sync_records
		WHERE status = $1
		GROUP BY sync_type`, string(models.SessionCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync times: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			syncType string
			end      time.Time
		)
		if err := rows.Scan(&syncType, &end); err != nil {
			return nil, fmt.Errorf("failed to scan last sync time: %w", err)
		}
		out[syncType] = end
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
