package db

import (
	"context"
	"fmt"

	"github.com/tpcgrp/p6ebs-sync/internal/correlation"
)

// LoadCorrelations reads every stored id pair
func (s *PostgresStore) LoadCorrelations(ctx context.Context) (correlation.Correlations, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_type, p6_id, ebs_id FROM id_correlations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlations: %w", err)
	}
	defer rows.Close()

	out := make(correlation.Correlations)
	for rows.Next() {
		var entityType, p6ID, ebsID string
		if err := rows.Scan(&entityType, &p6ID, &ebsID); err != nil {
			return nil, fmt.Errorf("failed to scan correlation: %w", err)
		}
		if out[entityType] == nil {
			out[entityType] = make(map[string]string)
		}
		out[entityType][p6ID] = ebsID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating correlations: %w", err)
	}
	return out, nil
}

// SaveCorrelations replaces the stored id pairs with c in one transaction
func (s *PostgresStore) SaveCorrelations(ctx context.Context, c correlation.Correlations) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM id_correlations`); err != nil {
		return fmt.Errorf("failed to clear correlations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO id_correlations (entity_type, p6_id, ebs_id, updated_at)
		VALUES ($1, $2, $3, NOW())`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for entityType, pairs := range c {
		for p6ID, ebsID := range pairs {
			if _, err := stmt.ExecContext(ctx, entityType, p6ID, ebsID); err != nil {
				return fmt.Errorf("failed to save correlation %s/%s: %w", entityType, p6ID, err)
			}
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithField("count", saved).Debug("Saved id correlations")
	return nil
}
