package source

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// EntitySource reads and writes entities of one system
type EntitySource interface {
	System() models.System
	FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error)
	WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error
	Ping(ctx context.Context) error
}

// Creator is implemented by sources that can insert new entities
type Creator interface {
	CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error)
}

// ChangeTracker is implemented by sources that know when an entity type last
// changed
type ChangeTracker interface {
	LastChange(entityType string) time.Time
}

// LastChange returns when entityType last changed in src or the source it
// decorates. ok is false when no source in the chain can tell.
func LastChange(src EntitySource, entityType string) (t time.Time, ok bool) {
	for src != nil {
		if ct, ok := src.(ChangeTracker); ok {
			return ct.LastChange(entityType), true
		}
		w, ok := src.(Wrapper)
		if !ok {
			break
		}
		src = w.Unwrap()
	}
	return time.Time{}, false
}

// New builds the connector described by params. Simulator params return a
// simulator seeded with sample data.
func New(system models.System, params config.ConnectionParams, cfg *config.SourceConfig, logger *logrus.Logger) (EntitySource, error) {
	switch params.Driver {
	case config.DriverPostgres, config.DriverMySQL:
		return NewSQLSource(system, params, DefaultQueries(system), logger)
	case config.DriverREST:
		return NewRESTSource(system, params, cfg.Retry, logger), nil
	case config.DriverSimulator, "":
		return NewSeededSimulator(system), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q for %s", params.Driver, system)
	}
}
