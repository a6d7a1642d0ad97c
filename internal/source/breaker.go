package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Wrapper is implemented by sources that decorate another source
type Wrapper interface {
	Unwrap() EntitySource
}

// CanCreate reports whether src, or the source it decorates, can create entities
func CanCreate(src EntitySource) bool {
	for src != nil {
		if w, ok := src.(Wrapper); ok {
			src = w.Unwrap()
			continue
		}
		_, ok := src.(Creator)
		return ok
	}
	return false
}

func createThrough(ctx context.Context, inner EntitySource, entityType string, fields map[string]models.Value) (string, error) {
	c, ok := inner.(Creator)
	if !ok || !CanCreate(inner) {
		return "", fmt.Errorf("%s does not support creating %s entities", inner.System(), entityType)
	}
	return c.CreateEntity(ctx, entityType, fields)
}

// BreakerSource guards a source with a circuit breaker. While the breaker is
// open every call fails fast with a connection error.
type BreakerSource struct {
	inner  EntitySource
	cb     *gobreaker.CircuitBreaker
	logger *logrus.Logger
}

// NewBreakerSource wraps inner
func NewBreakerSource(inner EntitySource, cfg config.BreakerConfig, logger *logrus.Logger) *BreakerSource {
	b := &BreakerSource{inner: inner, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("%s-circuit-breaker", inner.System()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"name":   name,
				"system": inner.System(),
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// not-found and rejected input do not count as failures
			return err == nil || apperrors.IsNotFound(err) || apperrors.IsInvalidInput(err) || apperrors.IsMappingGap(err)
		},
	})
	return b
}

func (b *BreakerSource) Unwrap() EntitySource { return b.inner }

func (b *BreakerSource) System() models.System { return b.inner.System() }

// State returns the current breaker state
func (b *BreakerSource) State() gobreaker.State { return b.cb.State() }

func (b *BreakerSource) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewConnectionError(fmt.Sprintf("%s %s: circuit breaker open", op, b.inner.System()), err)
	}
	return res, err
}

func (b *BreakerSource) Ping(ctx context.Context) error {
	_, err := b.execute("ping", func() (interface{}, error) {
		return nil, b.inner.Ping(ctx)
	})
	return err
}

func (b *BreakerSource) FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error) {
	res, err := b.execute("fetch", func() (interface{}, error) {
		return b.inner.FetchEntities(ctx, entityType)
	})
	if err != nil {
		return nil, err
	}
	recs, _ := res.([]models.EntityRecord)
	return recs, nil
}

func (b *BreakerSource) WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error {
	_, err := b.execute("write", func() (interface{}, error) {
		return nil, b.inner.WriteEntity(ctx, entityType, id, updates)
	})
	return err
}

func (b *BreakerSource) CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error) {
	res, err := b.execute("create", func() (interface{}, error) {
		return createThrough(ctx, b.inner, entityType, fields)
	})
	if err != nil {
		return "", err
	}
	id, _ := res.(string)
	return id, nil
}
