package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

const cacheKeyPrefix = "p6ebs:entities:"

// CacheObserver is told about every cache lookup
type CacheObserver interface {
	ObserveCache(system models.System, hit bool)
}

// CachedSource keeps fetch results in Redis for ttl. Writes and creates
// invalidate the cached entity type. Redis failures fall back to the
// wrapped source.
type CachedSource struct {
	inner    EntitySource
	client   redis.UniversalClient
	ttl      time.Duration
	observer CacheObserver
	logger   *logrus.Logger
}

// NewCachedSource wraps inner. observer may be nil.
func NewCachedSource(inner EntitySource, client redis.UniversalClient, ttl time.Duration, observer CacheObserver, logger *logrus.Logger) *CachedSource {
	return &CachedSource{inner: inner, client: client, ttl: ttl, observer: observer, logger: logger}
}

func (c *CachedSource) Unwrap() EntitySource { return c.inner }

func (c *CachedSource) System() models.System { return c.inner.System() }

func (c *CachedSource) Ping(ctx context.Context) error { return c.inner.Ping(ctx) }

func (c *CachedSource) key(entityType string) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, c.inner.System(), entityType)
}

func (c *CachedSource) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(c.inner.System(), hit)
	}
}

func (c *CachedSource) FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error) {
	key := c.key(entityType)
	logger := c.logger.WithFields(logrus.Fields{"system": c.inner.System(), "entity_type": entityType})

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var recs []models.EntityRecord
		if jerr := json.Unmarshal(data, &recs); jerr == nil {
			c.observe(true)
			return recs, nil
		}
		logger.Warn("Discarding unreadable cache entry")
	case !errors.Is(err, redis.Nil):
		logger.WithError(err).Warn("Entity cache unavailable")
	}
	c.observe(false)

	recs, err := c.inner.FetchEntities(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(recs); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.WithError(err).Warn("Failed to cache entities")
		}
	}
	return recs, nil
}

func (c *CachedSource) WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error {
	err := c.inner.WriteEntity(ctx, entityType, id, updates)
	c.Invalidate(ctx, entityType)
	return err
}

func (c *CachedSource) CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error) {
	id, err := createThrough(ctx, c.inner, entityType, fields)
	c.Invalidate(ctx, entityType)
	return id, err
}

// Invalidate drops the cached entities of a type
func (c *CachedSource) Invalidate(ctx context.Context, entityType string) {
	if err := c.client.Del(ctx, c.key(entityType)).Err(); err != nil {
		c.logger.WithFields(logrus.Fields{
			"system":      c.inner.System(),
			"entity_type": entityType,
		}).WithError(err).Warn("Failed to invalidate entity cache")
	}
}
