package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	categoriesCacheKey = "helpdesk:lookup:categories"
	employeesCacheKey  = "helpdesk:lookup:employees"
)

// readThrough serves a list from Redis and refills it from source on a miss.
// Redis failures are logged and the source is used directly.
type readThrough[T any] struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
	source func(ctx context.Context) ([]T, error)
}

func (c *readThrough[T]) list(ctx context.Context) ([]T, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.source(ctx)
	}

	raw, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var cached []T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("discarding corrupt lookup cache entry", zap.String("key", c.key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("lookup cache read failed", zap.String("key", c.key), zap.Error(err))
	}

	items, err := c.source(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return items, nil
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("lookup cache write failed", zap.String("key", c.key), zap.Error(err))
	}
	return items, nil
}

// CachedCategories wraps a CategoryProvider with a Redis read-through cache.
type CachedCategories struct {
	cache readThrough[domain.Category]
}

// NewCachedCategories caches source under a fixed key for ttl. A nil client
// or non-positive ttl disables caching.
func NewCachedCategories(client *redis.Client, ttl time.Duration, source CategoryProvider, logger *zap.Logger) *CachedCategories {
	return &CachedCategories{cache: readThrough[domain.Category]{
		client: client,
		key:    categoriesCacheKey,
		ttl:    ttl,
		logger: logger,
		source: source.ListAll,
	}}
}

func (c *CachedCategories) ListAll(ctx context.Context) ([]domain.Category, error) {
	return c.cache.list(ctx)
}

// CachedEmployees wraps an EmployeeProvider with a Redis read-through cache.
type CachedEmployees struct {
	cache readThrough[domain.Employee]
}

// NewCachedEmployees mirrors NewCachedCategories for employees.
func NewCachedEmployees(client *redis.Client, ttl time.Duration, source EmployeeProvider, logger *zap.Logger) *CachedEmployees {
	return &CachedEmployees{cache: readThrough[domain.Employee]{
		client: client,
		key:    employeesCacheKey,
		ttl:    ttl,
		logger: logger,
		source: source.ListAll,
	}}
}

func (c *CachedEmployees) ListAll(ctx context.Context) ([]domain.Employee, error) {
	return c.cache.list(ctx)
}
