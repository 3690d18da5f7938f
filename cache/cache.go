// Package cache keeps recent analysis results so repeated requests for the
// same product, horizon and day skip the forecasting path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"marketpulse/config"
	"marketpulse/models"
)

const keyPrefix = "marketpulse:analysis:"

// AnalysisCache stores analysis results by key. A miss is (nil, nil).
type AnalysisCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, error)
	Set(ctx context.Context, key string, result *models.AnalysisResult) error
	Close() error
}

// Key builds the cache key for an analysis of productID over days, anchored
// at the given calendar day.
func Key(productID string, days int, anchor time.Time) string {
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, productID, days, anchor.UTC().Format(models.DateLayout))
}

// New builds the cache selected by cfg.Driver.
func New(cfg config.CacheConfig, logger *slog.Logger) (AnalysisCache, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemory(cfg.Size, cfg.TTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("analysis cache using redis", "addr", cfg.RedisAddr)
		return NewRedis(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.AnalysisResult, error) {
	return nil, nil
}

func (Noop) Set(context.Context, string, *models.AnalysisResult) error {
	return nil
}

func (Noop) Close() error {
	return nil
}

// Memory is an in-process LRU with per-entry expiry. Entries are held as
// JSON so callers never share slices with the cache.
type Memory struct {
	lru *lru.LRU[string, []byte]
}

// NewMemory creates a Memory cache holding up to size entries for ttl.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 1
	}
	return &Memory{lru: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (*models.AnalysisResult, error) {
	raw, ok := m.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return decode(raw)
}

func (m *Memory) Set(_ context.Context, key string, result *models.AnalysisResult) error {
	if result == nil {
		return nil
	}
	raw, err := encode(result)
	if err != nil {
		return err
	}
	m.lru.Add(key, raw)
	return nil
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}

// Redis stores results as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*models.AnalysisResult, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return decode(raw)
}

func (r *Redis) Set(ctx context.Context, key string, result *models.AnalysisResult) error {
	if result == nil {
		return nil
	}
	raw, err := encode(result)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func encode(result *models.AnalysisResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &result, nil
}
