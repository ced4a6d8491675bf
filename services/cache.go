package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

const (
	cacheKeyPrefix   = "uksa"
	cacheOpTimeout   = 500 * time.Millisecond
	cacheKindBars    = "bars"
	cacheKindCompany = "company"
)

// NewRedisClient creates a go-redis client for the market data cache
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// CachedMarketData decorates a MarketDataProvider with a Redis read-through
// cache. Cache failures are logged and the inner provider is used instead.
type CachedMarketData struct {
	inner MarketDataProvider
	rdb   redis.Cmdable
	ttl   time.Duration
}

// NewCachedMarketData wraps inner with a Redis cache holding entries for ttl
func NewCachedMarketData(inner MarketDataProvider, rdb redis.Cmdable, ttl time.Duration) *CachedMarketData {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedMarketData{inner: inner, rdb: rdb, ttl: ttl}
}

func barsKey(symbol string, days int) string {
	return fmt.Sprintf("%s:%s:%s:%d", cacheKeyPrefix, cacheKindBars, symbol, days)
}

func companyKey(symbol string) string {
	return fmt.Sprintf("%s:%s:%s", cacheKeyPrefix, cacheKindCompany, symbol)
}

// GetDailyBars returns cached bars when present, otherwise fetches and stores them.
// Empty series are not cached.
func (c *CachedMarketData) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	key := barsKey(symbol, days)

	var bars []models.Bar
	if c.lookup(ctx, cacheKindBars, key, &bars) {
		return bars, nil
	}

	bars, err := c.inner.GetDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.store(ctx, key, bars)
	}
	return bars, nil
}

// GetCompanyInfo returns cached metadata when present, otherwise fetches and stores it
func (c *CachedMarketData) GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	key := companyKey(symbol)

	var info models.CompanyInfo
	if c.lookup(ctx, cacheKindCompany, key, &info) {
		return &info, nil
	}

	fetched, err := c.inner.GetCompanyInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if fetched != nil {
		c.store(ctx, key, fetched)
	}
	return fetched, nil
}

func (c *CachedMarketData) lookup(ctx context.Context, kind, key string, dest any) bool {
	opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	metrics := observability.GetMetrics()
	data, err := c.rdb.Get(opCtx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.Warn("cache read failed", "key", key, "error", err)
		}
		metrics.RecordCacheLookup(kind, false)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		observability.Warn("discarding corrupt cache entry", "key", key, "error", err)
		metrics.RecordCacheLookup(kind, false)
		return false
	}
	metrics.RecordCacheLookup(kind, true)
	return true
}

func (c *CachedMarketData) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		observability.Warn("cache encode failed", "key", key, "error", err)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rdb.Set(opCtx, key, data, c.ttl).Err(); err != nil {
		observability.Warn("cache write failed", "key", key, "error", err)
	}
}
