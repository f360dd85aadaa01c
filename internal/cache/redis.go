package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/models"
	"github.com/searchlab/keyword-insights/internal/observability"
)

type RedisCache struct {
	client redis.UniversalClient
	ttl    config.CacheTTLConfig
	logger *zap.Logger
}

func NewRedisCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	var client redis.UniversalClient

	if len(cfg.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis cache connected", zap.Strings("addresses", cfg.Addresses))

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// GetGrouping looks up a cached grouping run by its dataset hash. A miss
// returns (nil, nil).
func (rc *RedisCache) GetGrouping(ctx context.Context, datasetHash string) (*models.GroupingResult, error) {
	return rc.getResult(ctx, buildGroupingKey(datasetHash))
}

// SetGrouping stores the run under the fresh key and a longer-lived stale key
// used as a fallback when the stores are unavailable.
func (rc *RedisCache) SetGrouping(ctx context.Context, datasetHash string, result *models.GroupingResult) error {
	if err := rc.setResult(ctx, buildGroupingKey(datasetHash), result, rc.ttl.GroupingResults); err != nil {
		return err
	}
	return rc.setResult(ctx, buildStaleKey(datasetHash), result, rc.ttl.StaleFallback)
}

func (rc *RedisCache) GetStaleGrouping(ctx context.Context, datasetHash string) (*models.GroupingResult, error) {
	return rc.getResult(ctx, buildStaleKey(datasetHash))
}

func (rc *RedisCache) GetTopKeywords(ctx context.Context, limit int) ([]models.TopKeyword, error) {
	key := buildTopKey(limit)
	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get top keywords: %w", err)
	}
	observability.CacheHits.Inc()
	var top []models.TopKeyword
	if err := json.Unmarshal([]byte(val), &top); err != nil {
		return nil, fmt.Errorf("cache unmarshal top keywords: %w", err)
	}
	return top, nil
}

func (rc *RedisCache) SetTopKeywords(ctx context.Context, limit int, top []models.TopKeyword) error {
	data, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("cache marshal top keywords: %w", err)
	}
	return rc.client.Set(ctx, buildTopKey(limit), data, rc.ttl.TopKeywords).Err()
}

// InvalidateGroupings drops fresh grouping results and top-keyword rollups
// after new data lands. Stale fallback keys are deliberately left in place.
func (rc *RedisCache) InvalidateGroupings(ctx context.Context) error {
	return rc.invalidatePattern(ctx, []string{"kg:[^s]*", "top:*"})
}

func (rc *RedisCache) invalidatePattern(ctx context.Context, patterns []string) error {
	for _, pattern := range patterns {
		iter := rc.client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			rc.logger.Warn("cache scan error", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				rc.logger.Warn("cache delete error", zap.Strings("keys", keys), zap.Error(err))
			}
		}
	}
	return nil
}

func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) getResult(ctx context.Context, key string) (*models.GroupingResult, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	observability.CacheHits.Inc()
	var result models.GroupingResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &result, nil
}

func (rc *RedisCache) setResult(ctx context.Context, key string, result *models.GroupingResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

func buildGroupingKey(datasetHash string) string {
	return fmt.Sprintf("kg:%s", datasetHash)
}

func buildStaleKey(datasetHash string) string {
	return fmt.Sprintf("kg:stale:%s", datasetHash)
}

func buildTopKey(limit int) string {
	return fmt.Sprintf("top:%d", limit)
}

// HashRecords fingerprints a dataset so identical inputs share one cache
// entry. Order-sensitive: the API layer does not sort, callers that want
// order-independent hashing sort their records first.
func HashRecords(records []models.QueryRecord) string {
	h := sha256.New()
	for i := range records {
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00%d\x00",
			records[i].Text, records[i].Count, records[i].Clicks, records[i].Conversions)
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
