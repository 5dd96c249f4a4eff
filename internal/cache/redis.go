package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/huddle/internal/ingest"
)

const (
	sportIDKeyPrefix  = "sport:id:"
	lastSummaryPrefix = "ingest:last:"
	DefaultSportIDTTL = time.Hour
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache handles caching and fast state storage
type RedisCache struct {
	client     *redis.Client
	sportIDTTL time.Duration
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:     client,
		sportIDTTL: DefaultSportIDTTL,
	}
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// GetSportID returns the cached id for a sport name
func (rc *RedisCache) GetSportID(ctx context.Context, name string) (int, bool, error) {
	val, err := rc.client.Get(ctx, sportIDKeyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	id, err := strconv.Atoi(val)
	if err != nil {
		// Corrupt entry; let the caller fall through to the database.
		rc.client.Del(ctx, sportIDKeyPrefix+name)
		return 0, false, nil
	}
	return id, true, nil
}

// SetSportID caches a sport id for sportIDTTL
func (rc *RedisCache) SetSportID(ctx context.Context, name string, id int) error {
	return rc.client.Set(ctx, sportIDKeyPrefix+name, id, rc.sportIDTTL).Err()
}

// SetLastSummary stores the summary of the latest successful run of its variant
func (rc *RedisCache) SetLastSummary(ctx context.Context, summary ingest.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return rc.client.Set(ctx, lastSummaryPrefix+string(summary.Variant), data, 0).Err()
}

// GetLastSummary returns the cached summary for a variant, if any
func (rc *RedisCache) GetLastSummary(ctx context.Context, variant ingest.Variant) (ingest.Summary, bool, error) {
	var summary ingest.Summary

	data, err := rc.client.Get(ctx, lastSummaryPrefix+string(variant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return summary, false, nil
	}
	if err != nil {
		return summary, false, err
	}

	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, false, fmt.Errorf("unmarshal summary: %w", err)
	}
	return summary, true, nil
}
