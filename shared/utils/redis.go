package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	RedisClient *redis.Client
	ctx         = context.Background()
)

// InitRedis initializes the Redis client
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return nil
}

// CacheSet stores a value in Redis with expiration
func CacheSet(key string, value string, expiration time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Set(ctx, key, value, expiration).Err()
}

// CacheGet retrieves a value from Redis
func CacheGet(key string) (string, error) {
	if RedisClient == nil {
		return "", fmt.Errorf("Redis client not initialized")
	}
	val, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("key not found")
	}
	return val, err
}

// CacheDelete removes a key from Redis
func CacheDelete(key string) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(ctx, key).Err()
}

// CacheJSON marshals a value and stores it in Redis with expiration
func CacheJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return CacheSet(key, string(data), expiration)
}

// GetCachedJSON retrieves a value from Redis and unmarshals it into out
func GetCachedJSON(key string, out interface{}) error {
	data, err := CacheGet(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), out)
}

// ViewingSnapshotCacheKey is the cache key for a (property, tenant)
// gate snapshot. Invalidated on every viewing mutation.
func ViewingSnapshotCacheKey(propertyID uuid.UUID, tenantID string) string {
	return fmt.Sprintf("gate:snapshot:%s:%s", propertyID.String(), tenantID)
}

// ScreeningProfileCacheKey is the cache key for a tenant's profile.
func ScreeningProfileCacheKey(tenantID string) string {
	return fmt.Sprintf("screening:profile:%s", tenantID)
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
