package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bazcar/bazcar-backend/config"
	"github.com/bazcar/bazcar-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", logger.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, logger.Fields{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// SessionStore keeps per-session blobs as plain redis strings.
// Every write refreshes the key's TTL, so idle sessions expire on their own.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(c *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: c, ttl: ttl}
}

// Get returns the stored value; found is false when the key does not exist.
func (s *SessionStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("Failed to read session key", err, logger.Fields{"key": key})
		return nil, false, err
	}
	return val, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		logger.Error("Failed to write session key", err, logger.Fields{"key": key})
		return err
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		logger.Error("Failed to delete session key", err, logger.Fields{"key": key})
		return err
	}
	return nil
}

// DeleteOlderThan is a no-op: redis expires session keys by TTL.
func (s *SessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// ResponseCache caches booking API GET bodies. Errors degrade to cache misses.
type ResponseCache struct {
	client *redis.Client
	prefix string
}

func NewResponseCache(c *redis.Client) *ResponseCache {
	return &ResponseCache{client: c, prefix: "bazcar:cache:"}
}

func (r *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Response cache read failed", logger.Fields{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	return val, true
}

func (r *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		logger.Warn("Response cache write failed", logger.Fields{"key": key, "error": err.Error()})
	}
}
