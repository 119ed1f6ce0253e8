package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ocbridge:session:"

// RedisStore keeps sessions in Redis so several ocbridge processes can share
// them. Each session is a JSON document whose key expires after the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis instance at redisURL and verifies the
// connection with a PING.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Get loads a session document.
func (rs *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := rs.client.Get(ctx, redisKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	return &s, nil
}

// Save writes the session document and resets its expiry.
func (rs *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := rs.client.Set(ctx, redisKey(s.ID), payload, rs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.isNew = false
	return nil
}

// Delete removes the session document.
func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	return rs.client.Del(ctx, redisKey(id)).Err()
}

// Close closes the underlying connection pool.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
