package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stayhold/internal/config"
	"stayhold/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisResumeStore persists session-resume snapshots in Redis with a
// TTL. The snapshot only needs to outlive page navigation; the lock
// backend's own expiry remains authoritative for the holds themselves.
type RedisResumeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisResumeStore(client *redis.Client, ttl time.Duration) *RedisResumeStore {
	return &RedisResumeStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisResumeStore) Get(ctx context.Context, userID int64) (*models.SessionResume, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("session_resume:%d", userID)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resume from redis: %w", err)
	}

	var resume models.SessionResume
	if err := json.Unmarshal([]byte(val), &resume); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume: %w", err)
	}

	return &resume, nil
}

func (r *RedisResumeStore) Set(ctx context.Context, resume *models.SessionResume) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	resume.SavedAt = time.Now()
	key := fmt.Sprintf("session_resume:%d", resume.UserID)
	data, err := json.Marshal(resume)
	if err != nil {
		return fmt.Errorf("failed to marshal resume: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set resume in redis: %w", err)
	}

	return nil
}

func (r *RedisResumeStore) Clear(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("session_resume:%d", userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete resume from redis: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
