package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "counter:guild:"
	redisTxAttempts = 5
)

// RedisBackend stores each guild record as a string key holding the same
// six-line text as the file backend.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Load(ctx context.Context, guildID string) (GuildConfig, error) {
	data, err := r.client.Get(ctx, redisKey(guildID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return GuildConfig{}, ErrNotFound
		}
		return GuildConfig{}, fmt.Errorf("redis get: %w", err)
	}
	return DecodeRecord(guildID, data)
}

func (r *RedisBackend) Save(ctx context.Context, cfg GuildConfig) error {
	if err := r.client.Set(ctx, redisKey(cfg.GuildID), EncodeRecord(cfg), 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// UpdateProgress rewrites the record under WATCH so a concurrent setup is
// never overwritten with stale lines.
func (r *RedisBackend) UpdateProgress(ctx context.Context, guildID string, number int64, posterID string) error {
	key := redisKey(guildID)
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		updated, err := AdvanceRecord(guildID, data, number, posterID)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisTxAttempts; attempt++ {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMalformed) {
			return fmt.Errorf("redis update: %w", err)
		}
		return err
	}
	return fmt.Errorf("redis update: %w", redis.TxFailedErr)
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func redisKey(guildID string) string {
	return redisKeyPrefix + guildID
}
