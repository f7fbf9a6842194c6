/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check: *RedisStore must satisfy store.MemoryStore.
var _ store.MemoryStore = (*RedisStore)(nil)

// commander is the subset of redis.Cmdable the store needs
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore keeps agent memory slots as plain redis strings without expiry
type RedisStore struct {
	client commander
	prefix string
	agent  string
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg models.StoreConfig, agent string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	zap.L().Info("Connected to Redis successfully",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB))

	return newRedisStore(rdb, cfg.RedisKeyPrefix, agent), nil
}

func newRedisStore(client commander, prefix, agent string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, agent: agent}
}

func (r *RedisStore) key(slot string) string {
	if r.prefix == "" {
		return fmt.Sprintf("%s:%s", r.agent, slot)
	}
	return fmt.Sprintf("%s:%s:%s", r.prefix, r.agent, slot)
}

func (r *RedisStore) Get(ctx context.Context, slot string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key '%s' from Redis: %w", r.key(slot), err)
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, slot string, value []byte) error {
	if err := r.client.Set(ctx, r.key(slot), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key '%s' in Redis: %w", r.key(slot), err)
	}
	return nil
}

func (r *RedisStore) Close() {
	if err := r.client.Close(); err != nil {
		zap.L().Warn("Failed to close Redis client", zap.Error(err))
	}
}
