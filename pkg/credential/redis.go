// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the configuration for the Redis store.
type RedisConfig struct {
	Addr     string // Redis server address (default: "localhost:6379")
	Password string
	DB       int

	// KeyPrefix is prepended to every key (default: "").
	KeyPrefix string

	// DialTimeout bounds the initial connection check (default: 5s).
	DialTimeout time.Duration

	// Now is the clock TTLs are computed against (default: time.Now). It
	// should match the clock the client stamps expiry times with.
	Now func() time.Time
}

// DefaultRedisConfig returns a default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
	}
}

// RedisStore shares credentials between processes through Redis. Each
// credential lives under its own key and expires with the credential.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var opts []RedisOption
	if cfg.Now != nil {
		opts = append(opts, WithRedisClock(cfg.Now))
	}
	return NewRedisStoreFromClient(client, cfg.KeyPrefix, opts...), nil
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock sets the clock TTLs are computed against.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) buildKey(key Key) string {
	return s.prefix + key.String()
}

// Get loads a credential.
func (s *RedisStore) Get(ctx context.Context, key Key) (*Token, error) {
	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential from redis: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &tok, nil
}

// Set stores a credential with a TTL matching its expiry. An already expired
// credential removes the key instead.
func (s *RedisStore) Set(ctx context.Context, key Key, token *Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}

	ttl := token.ExpireTime.Sub(s.now())
	if ttl <= 0 {
		if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
			return fmt.Errorf("failed to delete expired credential: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := s.client.Set(ctx, s.buildKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store credential in redis: %w", err)
	}
	return nil
}
