package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "postgraph:checkpoint:"

// noExpiryScore is the index score used for checkpoints without a TTL.
const noExpiryScore = 4102444800 // 2100-01-01

// RedisStore is a Redis implementation of Store[S].
//
// Each checkpoint is stored as a JSON string under <prefix><sessionID>. A
// sorted set tracks session IDs scored by expiry so List can prune sessions
// whose keys have expired. The set lives outside the prefix's key space
// ("postgraph:checkpoint#index" for the default prefix), so no session ID
// can collide with it.
type RedisStore[S any] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix string
	ttl    time.Duration
}

// WithRedisPrefix sets the key prefix (default "postgraph:checkpoint:").
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// WithRedisTTL expires checkpoints that are not written for ttl. Zero (the
// default) keeps them until deleted.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.ttl = ttl
	}
}

// NewRedisStore connects to a Redis server.
func NewRedisStore[S any](addr, password string, db int, opts ...RedisOption) *RedisStore[S] {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient[S](client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient[S any](client *backend.Client, opts ...RedisOption) *RedisStore[S] {
	cfg := redisConfig{prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.prefix == "" {
		cfg.prefix = defaultRedisPrefix
	}
	return &RedisStore[S]{
		client: client,
		prefix: cfg.prefix,
		ttl:    cfg.ttl,
	}
}

func (r *RedisStore[S]) key(sessionID string) string {
	return r.prefix + sessionID
}

// indexKey swaps the prefix's last byte, so the result never starts with
// the prefix.
func (r *RedisStore[S]) indexKey() string {
	head, last := r.prefix[:len(r.prefix)-1], r.prefix[len(r.prefix)-1]
	if last == '#' {
		return head + "!index"
	}
	return head + "#index"
}

func (r *RedisStore[S]) score() float64 {
	if r.ttl == 0 {
		return noExpiryScore
	}
	return float64(time.Now().Add(r.ttl).Unix())
}

// Create implements Store. SETNX makes the existence check and the write a
// single operation.
func (r *RedisStore[S]) Create(ctx context.Context, cp Checkpoint[S]) error {
	data, err := encode(cp)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, r.key(cp.SessionID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint in redis: %w", err)
	}
	if !ok {
		return ErrExists
	}

	if err := r.client.ZAdd(ctx, r.indexKey(), backend.Z{Score: r.score(), Member: cp.SessionID}).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// Get implements Store.
func (r *RedisStore[S]) Get(ctx context.Context, sessionID string) (Checkpoint[S], error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return Checkpoint[S]{}, ErrNotFound
		}
		return Checkpoint[S]{}, fmt.Errorf("failed to get checkpoint from redis: %w", err)
	}
	return decode[S](val)
}

// Put implements Store. The value and its index entry are written in one
// MULTI/EXEC transaction.
func (r *RedisStore[S]) Put(ctx context.Context, cp Checkpoint[S]) error {
	data, err := encode(cp)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(cp.SessionID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{Score: r.score(), Member: cp.SessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore[S]) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, r.key(sessionID))
	pipe.ZRem(ctx, r.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete checkpoint from redis: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store. Expired index entries are pruned first.
func (r *RedisStore[S]) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks the connection to the server.
func (r *RedisStore[S]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisStore[S]) Close() error {
	return r.client.Close()
}
