package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storybot/types"
)

// RedisConfig configures the Redis connection and key prefix
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Prefix   string // keys are <prefix>:<source>:<namespace>
}

// redisClient is the subset of *redis.Client the store uses
type redisClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSetNX(ctx context.Context, key, field string, value interface{}) *redis.BoolCmd
	Close() error
}

// RedisStore keeps each namespace of a source in a Redis hash of id -> record JSON
type RedisStore struct {
	client redisClient
	prefix string
}

// NewRedisStore creates a RedisStore and verifies connectivity
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisStore(client, cfg.Prefix), nil
}

func newRedisStore(client redisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "storybot:ledger"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(source string, ns types.Namespace) string {
	return s.prefix + ":" + source + ":" + string(ns)
}

func (s *RedisStore) Load(ctx context.Context, source string) ([]types.Record, error) {
	var records []types.Record
	for _, ns := range []types.Namespace{types.NamespaceUsed, types.NamespaceUnsuitable} {
		fields, err := s.client.HGetAll(ctx, s.key(source, ns)).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", s.key(source, ns), err)
		}
		for id, raw := range fields {
			rec := types.Record{ID: id}
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return nil, fmt.Errorf("decode record %s/%s: %w", ns, id, err)
			}
			rec.Namespace, rec.Source, rec.ID = ns, source, id
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *RedisStore) Append(ctx context.Context, rec types.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.HSetNX(ctx, s.key(rec.Source, rec.Namespace), rec.ID, data).Err(); err != nil {
		return fmt.Errorf("hsetnx %s: %w", s.key(rec.Source, rec.Namespace), err)
	}
	return nil
}

// Flush is a no-op: Redis acknowledges each write.
func (s *RedisStore) Flush(ctx context.Context) error {
	return nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
