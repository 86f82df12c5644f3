package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ledgerKey is the Redis set holding all handled ids.
const ledgerKey = "slack-alert-agent:handled"

// RedisStore is a Ledger backed by a Redis set. Unlike the file store it is
// safe when several agent processes run against the same deployment: SADD
// and SISMEMBER are atomic on the server.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the given Redis URL (redis://host:port/db) and
// verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) IsHandled(ctx context.Context, id string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, ledgerKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("ledger SISMEMBER: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) MarkHandled(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := s.rdb.SAdd(ctx, ledgerKey, members...).Err(); err != nil {
		return fmt.Errorf("ledger SADD: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
