package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	goredis "github.com/go-redis/redis/v9"
)

// NewRedisClient connects to addr and verifies the connection.
//
// The returned func closes the client and logs any close error.
func NewRedisClient(ctx context.Context, addr string, db int, l *log.Logger) (*goredis.Client, func(), error) {
	client := goredis.NewClient(&goredis.Options{
		Network:         "tcp",
		Addr:            addr,
		DB:              db,
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MinIdleConns:    1,
		MaxIdleConns:    4,
		ConnMaxIdleTime: time.Minute,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, func() {
		if err := client.Close(); err != nil && l != nil {
			l.Warn("failed to close redis client", "error", err)
		}
	}, nil
}

// RedisStore implements [StateStore] with plain string keys under a prefix.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// NewRedisStore creates a [RedisStore]. Keys are written as prefix+key.
func NewRedisStore(client *goredis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}
