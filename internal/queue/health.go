package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// RedisHealth reports whether the queue's redis answers PING.
type RedisHealth struct {
	client *redis.Client
}

// NewRedisHealth connects a redis client with the same options asynq uses.
func NewRedisHealth(redisURL string) (*RedisHealth, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client, ok := opt.MakeRedisClient().(*redis.Client)
	if !ok {
		return nil, fmt.Errorf("unexpected redis client type %T", opt.MakeRedisClient())
	}
	return &RedisHealth{client: client}, nil
}

// IsHealthy pings redis.
func (h *RedisHealth) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return h.client.Ping(ctx).Err() == nil
}

// Close closes the redis connection.
func (h *RedisHealth) Close() error {
	return h.client.Close()
}
