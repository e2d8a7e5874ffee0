// internal/common/database/sessions.go
package database

import (
	"context"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/config"

	redisv8 "github.com/go-redis/redis/v8"
)

// SessionRedisClient wraps the connection that holds sessions and identity events.
type SessionRedisClient struct {
	Client *redisv8.Client
}

func NewSessionRedis(cfg config.RedisConfig) *SessionRedisClient {
	return &SessionRedisClient{Client: redisv8.NewClient(&redisv8.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})}
}

func (c *SessionRedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session redis ping failed: %w", err)
	}
	return nil
}

func (c *SessionRedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
