package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/infrastructure/config"
	"github.com/taskmaster/tracker/internal/ports"
)

// OwnerCache keeps owner summaries in Redis
type OwnerCache struct {
	client *redis.Client
}

var _ ports.OwnerCache = (*OwnerCache)(nil)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}
	return client, nil
}

// NewOwnerCache wraps a connected client
func NewOwnerCache(client *redis.Client) *OwnerCache {
	return &OwnerCache{client: client}
}

func ownerKey(id string) string {
	return "owner:" + id
}

// Get returns nil, nil on a miss.
func (c *OwnerCache) Get(ctx context.Context, id string) (*entities.OwnerRef, error) {
	raw, err := c.client.Get(ctx, ownerKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owner %s: %w", id, err)
	}

	var owner entities.OwnerRef
	if err := json.Unmarshal(raw, &owner); err != nil {
		return nil, fmt.Errorf("decode owner %s: %w", id, err)
	}
	return &owner, nil
}

func (c *OwnerCache) Set(ctx context.Context, owner entities.OwnerRef, expiration time.Duration) error {
	raw, err := json.Marshal(owner)
	if err != nil {
		return fmt.Errorf("encode owner %s: %w", owner.ID, err)
	}
	if err := c.client.Set(ctx, ownerKey(owner.ID), raw, expiration).Err(); err != nil {
		return fmt.Errorf("set owner %s: %w", owner.ID, err)
	}
	return nil
}

// HealthCheck pings Redis
func (c *OwnerCache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the client
func (c *OwnerCache) Close() error {
	return c.client.Close()
}
