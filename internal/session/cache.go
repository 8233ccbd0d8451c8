// Package session caches the signed-in user's profile in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"styleswap/internal/styleswap"
)

const (
	keyPrefix  = "styleswap_user_session"
	DefaultTTL = time.Hour
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func Key(userId string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, userId)
}

// Get returns the cached user or an error wrapping styleswap.ErrNotFound on a miss.
func (c *Cache) Get(ctx context.Context, userId string) (*styleswap.User, error) {
	raw, err := c.rdb.Get(ctx, Key(userId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", userId, styleswap.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var user styleswap.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", userId, err)
	}
	return &user, nil
}

func (c *Cache) Set(ctx context.Context, user *styleswap.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, Key(user.Id), data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, userId string) error {
	return c.rdb.Del(ctx, Key(userId)).Err()
}
