package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/models"
)

const UserRoleTTL = 5 * time.Minute

// UserLookup is the store call the cache sits in front of.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// CachedUsers caches user lookups by email in Redis. With a nil client every
// call goes straight to the store.
type CachedUsers struct {
	rdb   *redis.Client
	store UserLookup
	ttl   time.Duration
}

func NewCachedUsers(rdb *redis.Client, store UserLookup) *CachedUsers {
	return &CachedUsers{rdb: rdb, store: store, ttl: UserRoleTTL}
}

func roleKey(email string) string {
	return "user:role:" + email
}

// FindByEmail returns nil, nil when no user has the email. Misses are not
// cached so a newly created user is seen immediately.
func (c *CachedUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if c.rdb == nil {
		return c.store.FindByEmail(ctx, email)
	}

	log := logger.WithCtx(ctx)
	key := roleKey(email)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u models.User
		if jsonErr := json.Unmarshal(data, &u); jsonErr == nil {
			return &u, nil
		}
		log.Warn("discarding corrupt cached user", "key", key)
	case !errors.Is(err, redis.Nil):
		log.Warn("redis get failed, falling back to store", "key", key, "error", err)
	}

	u, err := c.store.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return u, err
	}

	if payload, err := json.Marshal(u); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			log.Warn("redis set failed", "key", key, "error", err)
		}
	}
	return u, nil
}

// Invalidate drops the cached entry for email.
func (c *CachedUsers) Invalidate(ctx context.Context, email string) {
	if c.rdb == nil || email == "" {
		return
	}
	if err := c.rdb.Del(ctx, roleKey(email)).Err(); err != nil {
		logger.WithCtx(ctx).Warn("redis del failed", "email", email, "error", err)
	}
}
