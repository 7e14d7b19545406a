// Package cache decorates a store.Store with a Redis read-through cache
// for user lookups by id, the hottest path (every authenticated request).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix   = "user:id:"
	userVerPrefix   = "user:ver:"
	defaultCacheTTL = 5 * time.Minute
)

// cachedUser is what goes into Redis. The password hash never leaves the database.
type cachedUser struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio"`
	Avatar     string    `json:"avatar"`
	IsOnline   bool      `json:"is_online"`
	IsStaff    bool      `json:"is_staff"`
	DateJoined time.Time `json:"date_joined"`
}

func fromUser(u *models.User) cachedUser {
	return cachedUser{
		ID: u.ID, Username: u.Username, Email: u.Email, Bio: u.Bio, Avatar: u.Avatar,
		IsOnline: u.IsOnline, IsStaff: u.IsStaff, DateJoined: u.DateJoined,
	}
}

func (c cachedUser) user() *models.User {
	return &models.User{
		ID: c.ID, Username: c.Username, Email: c.Email, Bio: c.Bio, Avatar: c.Avatar,
		IsOnline: c.IsOnline, IsStaff: c.IsStaff, DateJoined: c.DateJoined,
	}
}

// UserCache serves GetUserByID from Redis and invalidates on writes.
// Users returned from the cache have an empty Password; credential checks
// go through GetUserByUsername, which is not cached.
// Redis failures are logged and fall back to the wrapped store.
type UserCache struct {
	store.Store
	rdb    *redis.Client
	ttl    time.Duration
	logger logging.Logger

	// loaded runs between the database read and the cache fill. Tests use
	// it to interleave a write.
	loaded func()
}

func NewUserCache(next store.Store, rdb *redis.Client, ttl time.Duration, logger logging.Logger) *UserCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &UserCache{Store: next, rdb: rdb, ttl: ttl, logger: logger}
}

func userKey(id int) string {
	return fmt.Sprintf("%s%d", userKeyPrefix, id)
}

// verKey counts invalidations of a user. It carries no TTL: letting it
// expire could bring an old value back.
func verKey(id int) string {
	return fmt.Sprintf("%s%d", userVerPrefix, id)
}

func (c *UserCache) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	data, err := c.rdb.Get(ctx, userKey(id)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if err := json.Unmarshal(data, &cu); err == nil {
			return cu.user(), nil
		}
		c.logger.Warn(ctx, "corrupt user cache entry", "user_id", id)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn(ctx, "user cache read failed", "user_id", id, "error", err)
	}

	// The version is read before the database so that a write landing in
	// between is detected by fill.
	ver, verErr := c.rdb.Get(ctx, verKey(id)).Result()

	u, err := c.Store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.loaded != nil {
		c.loaded()
	}
	if verErr == nil || errors.Is(verErr, redis.Nil) {
		c.fill(ctx, u, ver)
	}
	return u, nil
}

var errStale = errors.New("user changed while loading")

// fill caches u unless the user was invalidated after ver was read.
func (c *UserCache) fill(ctx context.Context, u *models.User, ver string) {
	data, err := json.Marshal(fromUser(u))
	if err != nil {
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey(u.ID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != ver {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, userKey(u.ID), data, c.ttl)
			return nil
		})
		return err
	}, verKey(u.ID))

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug(ctx, "skipped stale user cache fill", "user_id", u.ID)
	default:
		c.logger.Warn(ctx, "user cache write failed", "user_id", u.ID, "error", err)
	}
}

func (c *UserCache) UpdateUser(ctx context.Context, u *models.User) error {
	err := c.Store.UpdateUser(ctx, u)
	c.invalidate(ctx, u.ID)
	return err
}

func (c *UserCache) SetPassword(ctx context.Context, id int, hash string) error {
	err := c.Store.SetPassword(ctx, id, hash)
	c.invalidate(ctx, id)
	return err
}

func (c *UserCache) DeleteUser(ctx context.Context, id int) error {
	err := c.Store.DeleteUser(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *UserCache) invalidate(ctx context.Context, id int) {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, verKey(id))
		p.Del(ctx, userKey(id))
		return nil
	})
	if err != nil {
		c.logger.Warn(ctx, "user cache invalidation failed", "user_id", id, "error", err)
	}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, dsn string) (*redis.Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis dsn: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
