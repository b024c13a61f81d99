package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"internship_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const unreadKeyPrefix = "notifications:unread:"

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// UnreadCache - счетчик непрочитанных уведомлений в redis.
// Ошибки redis не пробрасываются: при сбое сервис идет в БД.
type UnreadCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewUnreadCache(rdb *redis.Client, ttl time.Duration) *UnreadCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UnreadCache{rdb: rdb, ttl: ttl}
}

func unreadKey(userID string) string {
	return unreadKeyPrefix + userID
}

func (c *UnreadCache) Get(ctx context.Context, userID string) (int64, bool) {
	val, err := c.rdb.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.CtxWarn(ctx, "Redis unread cache get failed", "error", err)
		}
		return 0, false
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *UnreadCache) Set(ctx context.Context, userID string, count int64) {
	if err := c.rdb.Set(ctx, unreadKey(userID), count, c.ttl).Err(); err != nil {
		logger.CtxWarn(ctx, "Redis unread cache set failed", "error", err)
	}
}

func (c *UnreadCache) Invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, unreadKey(userID)).Err(); err != nil {
		logger.CtxWarn(ctx, "Redis unread cache invalidate failed", "error", err)
	}
}

func Ping(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
