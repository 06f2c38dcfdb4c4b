package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"secdir/internal/constants"
	"secdir/internal/logger"
)

// Cache is a best-effort Redis read-through layer in front of the Postgres
// session store. Postgres stays authoritative: entries expire with the
// session and are removed on destroy, and every cache failure falls back to
// the store.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and verifies the connection.
func NewCache(ctx context.Context, host, port, username, password string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Username: username,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{client: client}, nil
}

func (c *Cache) key(token string) string {
	return constants.RedisKeyPrefix + token
}

func (c *Cache) get(ctx context.Context, token string) (Session, bool) {
	data, err := c.client.Get(ctx, c.key(token)).Result()
	if err == redis.Nil {
		return Session{}, false
	}
	if err != nil {
		logger.Errorf(ctx, "session cache get failed: %v", err)
		return Session{}, false
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		logger.Errorf(ctx, "session cache entry corrupt: %v", err)
		c.del(ctx, token)
		return Session{}, false
	}
	return s, true
}

func (c *Cache) put(ctx context.Context, s Session) {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(s.Token), data, ttl).Err(); err != nil {
		logger.Errorf(ctx, "session cache put failed: %v", err)
	}
}

func (c *Cache) del(ctx context.Context, token string) {
	if err := c.client.Del(ctx, c.key(token)).Err(); err != nil {
		logger.Errorf(ctx, "session cache delete failed: %v", err)
	}
}

// flush drops every cached session. A key that fails to delete is logged and
// skipped; stopping early would leave destroyed sessions serveable until
// their natural expiry.
func (c *Cache) flush(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, constants.RedisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Errorf(ctx, "session cache flush failed for %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		logger.Errorf(ctx, "session cache flush scan failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
