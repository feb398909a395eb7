package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"scrapdeal/internal/logger"
)

const (
	// ProductTTL bounds how long a cached product detail may be served.
	ProductTTL = 5 * time.Minute
	// generationTTL must outlive ProductTTL so a reset counter never revives an entry.
	generationTTL = 24 * time.Hour
)

// ProductGenerationKey holds the counter bumped whenever a product changes.
func ProductGenerationKey(id string) string {
	return "product:" + id + ":gen"
}

// ProductKey is the cache key for a product detail at a given generation.
func ProductKey(id string, gen int64) string {
	return "product:" + id + ":v" + strconv.FormatInt(gen, 10)
}

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	return NewFromRedis(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewFromRedis wraps an existing redis client.
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{client: rdb}
}

// Ping reports whether redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.L.WarnContext(ctx, "cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.L.WarnContext(ctx, "cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Delete removes keys, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.L.WarnContext(ctx, "cache delete failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
	return nil
}

// Generation reads a counter kept by Bump. Missing keys and redis errors read as 0.
func (c *Client) Generation(ctx context.Context, key string) int64 {
	data, _ := c.Get(ctx, key)
	if data == nil {
		return 0
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

// Bump increments a generation counter, orphaning entries cached under the
// previous value.
func (c *Client) Bump(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, generationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L.WarnContext(ctx, "cache bump failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// GetJSON decodes a cached value into dst. It reports false on a miss or an
// undecodable entry.
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	data, _ := c.Get(ctx, key)
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON encodes value and stores it with TTL.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
