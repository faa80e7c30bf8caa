// Package cache keeps classification results in Valkey so repeated prompts
// skip the remote call.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyCache is a best-effort string cache. Lookup and store failures are
// logged and otherwise ignored.
type ValkeyCache struct {
	client valkey.Client
	ttl    time.Duration
}

// New connects to the Valkey server at addr and pings it.
func New(ctx context.Context, addr, password string, ttl time.Duration) (*ValkeyCache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:      []string{addr},
		Password:         password,
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging valkey at %s: %w", addr, err)
	}

	slog.Info("[Cache] Connected to valkey", slog.String("addr", addr))
	return &ValkeyCache{client: client, ttl: ttl}, nil
}

// Get returns the cached value for key, if any.
func (c *ValkeyCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("[Cache] Get failed", slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}
	return v, true
}

// Set stores value under key. A TTL under one second stores without expiry.
func (c *ValkeyCache) Set(ctx context.Context, key, value string) {
	set := c.client.B().Set().Key(key).Value(value)
	cmd := set.Build()
	if secs := int64(c.ttl / time.Second); secs > 0 {
		cmd = set.ExSeconds(secs).Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		slog.Warn("[Cache] Set failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Close releases the connection pool.
func (c *ValkeyCache) Close() {
	c.client.Close()
}
