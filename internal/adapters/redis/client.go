// Package redis holds the go-redis plumbing shared by the Redis adapters.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// ConfigOption configures the client.
type ConfigOption func(*redis.Options)

// NewUniversalClient builds a client for addr, which is either host:port or a
// redis:// URL. It does not dial; use Ping to check connectivity.
func NewUniversalClient(addr string, options ...ConfigOption) (redis.UniversalClient, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("empty redis address")
	}
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("cant parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	for _, opt := range options {
		opt(opts)
	}
	return redis.NewUniversalClient(universalOptions(opts)), nil
}

// Ping reports whether the server answers.
func Ping(ctx context.Context, c redis.UniversalClient) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func universalOptions(options *redis.Options) *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        []string{options.Addr},
		DB:           options.DB,
		Username:     options.Username,
		Password:     options.Password,
		TLSConfig:    options.TLSConfig,
		WriteTimeout: options.WriteTimeout,
		ReadTimeout:  options.ReadTimeout,
		DialTimeout:  options.DialTimeout,
		MaxRetries:   options.MaxRetries,
		PoolSize:     options.PoolSize,
		PoolTimeout:  options.PoolTimeout,
		MinIdleConns: options.MinIdleConns,
		IdleTimeout:  options.IdleTimeout,
	}
}
