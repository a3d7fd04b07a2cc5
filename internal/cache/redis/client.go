package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/pkg/circuitbreaker"
	"github.com/legaldesk/insights/pkg/logger"
)

// Client is the redis-backed Cache Gateway. Calls are routed through a
// circuit breaker so a dead redis costs one fast miss instead of a timeout.
type Client struct {
	client *redis.Client
	cb     *circuitbreaker.Breaker
}

type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	Breaker  circuitbreaker.Config
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if opts.Breaker.Logger == nil {
		opts.Breaker.Logger = logger.GetLogger()
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return &Client{
		client: client,
		cb:     circuitbreaker.New("redis", opts.Breaker),
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.cb.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	logger.Debug("Cache hit", zap.String("key", key))
	return data, true, nil
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.cb.Execute(func() error {
		return c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	logger.Debug("Result cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}
