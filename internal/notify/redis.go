package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stock-track-backend/internal/config"
	"stock-track-backend/internal/stock"
)

// publisher is the subset of *redis.Client used here.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes stock changes as JSON on a pub/sub channel for the alert
// and waitlist services.
type Redis struct {
	client  publisher
	conn    *redis.Client
	channel string
}

// Message is the payload published for each change.
type Message struct {
	stock.Change
	Availability string `json:"availability"`
}

// NewRedis connects to cfg.URL and verifies the connection.
func NewRedis(ctx context.Context, cfg config.Redis) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, conn: client, channel: cfg.Channel}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// StatusChanged publishes c.
func (r *Redis) StatusChanged(ctx context.Context, c stock.Change) error {
	payload, err := json.Marshal(Message{Change: c, Availability: c.To.Availability()})
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Nop drops every change. Used when no publisher is configured.
type Nop struct{}

func (Nop) StatusChanged(context.Context, stock.Change) error { return nil }
