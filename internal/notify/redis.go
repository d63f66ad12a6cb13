// Package notify provides the Redis pub/sub implementation of Notifier.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls redis client behavior.
// Keep it config-driven; defaults should be safe and conservative.
type RedisConfig struct {
	Addr string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// envelope is the wire shape published to the company channel.
type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	EmitAt  time.Time   `json:"emit_at"`
}

// RedisNotifier publishes events to per-company Redis channels. Socket-layer
// fan-out subscribes to the same channels.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier initializes a Redis-backed notifier and validates
// connectivity via PING.
func NewRedisNotifier(ctx context.Context, cfg RedisConfig) (*RedisNotifier, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Debug("RedisNotifier.NewRedisNotifier: connected", "addr", cfg.Addr)
	return &RedisNotifier{rdb: rdb}, nil
}

// CompanyChannel returns the pub/sub channel carrying a company's events.
func CompanyChannel(companyID string) string {
	return "company:" + companyID + ":events"
}

// EmitToCompany publishes the event to the company's channel.
func (n *RedisNotifier) EmitToCompany(ctx context.Context, companyID, event string, payload interface{}) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload, EmitAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	if err := n.rdb.Publish(ctx, CompanyChannel(companyID), data).Err(); err != nil {
		slog.Error("RedisNotifier.EmitToCompany: publish failed", "error", err, "companyID", companyID, "event", event)
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	slog.Debug("RedisNotifier.EmitToCompany: published", "companyID", companyID, "event", event)
	return nil
}

// Close releases the underlying Redis connection.
func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}
