package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamConfig configures a RedisStreamPublisher.
type RedisStreamConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
}

// RedisStreamPublisher appends events to a capped Redis stream.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(cfg RedisStreamConfig) (*RedisStreamPublisher, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "bizcards:events"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamPublisher{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, ev Event) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":    ev.Type,
			"card_id": ev.CardID,
			"count":   ev.Count,
			"at":      ev.At.UnixMilli(),
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd event: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest events, newest first.
func (p *RedisStreamPublisher) Recent(ctx context.Context, n int64) ([]Event, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decodeEvent(msg.Values))
	}
	return out, nil
}

func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}

func decodeEvent(values map[string]any) Event {
	ev := Event{
		Type:   fmt.Sprint(values["type"]),
		CardID: fmt.Sprint(values["card_id"]),
	}
	if raw, ok := values["count"]; ok {
		if n, err := strconv.Atoi(fmt.Sprint(raw)); err == nil {
			ev.Count = n
		}
	}
	if raw, ok := values["at"]; ok {
		if ms, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64); err == nil {
			ev.At = time.UnixMilli(ms).UTC()
		}
	}
	return ev
}
