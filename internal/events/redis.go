package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType string, data any) error {
	payload, err := encode(eventType, data, time.Now().UTC())
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": payload},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func encode(eventType string, data any, at time.Time) ([]byte, error) {
	b, err := json.Marshal(Event{Type: eventType, Timestamp: at, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

// Handler receives decoded stream events.
type Handler func(ctx context.Context, id string, event Event) error

// Tail reads the stream from start ("$" for new entries only, "0" for the
// whole history) and calls h for each event until ctx is done.
func Tail(ctx context.Context, client *redis.Client, stream, start string, h Handler) error {
	if stream == "" {
		stream = DefaultStream
	}
	last := start
	for {
		res, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, last},
			Count:   10,
			Block:   5 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		for _, s := range res {
			for _, msg := range s.Messages {
				last = msg.ID
				event, err := decode(msg.Values)
				if err != nil {
					return fmt.Errorf("message %s: %w", msg.ID, err)
				}
				if err := h(ctx, msg.ID, event); err != nil {
					return err
				}
			}
		}
	}
}

func decode(values map[string]any) (Event, error) {
	raw, ok := values["event"].(string)
	if !ok {
		return Event{}, fmt.Errorf("invalid message format")
	}
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
