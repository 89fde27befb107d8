package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPageSize = 500

// RedisStore appends events to a Redis stream. Stream entry IDs give the
// insertion order; scans page through XRANGE.
type RedisStore struct {
	client *redis.Client
	stream string
	owned  bool
}

// NewRedisStore uses an existing client.
func NewRedisStore(client *redis.Client, stream string) *RedisStore {
	return &RedisStore{client: client, stream: stream}
}

// OpenRedis connects to addr and pings the server.
func OpenRedis(ctx context.Context, addr, password string, db int, stream string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := NewRedisStore(client, stream)
	s.owned = true
	return s, nil
}

func (s *RedisStore) Insert(ctx context.Context, event *Event) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: []any{
			"id", event.ID,
			"received_at", event.ReceivedAt.UTC().Format(time.RFC3339Nano),
			"payload", string(event.Raw),
		},
	}).Err()
	if err != nil {
		return unavailable("xadd", err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.XLen(ctx, s.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen %s: %w", s.stream, err)
	}
	return n, nil
}

func (s *RedisStore) Scan(ctx context.Context, fields ...string) (Cursor, error) {
	var (
		page []redis.XMessage
		pos  int
		last string
		done bool
	)

	next := func(ctx context.Context) ([]byte, bool, error) {
		for pos >= len(page) {
			if done {
				return nil, false, nil
			}
			start := "-"
			if last != "" {
				start = "(" + last
			}
			msgs, err := s.client.XRangeN(ctx, s.stream, start, "+", redisPageSize).Result()
			if err != nil {
				return nil, false, fmt.Errorf("xrange %s: %w", s.stream, err)
			}
			if len(msgs) < redisPageSize {
				done = true
			}
			if len(msgs) == 0 {
				return nil, false, nil
			}
			page, pos = msgs, 0
			last = msgs[len(msgs)-1].ID
		}

		msg := page[pos]
		pos++
		payload, _ := msg.Values["payload"].(string)
		return []byte(payload), true, nil
	}

	return &rawCursor{fields: fields, next: next}, nil
}

func (s *RedisStore) Purge(ctx context.Context) error {
	if err := s.client.Del(ctx, s.stream).Err(); err != nil {
		return fmt.Errorf("del %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
