package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/fitcrm/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
)

var _ Slot = (*RedisSlot)(nil)

// RedisSlot stores the blob under a single redis string key, without expiry.
type RedisSlot struct {
	key         string
	redisClient redis.Cmdable
}

func NewRedisSlot(redisClient redis.Cmdable, key string) *RedisSlot {
	return &RedisSlot{
		key:         key,
		redisClient: redisClient,
	}
}

func (s *RedisSlot) Name() string {
	return s.key
}

func (s *RedisSlot) Read(ctx context.Context) (_ []byte, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.redisSlot.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("slot.key", s.key))

	data, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	return data, nil
}

func (s *RedisSlot) Write(ctx context.Context, data []byte) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.redisSlot.write")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("slot.key", s.key))
	span.SetAttributes(attribute.Int("slot.size", len(data)))

	if err := s.redisClient.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
