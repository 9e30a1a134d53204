package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists verification flags as expiring Redis keys.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Redis-backed store. A non-positive ttl uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("concierge.internal.session"),
	}
}

func (s *RedisStore) IsVerified(ctx context.Context, sender string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.is_verified")
	defer span.End()

	err := s.redis.Get(ctx, verifiedKey(sender)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: failed to load verification: %w", err)
	}
	return true, nil
}

func (s *RedisStore) MarkVerified(ctx context.Context, sender string) error {
	ctx, span := s.tracer.Start(ctx, "session.mark_verified")
	defer span.End()

	if err := s.redis.Set(ctx, verifiedKey(sender), "1", s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist verification: %w", err)
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, sender string) error {
	ctx, span := s.tracer.Start(ctx, "session.revoke")
	defer span.End()

	if err := s.redis.Del(ctx, verifiedKey(sender)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to revoke verification: %w", err)
	}
	return nil
}

func verifiedKey(sender string) string {
	return fmt.Sprintf("verified:%s", SenderKey(sender))
}
