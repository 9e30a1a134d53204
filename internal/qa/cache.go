package qa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const defaultAnswerTTL = time.Hour

// CachedEngine serves repeated queries from Redis. Cache failures never fail
// the answer; they are logged and the wrapped engine is used.
type CachedEngine struct {
	next   Engine
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedEngine(next Engine, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedEngine {
	if next == nil {
		panic("qa: cached engine requires a wrapped engine")
	}
	if client == nil {
		panic("qa: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultAnswerTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedEngine{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedEngine) Answer(ctx context.Context, query string) (string, error) {
	key := answerKey(query)
	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("answer cache read failed", "error", err)
	}

	answer, err := c.next.Answer(ctx, query)
	if err != nil {
		return "", err
	}
	if answer != "" {
		if err := c.redis.Set(ctx, key, answer, c.ttl).Err(); err != nil {
			c.logger.Warn("answer cache write failed", "error", err)
		}
	}
	return answer, nil
}

func answerKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "qa:answer:" + hex.EncodeToString(sum[:])
}
