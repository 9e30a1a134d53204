package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/session"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err, "addr", cfg.RedisAddr)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks where sender verification lives. A redis store
// without a reachable client falls back to process memory.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) session.Store {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := session.DefaultTTL
	kind := "redis"
	if cfg != nil {
		if cfg.VerificationTTL > 0 {
			ttl = cfg.VerificationTTL
		}
		kind = cfg.SessionStore
	}

	if kind == "memory" {
		logger.Info("session store ready", "backend", "memory", "ttl", ttl.String())
		return session.NewMemoryStore(ttl)
	}
	if redisClient == nil {
		logger.Warn("redis unavailable; verification will not survive restarts", "backend", "memory")
		return session.NewMemoryStore(ttl)
	}
	logger.Info("session store ready", "backend", "redis", "ttl", ttl.String())
	return session.NewRedisStore(redisClient, ttl)
}
