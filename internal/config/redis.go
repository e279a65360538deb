package config

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient builds a Redis client for the rate limiter from:
//
//	REDIS_ADDR     host:port (default localhost:6379)
//	REDIS_HOST/PORT override REDIS_ADDR when both are set
//	REDIS_PASSWORD optional password
//	REDIS_DB       database number (default 0)
//	REDIS_TLS      "true" or "1" to enable TLS
//
// It returns nil when the server does not answer a ping; callers run
// without rate limiting in that case.
func NewRedisClient(logger *zap.Logger) *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
	}
	if v := envStr("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warn("redis unavailable, rate limiting disabled", zap.String("addr", addr), zap.Error(err))
		}
		_ = client.Close()
		return nil
	}
	return client
}
