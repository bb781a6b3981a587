package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
)

const redisPingTimeout = 2 * time.Second

// initCartCache подключает Redis-кэш корзин. Без адреса или при недоступном Redis
// сервис работает напрямую с хранилищем.
func initCartCache(ctx context.Context, addr string, ttl time.Duration, logger *log.Entry) (*cache.CartCache, redis.UniversalClient) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).WithField("addr", addr).Warn("redis unavailable, cart cache disabled")
		_ = client.Close()
		return nil, nil
	}

	logger.WithFields(log.Fields{"addr": addr, "ttl": ttl}).Info("cart cache enabled")
	return cache.NewCartCache(client, ttl), client
}
