package cache

import (
	"context"
	"fmt"
	"time"

	"telegram_rewards/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Connect подключение к redis. Пустой addr - redis не используется, вернется nil
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to Redis", "addr", addr)
	return rdb, nil
}
