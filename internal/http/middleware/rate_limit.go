package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter счетчик запросов в окне
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter INCR + EXPIRE одним пайплайном
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter фиксированное окно на ip
type RateLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter counter == nil или limit <= 0 - лимит выключен
func NewRateLimiter(counter Counter, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{counter: counter, limit: limit, window: window, now: time.Now}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.counter == nil || rl.limit <= 0 {
			c.Next()
			return
		}

		slot := rl.now().UnixNano() / int64(rl.window)
		key := "ratelimit:" + c.ClientIP() + ":" + strconv.FormatInt(slot, 10)

		n, err := rl.counter.Incr(c.Request.Context(), key, rl.window)
		if err != nil {
			// redis недоступен - пропускаем, а не роняем api
			logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		remaining := rl.limit - int(n)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if n > int64(rl.limit) {
			metrics.RateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}
