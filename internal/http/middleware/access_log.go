package middleware

import (
	"strconv"
	"time"

	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"

	"github.com/gin-gonic/gin"
)

// AccessLog одна строка slog на запрос + prometheus метрики
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPResponseTime.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())

		log := logger.FromContext(c.Request.Context())
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("request", args...)
		case status >= 400:
			log.Warn("request", args...)
		default:
			log.Info("request", args...)
		}
	}
}
