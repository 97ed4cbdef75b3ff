package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram_rewards/internal/cache"
	"telegram_rewards/internal/config"
	"telegram_rewards/internal/db"
	httpServer "telegram_rewards/internal/http"
	"telegram_rewards/internal/http/handlers"
	"telegram_rewards/internal/http/middleware"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/repository"
	"telegram_rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Version устанавливается при сборке
var Version = "dev"

// redisPinger приводит redis к handlers.Pinger
type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Get()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	checks := map[string]handlers.Pinger{"postgres": dbPool}

	var limiter *middleware.RateLimiter
	rdb, err := cache.Connect(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	switch {
	case err != nil:
		log.Warn("redis unavailable, rate limiting disabled", "error", err)
	case rdb == nil:
		log.Warn("REDIS_ADDR not set, rate limiting disabled")
	default:
		defer rdb.Close()
		limiter = middleware.NewRateLimiter(middleware.NewRedisCounter(rdb), cfg.RateLimit, time.Minute)
		checks["redis"] = redisPinger{rdb: rdb}
	}

	users := repository.NewUserRepository(dbPool)
	referrals := repository.NewReferralRepository(dbPool)
	withdrawals := repository.NewWithdrawalRepository(dbPool)
	audit := service.NewAuditService(repository.NewAuditRepository(dbPool))

	rewards := service.NewRewardService(users, referrals, withdrawals, audit, service.LogPayout{}, service.Options{
		ClaimCooldown: cfg.ClaimCooldown,
		MinWithdrawal: cfg.MinWithdrawal,
		ReferralBonus: cfg.ReferralBonus,
	})

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := httpServer.NewRouter(handlers.New(rewards, checks), limiter, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
