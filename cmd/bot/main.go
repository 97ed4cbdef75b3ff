package main

import (
	"os"
	"os/signal"
	"syscall"

	"telegram_rewards/internal/bot"
	"telegram_rewards/internal/config"
	"telegram_rewards/internal/db"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/repository"
	"telegram_rewards/internal/service"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Get()

	if cfg.BotToken == "" {
		logger.Fatal("TELEGRAM_TOKEN is required")
	}

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	rewards := service.NewRewardService(
		repository.NewUserRepository(dbPool),
		repository.NewReferralRepository(dbPool),
		repository.NewWithdrawalRepository(dbPool),
		service.NewAuditService(repository.NewAuditRepository(dbPool)),
		service.LogPayout{},
		service.Options{
			ClaimCooldown: cfg.ClaimCooldown,
			MinWithdrawal: cfg.MinWithdrawal,
			ReferralBonus: cfg.ReferralBonus,
		},
	)

	b, err := bot.New(cfg.BotToken, rewards)
	if err != nil {
		logger.Fatal("failed to start bot", "error", err)
	}
	go b.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down bot...")
	b.Stop()
	log.Info("bot exited")
}
