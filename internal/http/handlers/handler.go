package handlers

import (
	"context"
	"net/http"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Rewards операции, которые отдает api
type Rewards interface {
	Register(ctx context.Context, username, referralCode string) (*domain.User, error)
	ClaimReward(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Withdrawal, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	Withdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
	TopReferrers(ctx context.Context, limit int) ([]repository.ReferralStat, error)
}

// Pinger проверка зависимостей для /healthz
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Rewards Rewards
	Checks  map[string]Pinger
}

func New(rewards Rewards, checks map[string]Pinger) *Handler {
	return &Handler{Rewards: rewards, Checks: checks}
}

// все ответы api в формате {"message": "..."} при ошибке
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// логирует ошибку хранилища и отдает фиксированный 500
func respondStoreError(c *gin.Context, err error, message string) {
	logger.FromContext(c.Request.Context()).Error(message, "error", err)
	respondError(c, http.StatusInternalServerError, message)
}

// Healthz пингует базу и redis
func (h *Handler) Healthz(c *gin.Context) {
	status := gin.H{}
	healthy := true
	for name, p := range h.Checks {
		if err := p.Ping(c.Request.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ok": healthy, "checks": status})
}
