package service

import (
	"context"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
)

// Payout отправка средств по заявке
type Payout interface {
	Send(ctx context.Context, w domain.Withdrawal) error
}

// LogPayout заглушка: реальной интеграции нет, заявка остается pending
type LogPayout struct{}

func (LogPayout) Send(ctx context.Context, w domain.Withdrawal) error {
	logger.FromContext(ctx).Info("payout not implemented, withdrawal left pending",
		"withdrawal_id", w.ID, "user_id", w.UserID, "amount", w.Amount.String())
	return nil
}
