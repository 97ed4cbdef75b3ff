package service

import (
	"context"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"

	"github.com/shopspring/decimal"
)

// обрабатывает логирование аудита
type AuditService struct {
	repo AuditStore
}

// создает новый сервис аудита
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// создает новую запись в журнале аудита. Ошибка только логируется:
// аудит не должен ломать основную операцию
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}

	log := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.FromContext(ctx).Error("не удалось создать запись аудита", "error", err, "action", action, "user_id", userID)
	}
}

// логирует регистрацию (api или бот)
func (s *AuditService) LogRegister(ctx context.Context, u *domain.User, source string) {
	action := domain.AuditActionRegister
	if source == SourceBot {
		action = domain.AuditActionChatRegister
	}
	s.Log(ctx, u.ID, action, domain.AuditCategoryAuth, map[string]interface{}{
		"username":      u.Username,
		"referral_code": u.ReferralCode,
	})
}

// логирует начисление реферального бонуса
func (s *AuditService) LogReferralCredit(ctx context.Context, referrerID, referredID int64, bonus decimal.Decimal) {
	s.Log(ctx, referrerID, domain.AuditActionReferralCredit, domain.AuditCategoryReferral, map[string]interface{}{
		"referred_id": referredID,
		"bonus":       bonus.String(),
	})
}

// логирует клейм награды
func (s *AuditService) LogRewardClaim(ctx context.Context, userID int64, amount, newBalance decimal.Decimal) {
	s.Log(ctx, userID, domain.AuditActionRewardClaim, domain.AuditCategoryBalance, map[string]interface{}{
		"amount":      amount.String(),
		"new_balance": newBalance.String(),
	})
}

// логирует запрос на вывод средств
func (s *AuditService) LogWithdrawRequest(ctx context.Context, w *domain.Withdrawal) {
	s.Log(ctx, w.UserID, domain.AuditActionWithdrawRequest, domain.AuditCategoryWithdrawal, map[string]interface{}{
		"withdrawal_id": w.ID,
		"amount":        w.Amount.String(),
	})
}
