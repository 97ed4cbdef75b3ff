package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"
	"telegram_rewards/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Источник регистрации
const (
	SourceAPI = "api"
	SourceBot = "bot"
)

// сколько раз перегенерировать реферальный код при коллизии
const referralCodeAttempts = 5

// Options правила начислений и выводов
type Options struct {
	ClaimCooldown time.Duration
	MinWithdrawal decimal.Decimal
	ReferralBonus decimal.Decimal
	Now           func() time.Time
}

func (o *Options) setDefaults() {
	if o.ClaimCooldown <= 0 {
		o.ClaimCooldown = domain.DefaultClaimCooldown
	}
	if o.MinWithdrawal.IsZero() {
		o.MinWithdrawal = domain.DefaultMinWithdrawal
	}
	if o.ReferralBonus.IsZero() {
		o.ReferralBonus = domain.DefaultReferralBonus
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// RewardService регистрация, клейм наград, выводы и баланс
type RewardService struct {
	users       UserStore
	referrals   ReferralStore
	withdrawals WithdrawalStore
	audit       *AuditService
	payout      Payout
	opts        Options
}

func NewRewardService(users UserStore, referrals ReferralStore, withdrawals WithdrawalStore, audit *AuditService, payout Payout, opts Options) *RewardService {
	opts.setDefaults()
	if payout == nil {
		payout = LogPayout{}
	}
	return &RewardService{
		users:       users,
		referrals:   referrals,
		withdrawals: withdrawals,
		audit:       audit,
		payout:      payout,
		opts:        opts,
	}
}

// Register регистрация через api. Неизвестный реферальный код молча игнорируется,
// бонус пригласившему начисляется в той же транзакции, что и создание
func (s *RewardService) Register(ctx context.Context, username, referralCode string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	var bonus *repository.ReferralBonus
	if code := strings.TrimSpace(referralCode); code != "" {
		ref, err := s.referrals.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			bonus = &repository.ReferralBonus{ReferrerID: ref.ReferrerID, Amount: s.opts.ReferralBonus}
		}
	}

	var user *domain.User
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		u := domain.NewUser(username)
		err := s.users.Create(ctx, u, bonus)
		if errors.Is(err, repository.ErrReferralCodeTaken) {
			continue
		}
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		if err != nil {
			return nil, err
		}
		user = u
		break
	}
	if user == nil {
		return nil, repository.ErrReferralCodeTaken
	}

	metrics.Registrations.WithLabelValues(SourceAPI).Inc()
	s.audit.LogRegister(ctx, user, SourceAPI)
	if bonus != nil {
		metrics.ReferralCredits.Inc()
		s.audit.LogReferralCredit(ctx, bonus.ReferrerID, user.ID, bonus.Amount)
	}

	return user, nil
}

// RegisterChatUser регистрация из бота. created=false - пользователь уже был
func (s *RewardService) RegisterChatUser(ctx context.Context, username string, tgID int64) (*domain.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, ErrUsernameRequired
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		u := domain.NewUser(username, domain.WithTelegramID(tgID))
		created, err := s.users.CreateIfAbsent(ctx, u)
		if errors.Is(err, repository.ErrReferralCodeTaken) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if !created {
			// параллельное сообщение успело создать пользователя раньше
			existing, err := s.users.GetByUsername(ctx, username)
			if err != nil {
				return nil, false, err
			}
			if existing == nil {
				return nil, false, ErrUserNotFound
			}
			return existing, false, nil
		}

		metrics.Registrations.WithLabelValues(SourceBot).Inc()
		s.audit.LogRegister(ctx, u, SourceBot)
		return u, true, nil
	}

	return nil, false, repository.ErrReferralCodeTaken
}

// ClaimReward начисляет amount, если кулдаун прошел. Первый клейм доступен сразу
func (s *RewardService) ClaimReward(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	now := s.opts.Now()
	user, err := s.users.UpdateLocked(ctx, userID, func(_ pgx.Tx, u *domain.User) error {
		if !domain.ValidAmount(amount) {
			return ErrInvalidAmount
		}
		if remaining := domain.CooldownRemaining(u.LastClaimed, now, s.opts.ClaimCooldown); remaining > 0 {
			return &CooldownError{Remaining: remaining}
		}
		u.Balance = u.Balance.Add(amount)
		u.LastClaimed = &now
		return nil
	})
	if err != nil {
		var cooldown *CooldownError
		if errors.As(err, &cooldown) {
			metrics.Claims.WithLabelValues("cooldown").Inc()
		}
		return decimal.Zero, mapStoreErr(err)
	}

	metrics.Claims.WithLabelValues("ok").Inc()
	s.audit.LogRewardClaim(ctx, user.ID, amount, user.Balance)
	return user.Balance, nil
}

// Withdraw списывает amount и создает заявку на вывод одной транзакцией
func (s *RewardService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Withdrawal, error) {
	var withdrawal *domain.Withdrawal
	_, err := s.users.UpdateLocked(ctx, userID, func(tx pgx.Tx, u *domain.User) error {
		if amount.LessThan(s.opts.MinWithdrawal) {
			metrics.Withdrawals.WithLabelValues("below_minimum").Inc()
			return &MinimumError{Min: s.opts.MinWithdrawal}
		}
		if !domain.ValidAmount(amount) {
			return ErrInvalidAmount
		}
		if amount.GreaterThan(u.Balance) {
			metrics.Withdrawals.WithLabelValues("insufficient").Inc()
			return ErrInsufficientFunds
		}

		u.Balance = u.Balance.Sub(amount)
		w := &domain.Withdrawal{
			UserID: u.ID,
			Amount: amount,
			Status: domain.WithdrawalStatusPending,
		}
		if err := s.withdrawals.CreateWithTx(ctx, tx, w); err != nil {
			return err
		}
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.Withdrawals.WithLabelValues("ok").Inc()
	s.audit.LogWithdrawRequest(ctx, withdrawal)

	// http контекст отменится после ответа, выплата живет отдельно
	go s.sendPayout(*withdrawal)

	return withdrawal, nil
}

func (s *RewardService) sendPayout(w domain.Withdrawal) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.payout.Send(ctx, w); err != nil {
		logger.Error("payout failed", "error", err, "withdrawal_id", w.ID, "user_id", w.UserID)
	}
}

// GetBalance текущий баланс
func (s *RewardService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if u == nil {
		return decimal.Zero, ErrUserNotFound
	}
	return u.Balance, nil
}

// Withdrawals последние заявки пользователя
func (s *RewardService) Withdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return s.withdrawals.GetByUserID(ctx, userID, limit)
}

// TopReferrers топ по реферальному заработку
func (s *RewardService) TopReferrers(ctx context.Context, limit int) ([]repository.ReferralStat, error) {
	return s.referrals.TopEarners(ctx, limit)
}

func mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
