package service

import (
	"context"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/repository"

	"github.com/jackc/pgx/v5"
)

// Хранилища, которые нужны сервисам. Реализации - в repository

type UserStore interface {
	Create(ctx context.Context, u *domain.User, bonus *repository.ReferralBonus) error
	CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateLocked(ctx context.Context, id int64, fn func(tx pgx.Tx, u *domain.User) error) (*domain.User, error)
}

type ReferralStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Referral, error)
	TopEarners(ctx context.Context, limit int) ([]repository.ReferralStat, error)
}

type WithdrawalStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
}

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

var (
	_ UserStore       = (*repository.UserRepository)(nil)
	_ ReferralStore   = (*repository.ReferralRepository)(nil)
	_ WithdrawalStore = (*repository.WithdrawalRepository)(nil)
	_ AuditStore      = (*repository.AuditRepository)(nil)
)
