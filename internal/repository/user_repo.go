package repository

import (
	"context"
	"errors"
	"fmt"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const userColumns = `id, username, tg_id, balance, referral_earnings, referral_code, last_claimed, created_at`

type UserRepository struct {
	db        *pgxpool.Pool
	referrals *ReferralRepository
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db, referrals: NewReferralRepository(db)}
}

// ReferralBonus начисление пригласившему за регистрацию
type ReferralBonus struct {
	ReferrerID int64
	Amount     decimal.Decimal
}

// Create вставляет пользователя, его реферальный код и начисляет бонус
// пригласившему (если bonus != nil) одной транзакцией
func (r *UserRepository) Create(ctx context.Context, u *domain.User, bonus *ReferralBonus) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, tg_id, balance, referral_earnings, referral_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.Username, u.TgID, u.Balance, u.ReferralEarnings, u.ReferralCode).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", translateUnique(err))
	}

	if err := r.referrals.CreateWithTx(ctx, tx, u.ReferralCode, u.ID); err != nil {
		return err
	}

	if bonus != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET referral_earnings = referral_earnings + $1 WHERE id = $2`,
			bonus.Amount, bonus.ReferrerID,
		)
		if err != nil {
			return fmt.Errorf("credit referrer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("credit referrer %d: %w", bonus.ReferrerID, ErrNotFound)
		}
	}

	return tx.Commit(ctx)
}

// CreateIfAbsent как Create, но существующий username не ошибка:
// вернется created=false и u не заполняется
func (r *UserRepository) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, tg_id, balance, referral_earnings, referral_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, created_at
	`, u.Username, u.TgID, u.Balance, u.ReferralEarnings, u.ReferralCode).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert user: %w", translateUnique(err))
	}

	if err := r.referrals.CreateWithTx(ctx, tx, u.ReferralCode, u.ID); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// GetByID nil, nil если пользователя нет
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByUsername nil, nil если пользователя нет
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// UpdateLocked блокирует строку пользователя (FOR UPDATE), отдает ее в fn
// и сохраняет balance/last_claimed. Ошибка из fn откатывает транзакцию
func (r *UserRepository) UpdateLocked(ctx context.Context, id int64, fn func(tx pgx.Tx, u *domain.User) error) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	if err := fn(tx, u); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET balance = $1, last_claimed = $2 WHERE id = $3`,
		u.Balance, u.LastClaimed, u.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.TgID, &u.Balance, &u.ReferralEarnings, &u.ReferralCode, &u.LastClaimed, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
