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

type ReferralStat struct {
	UserID           int64
	Username         string
	ReferralEarnings decimal.Decimal
}

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Находит владельца кода, nil, nil если код неизвестен
func (r *ReferralRepository) GetByCode(ctx context.Context, code string) (*domain.Referral, error) {
	var ref domain.Referral
	err := r.db.QueryRow(ctx,
		`SELECT referral_code, referrer_id FROM referrals WHERE referral_code = $1`,
		code,
	).Scan(&ref.ReferralCode, &ref.ReferrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// Регистрирует код внутри транзакции создания пользователя
func (r *ReferralRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, code string, referrerID int64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO referrals (referral_code, referrer_id) VALUES ($1, $2)`,
		code, referrerID,
	)
	if err != nil {
		return fmt.Errorf("insert referral: %w", translateUnique(err))
	}
	return nil
}

// Топ по реферальному заработку
func (r *ReferralRepository) TopEarners(ctx context.Context, limit int) ([]ReferralStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, referral_earnings
		FROM users
		WHERE referral_earnings > 0
		ORDER BY referral_earnings DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ReferralStat
	for rows.Next() {
		var s ReferralStat
		if err := rows.Scan(&s.UserID, &s.Username, &s.ReferralEarnings); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
