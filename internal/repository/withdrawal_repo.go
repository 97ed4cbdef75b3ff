package repository

import (
	"context"

	"telegram_rewards/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WithdrawalRepository struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepository(db *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// создает заявку в транзакции списания
func (r *WithdrawalRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdrawals (user_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, w.UserID, w.Amount, w.Status).Scan(&w.ID, &w.CreatedAt)
}

// последние заявки пользователя
func (r *WithdrawalRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, status, created_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	withdrawals := []domain.Withdrawal{}
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.UserID, &w.Amount, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}
