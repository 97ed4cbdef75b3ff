package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Заявка на вывод. Реальной выплаты пока нет, заявка остается pending
type Withdrawal struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"userId"`
	Amount    decimal.Decimal  `db:"amount" json:"amount"`
	Status    WithdrawalStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// Статус вывода
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusFailed    WithdrawalStatus = "failed"
)
