package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID               int64           `db:"id" json:"id"`
	Username         string          `db:"username" json:"username"`
	TgID             *int64          `db:"tg_id" json:"tg_id,omitempty"`
	Balance          decimal.Decimal `db:"balance" json:"balance"`
	ReferralEarnings decimal.Decimal `db:"referral_earnings" json:"referralEarnings"`
	ReferralCode     string          `db:"referral_code" json:"referralCode"`
	LastClaimed      *time.Time      `db:"last_claimed" json:"lastClaimed"` // nil - ни разу не забирал награду
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
}

// UserOption дополнительные поля при создании
type UserOption func(*User)

// WithTelegramID привязка к чату бота
func WithTelegramID(tgID int64) UserOption {
	return func(u *User) {
		u.TgID = &tgID
	}
}

// WithReferralCode задать код вручную (тесты, повтор при коллизии)
func WithReferralCode(code string) UserOption {
	return func(u *User) {
		u.ReferralCode = code
	}
}

// NewUser единая точка создания пользователя и для бота, и для api:
// нулевые балансы и свежий реферальный код
func NewUser(username string, opts ...UserOption) *User {
	u := &User{
		Username:         username,
		Balance:          decimal.Zero,
		ReferralEarnings: decimal.Zero,
		ReferralCode:     GenerateReferralCode(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}
