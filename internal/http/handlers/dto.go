package handlers

import (
	"encoding/json"
	"time"

	"telegram_rewards/internal/domain"

	"github.com/shopspring/decimal"
)

// суммы отдаются числами, без потери точности
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type userResponse struct {
	ID               int64       `json:"id"`
	Username         string      `json:"username"`
	Balance          json.Number `json:"balance"`
	ReferralEarnings json.Number `json:"referralEarnings"`
	ReferralCode     string      `json:"referralCode"`
	LastClaimed      *time.Time  `json:"lastClaimed"`
	CreatedAt        time.Time   `json:"createdAt"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Username:         u.Username,
		Balance:          number(u.Balance),
		ReferralEarnings: number(u.ReferralEarnings),
		ReferralCode:     u.ReferralCode,
		LastClaimed:      u.LastClaimed,
		CreatedAt:        u.CreatedAt,
	}
}

type withdrawalResponse struct {
	ID        int64                   `json:"id"`
	Amount    json.Number             `json:"amount"`
	Status    domain.WithdrawalStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
}

type referrerResponse struct {
	UserID           int64       `json:"userId"`
	Username         string      `json:"username"`
	ReferralEarnings json.Number `json:"referralEarnings"`
}

type registerRequest struct {
	Username     string `json:"username"`
	ReferralCode string `json:"referralCode"`
}

type claimRequest struct {
	UserID int64           `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type withdrawRequest struct {
	UserID           int64           `json:"userId"`
	WithdrawalAmount decimal.Decimal `json:"withdrawalAmount"`
}
