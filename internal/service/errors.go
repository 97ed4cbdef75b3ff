package service

import (
	"errors"
	"time"

	"telegram_rewards/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameRequired  = errors.New("username is required")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrBelowMinimum      = errors.New("amount below minimum withdrawal")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// CooldownError клейм раньше окончания кулдауна
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return "You must wait before claiming again. Try again in " + domain.FormatRemaining(e.Remaining) + "."
}

// MinimumError сумма вывода меньше минимальной
type MinimumError struct {
	Min decimal.Decimal
}

func (e *MinimumError) Error() string {
	return "Minimum withdrawal is $" + e.Min.String()
}

func (e *MinimumError) Is(target error) bool {
	return target == ErrBelowMinimum
}
