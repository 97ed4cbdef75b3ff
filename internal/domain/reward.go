package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Значения по умолчанию, переопределяются конфигом
const DefaultClaimCooldown = 2 * time.Hour

var (
	DefaultMinWithdrawal = decimal.NewFromInt(3)
	DefaultReferralBonus = decimal.New(1, -3) // 0.001 за каждого приглашенного
)

// AmountScale знаков после запятой в NUMERIC(20, 8)
const AmountScale = 8

// в NUMERIC(20, 8) помещается 12 знаков целой части
var maxAmount = decimal.New(1, 20-AmountScale)

// ValidAmount сумма > 0 и хранится в базе без округления
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThan(maxAmount) && d.Equal(d.Truncate(AmountScale))
}

// CooldownRemaining сколько еще ждать до следующего клейма.
// Если награду ни разу не забирали - ждать не нужно
func CooldownRemaining(lastClaimed *time.Time, now time.Time, cooldown time.Duration) time.Duration {
	if lastClaimed == nil {
		return 0
	}
	elapsed := now.Sub(*lastClaimed)
	if elapsed < 0 {
		// часы разъехались, last_claimed в будущем - считаем что клейм был только что
		elapsed = 0
	}
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// FormatRemaining "1h 59m 59s", части отбрасываются, а не округляются
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
