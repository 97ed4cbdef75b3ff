package domain

import (
	"crypto/rand"
	"math/big"
)

const (
	ReferralCodeLength = 8

	referralAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Referral реферальный код -> владелец кода
type Referral struct {
	ReferralCode string `db:"referral_code" json:"referralCode"`
	ReferrerID   int64  `db:"referrer_id" json:"referrerId"`
}

// GenerateReferralCode 8 символов base36. Уникальность не гарантируется,
// за нее отвечает unique-индекс в базе
func GenerateReferralCode() string {
	max := big.NewInt(int64(len(referralAlphabet)))
	b := make([]byte, ReferralCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = referralAlphabet[n.Int64()]
	}
	return string(b)
}
