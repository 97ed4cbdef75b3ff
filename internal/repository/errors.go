package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrReferralCodeTaken = errors.New("referral code already taken")
)

const uniqueViolation = "23505"

// переводит нарушение unique-индекса в доменную ошибку, остальное отдает как есть
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return ErrUsernameTaken
	case "users_referral_code_key", "referrals_pkey":
		return ErrReferralCodeTaken
	}
	return err
}
