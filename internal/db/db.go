package db

import (
	"context"
	"time"

	"telegram_rewards/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect поднимает пул соединений, проверяет связь и накатывает схему.
// Без базы сервисы бесполезны, поэтому ошибки фатальные
func Connect(databaseURL string) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("invalid DATABASE_URL", "error", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create db pool", "error", err)
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		logger.Fatal("failed to migrate database", "error", err)
	}

	logger.Info("connected to PostgreSQL")
	return pool
}

// Migrate создает таблицы, если их еще нет
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                BIGSERIAL PRIMARY KEY,
	username          TEXT NOT NULL UNIQUE,
	tg_id             BIGINT,
	balance           NUMERIC(20, 8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	referral_earnings NUMERIC(20, 8) NOT NULL DEFAULT 0 CHECK (referral_earnings >= 0),
	referral_code     TEXT NOT NULL UNIQUE,
	last_claimed      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS referrals (
	referral_code TEXT PRIMARY KEY,
	referrer_id   BIGINT NOT NULL REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS withdrawals (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id),
	amount     NUMERIC(20, 8) NOT NULL CHECK (amount > 0),
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS withdrawals_user_id_idx ON withdrawals (user_id);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	action     TEXT NOT NULL,
	category   TEXT NOT NULL,
	details    JSONB NOT NULL DEFAULT '{}',
	ip         TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS audit_logs_user_id_idx ON audit_logs (user_id);
`
