package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema는 서비스가 사용하는 테이블을 정의합니다.
// 잔고의 음수 금지는 애플리케이션과 CHECK 제약 양쪽에서 보장합니다.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		symbol     TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		category   TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id    BIGINT PRIMARY KEY,
		balance    NUMERIC(18, 8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id           UUID PRIMARY KEY,
		user_id      BIGINT NOT NULL,
		asset_symbol TEXT NOT NULL,
		trade_type   TEXT NOT NULL CHECK (trade_type IN ('buy', 'sell')),
		qty          NUMERIC(18, 8) NOT NULL,
		net_val      NUMERIC(18, 8) NOT NULL,
		price        NUMERIC(18, 8) NOT NULL,
		fee          NUMERIC(18, 8) NOT NULL,
		trade_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_asset_idx ON transactions (user_id, asset_symbol)`,
	`CREATE TABLE IF NOT EXISTS prices (
		symbol     TEXT NOT NULL,
		timeframe  TEXT NOT NULL,
		ts         TIMESTAMPTZ NOT NULL,
		open       NUMERIC(18, 8) NOT NULL,
		high       NUMERIC(18, 8) NOT NULL,
		low        NUMERIC(18, 8) NOT NULL,
		close      NUMERIC(18, 8) NOT NULL,
		PRIMARY KEY (symbol, timeframe, ts)
	)`,
	`CREATE INDEX IF NOT EXISTS prices_symbol_ts_idx ON prices (symbol, ts DESC)`,
}

// Migrate는 누락된 테이블과 인덱스를 생성합니다
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("스키마 적용 실패 (%d번째 구문): %w", i+1, err)
		}
	}
	return nil
}
