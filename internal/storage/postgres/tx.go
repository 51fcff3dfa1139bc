package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type pgTx struct {
	tx       pgx.Tx
	readOnly bool
}

func scanBalance(row pgx.Row) (domain.BalanceAccount, error) {
	var acct domain.BalanceAccount
	var balance string
	if err := row.Scan(&acct.UserID, &balance, &acct.UpdatedAt); err != nil {
		return domain.BalanceAccount{}, err
	}
	v, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.BalanceAccount{}, fmt.Errorf("잔고 파싱 실패: %w", err)
	}
	acct.Balance = v
	return acct, nil
}

func (t *pgTx) Balance(ctx context.Context, userID int64) (domain.BalanceAccount, bool, error) {
	acct, err := scanBalance(t.tx.QueryRow(ctx, `
		SELECT user_id, balance::text, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BalanceAccount{UserID: userID, Balance: decimal.Zero}, false, nil
	}
	if err != nil {
		return domain.BalanceAccount{}, false, fmt.Errorf("잔고 조회 실패: %w", err)
	}
	return acct, true, nil
}

func (t *pgTx) LockBalance(ctx context.Context, userID int64) (domain.BalanceAccount, bool, error) {
	if t.readOnly {
		return domain.BalanceAccount{}, false, storage.ErrReadOnly
	}

	tag, err := t.tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, 0, now())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return domain.BalanceAccount{}, false, fmt.Errorf("잔고 행 생성 실패: %w", err)
	}

	acct, err := scanBalance(t.tx.QueryRow(ctx, `
		SELECT user_id, balance::text, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID))
	if err != nil {
		return domain.BalanceAccount{}, false, fmt.Errorf("잔고 잠금 실패: %w", err)
	}
	return acct, tag.RowsAffected() == 1, nil
}

func (t *pgTx) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) (domain.BalanceAccount, error) {
	if t.readOnly {
		return domain.BalanceAccount{}, storage.ErrReadOnly
	}

	var updatedAt time.Time
	err := t.tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = $2, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at
	`, userID, balance.String()).Scan(&updatedAt)
	if err != nil {
		return domain.BalanceAccount{}, fmt.Errorf("잔고 갱신 실패: %w", err)
	}
	return domain.BalanceAccount{UserID: userID, Balance: balance, UpdatedAt: updatedAt}, nil
}

func (t *pgTx) InsertEntry(ctx context.Context, e domain.LedgerEntry) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}

	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("원장 항목 ID 파싱 실패: %w", err)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, asset_symbol, trade_type, qty, net_val, price, fee, trade_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, e.UserID, e.AssetSymbol, string(e.TradeType),
		e.Quantity.String(), e.NetValue.String(), e.Price.String(), e.Fee.String(), e.TradeAt)
	if err != nil {
		return fmt.Errorf("원장 기록 실패: %w", err)
	}
	return nil
}

func (t *pgTx) SumsByAsset(ctx context.Context, userID int64) ([]storage.AssetSums, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT asset_symbol,
		       SUM(qty)::text,
		       SUM(net_val)::text,
		       SUM(fee)::text,
		       COALESCE(SUM(net_val) FILTER (WHERE trade_type = 'buy'), 0)::text,
		       COALESCE(SUM(net_val) FILTER (WHERE trade_type = 'sell'), 0)::text
		FROM transactions
		WHERE user_id = $1
		GROUP BY asset_symbol
		ORDER BY asset_symbol
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("원장 집계 실패: %w", err)
	}
	defer rows.Close()

	var out []storage.AssetSums
	for rows.Next() {
		var s storage.AssetSums
		var qty, net, fee, buy, sell string
		if err := rows.Scan(&s.AssetSymbol, &qty, &net, &fee, &buy, &sell); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst *decimal.Decimal
			raw string
		}{{&s.Quantity, qty}, {&s.NetValue, net}, {&s.Fee, fee}, {&s.BuyNetValue, buy}, {&s.SellNetValue, sell}} {
			v, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("집계 값 파싱 실패: %w", err)
			}
			*f.dst = v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *pgTx) Entries(ctx context.Context, userID int64, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id::text, user_id, asset_symbol, trade_type, qty::text, net_val::text, price::text, fee::text, trade_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY trade_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("원장 조회 실패: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var tradeType, qty, net, price, fee string
		if err := rows.Scan(&e.ID, &e.UserID, &e.AssetSymbol, &tradeType, &qty, &net, &price, &fee, &e.TradeAt); err != nil {
			return nil, err
		}
		e.TradeType = domain.TradeType(tradeType)
		if e.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if e.NetValue, err = decimal.NewFromString(net); err != nil {
			return nil, err
		}
		if e.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if e.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
