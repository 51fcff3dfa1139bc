package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// candleRow는 prices 테이블의 행입니다
type candleRow struct {
	Symbol   string          `db:"symbol"`
	Interval string          `db:"timeframe"`
	TS       time.Time       `db:"ts"`
	Open     decimal.Decimal `db:"open"`
	High     decimal.Decimal `db:"high"`
	Low      decimal.Decimal `db:"low"`
	Close    decimal.Decimal `db:"close"`
}

func toRow(c domain.Candle) candleRow {
	return candleRow{
		Symbol:   c.Symbol,
		Interval: string(c.Interval),
		TS:       c.Timestamp.UTC(),
		Open:     c.Open,
		High:     c.High,
		Low:      c.Low,
		Close:    c.Close,
	}
}

func (r candleRow) candle() domain.Candle {
	return domain.Candle{
		Symbol:    r.Symbol,
		Interval:  domain.TimeInterval(r.Interval),
		Timestamp: r.TS.UTC(),
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
	}
}

// CandleStore는 sqlx로 prices 테이블을 다루는 캔들 저장소입니다
type CandleStore struct {
	db *sqlx.DB
}

// OpenCandleStore는 pgx 드라이버로 sqlx 연결을 엽니다
func OpenCandleStore(ctx context.Context, dsn string) (*CandleStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("캔들 저장소 연결 실패: %w", err)
	}
	return &CandleStore{db: db}, nil
}

// NewCandleStore는 이미 열린 sqlx 연결로 저장소를 만듭니다
func NewCandleStore(db *sqlx.DB) *CandleStore {
	return &CandleStore{db: db}
}

// Close는 연결을 닫습니다
func (s *CandleStore) Close() error {
	return s.db.Close()
}

var _ storage.CandleStore = (*CandleStore)(nil)

// MergeCandle은 하나의 upsert로 캔들을 병합합니다.
// 시가는 유지하고 고가/저가는 극값, 종가는 새 값으로 갱신합니다.
func (s *CandleStore) MergeCandle(ctx context.Context, c domain.Candle) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO prices (symbol, timeframe, ts, open, high, low, close)
		VALUES (:symbol, :timeframe, :ts, :open, :high, :low, :close)
		ON CONFLICT (symbol, timeframe, ts) DO UPDATE
		SET high  = GREATEST(prices.high, EXCLUDED.high),
		    low   = LEAST(prices.low, EXCLUDED.low),
		    close = EXCLUDED.close
	`, toRow(c))
	if err != nil {
		return fmt.Errorf("캔들 병합 실패 (%s %s): %w", c.Symbol, c.Interval, err)
	}
	return nil
}

func (s *CandleStore) getOne(ctx context.Context, query string, args ...any) (domain.Candle, bool, error) {
	var row candleRow
	err := s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Candle{}, false, nil
	}
	if err != nil {
		return domain.Candle{}, false, err
	}
	return row.candle(), true, nil
}

func (s *CandleStore) LastCandle(ctx context.Context, symbol string, interval domain.TimeInterval) (domain.Candle, bool, error) {
	return s.getOne(ctx, `
		SELECT symbol, timeframe, ts, open, high, low, close
		FROM prices
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT 1
	`, symbol, string(interval))
}

func (s *CandleStore) LatestCandle(ctx context.Context, symbol string, since time.Time) (domain.Candle, bool, error) {
	if since.IsZero() {
		return s.getOne(ctx, `
			SELECT symbol, timeframe, ts, open, high, low, close
			FROM prices
			WHERE symbol = $1
			ORDER BY ts DESC
			LIMIT 1
		`, symbol)
	}
	return s.getOne(ctx, `
		SELECT symbol, timeframe, ts, open, high, low, close
		FROM prices
		WHERE symbol = $1 AND ts >= $2
		ORDER BY ts DESC
		LIMIT 1
	`, symbol, since.UTC())
}

func (s *CandleStore) LatestPerSymbol(ctx context.Context) ([]domain.Candle, error) {
	var rows []candleRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT ON (symbol) symbol, timeframe, ts, open, high, low, close
		FROM prices
		ORDER BY symbol, ts DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("최신 가격 조회 실패: %w", err)
	}
	return toCandles(rows), nil
}

func (s *CandleStore) Candles(ctx context.Context, symbol string, interval domain.TimeInterval, from, to time.Time) ([]domain.Candle, error) {
	var rows []candleRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, timeframe, ts, open, high, low, close
		FROM prices
		WHERE symbol = $1 AND timeframe = $2 AND ts BETWEEN $3 AND $4
		ORDER BY ts
	`, symbol, string(interval), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("캔들 이력 조회 실패: %w", err)
	}
	return toCandles(rows), nil
}

func toCandles(rows []candleRow) []domain.Candle {
	out := make([]domain.Candle, len(rows))
	for i, r := range rows {
		out[i] = r.candle()
	}
	return out
}
