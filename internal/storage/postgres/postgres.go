// Package postgres는 pgx 기반 지갑/원장/자산 저장소와 sqlx 기반 캔들 저장소를 구현합니다.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/assist-by/portfolio/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store는 pgxpool 위에서 트랜잭션 경계를 제공합니다
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect는 커넥션 풀을 열고 연결을 확인합니다
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("DB 풀 생성 실패: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("DB 연결 확인 실패: %w", err)
	}
	return pool, nil
}

// New는 새로운 Store를 생성합니다
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

var _ storage.DB = (*Store)(nil)

// WithTx는 읽기/쓰기 트랜잭션에서 fn을 실행하고 성공하면 커밋합니다
func (s *Store) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{}, fn)
}

// View는 스냅샷이 고정된 읽기 전용 트랜잭션에서 fn을 실행합니다
func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(storage.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("트랜잭션 시작 실패: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err := fn(&pgTx{tx: tx, readOnly: opts.AccessMode == pgx.ReadOnly}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("트랜잭션 커밋 실패: %w", err)
	}
	committed = true
	return nil
}
