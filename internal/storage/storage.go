// Package storage는 지갑, 원장, 캔들, 자산 저장소의 계약을 정의합니다.
// 핵심 로직은 이 인터페이스만 사용하며 구현체는 postgres와 memory 패키지에 있습니다.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrReadOnly는 읽기 전용 트랜잭션에서 쓰기를 시도했을 때 반환됩니다
var ErrReadOnly = errors.New("읽기 전용 트랜잭션입니다")

// AssetSums는 한 사용자의 자산별 원장 합계입니다
type AssetSums struct {
	AssetSymbol  string
	Quantity     decimal.Decimal // 부호 있는 수량 합계
	NetValue     decimal.Decimal // 부호 있는 순액 합계
	Fee          decimal.Decimal
	BuyNetValue  decimal.Decimal // 매수 항목 순액 합계
	SellNetValue decimal.Decimal // 매도 항목 순액 합계 (음수)
}

// Tx는 하나의 저장소 트랜잭션 안에서 가능한 작업입니다
type Tx interface {
	// Balance는 잔고 행을 잠그지 않고 조회합니다. 행이 없으면 found=false입니다.
	Balance(ctx context.Context, userID int64) (acct domain.BalanceAccount, found bool, err error)
	// LockBalance는 잔고 행이 없으면 0으로 만들고, 트랜잭션이 끝날 때까지 잠급니다.
	LockBalance(ctx context.Context, userID int64) (acct domain.BalanceAccount, created bool, err error)
	// SetBalance는 LockBalance로 잠근 행의 잔고를 기록합니다
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) (domain.BalanceAccount, error)

	InsertEntry(ctx context.Context, entry domain.LedgerEntry) error
	SumsByAsset(ctx context.Context, userID int64) ([]AssetSums, error)
	// Entries는 최신순으로 최대 limit개의 원장 항목을 반환합니다
	Entries(ctx context.Context, userID int64, limit int) ([]domain.LedgerEntry, error)
}

// DB는 트랜잭션 경계를 제공합니다.
// fn이 에러를 반환하면 모든 변경은 롤백됩니다.
type DB interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

// CandleStore는 (심볼, 간격, 시각) 단위 캔들 저장소입니다
type CandleStore interface {
	// MergeCandle은 캔들을 삽입하거나 기존 캔들에 병합합니다. 행 단위로 원자적입니다.
	MergeCandle(ctx context.Context, c domain.Candle) error
	LastCandle(ctx context.Context, symbol string, interval domain.TimeInterval) (domain.Candle, bool, error)
	// LatestCandle은 간격과 무관하게 since 이후 가장 최근 캔들을 반환합니다. since가 0이면 전체 기간입니다.
	LatestCandle(ctx context.Context, symbol string, since time.Time) (domain.Candle, bool, error)
	LatestPerSymbol(ctx context.Context) ([]domain.Candle, error)
	Candles(ctx context.Context, symbol string, interval domain.TimeInterval, from, to time.Time) ([]domain.Candle, error)
}

// AssetRegistry는 거래 가능한 자산 목록을 관리합니다
type AssetRegistry interface {
	Asset(ctx context.Context, symbol string) (domain.Asset, bool, error)
	Assets(ctx context.Context) ([]domain.Asset, error)
	ActiveAssets(ctx context.Context) ([]domain.Asset, error)
	UpsertAsset(ctx context.Context, a domain.Asset) error
	SetActive(ctx context.Context, symbol string, active bool) error
}

// ErrAssetNotFound는 등록되지 않은 자산을 변경하려 할 때 반환됩니다
var ErrAssetNotFound = errors.New("등록되지 않은 자산입니다")
