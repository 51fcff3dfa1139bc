package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssetRegistry는 assets 테이블을 사용하는 자산 목록입니다
type AssetRegistry struct {
	pool *pgxpool.Pool
}

// NewAssetRegistry는 새로운 AssetRegistry를 생성합니다
func NewAssetRegistry(pool *pgxpool.Pool) *AssetRegistry {
	return &AssetRegistry{pool: pool}
}

var _ storage.AssetRegistry = (*AssetRegistry)(nil)

func (r *AssetRegistry) Asset(ctx context.Context, symbol string) (domain.Asset, bool, error) {
	var a domain.Asset
	err := r.pool.QueryRow(ctx, `
		SELECT symbol, name, category, active FROM assets WHERE symbol = $1
	`, domain.BaseSymbol(symbol)).Scan(&a.Symbol, &a.Name, &a.Category, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Asset{}, false, nil
	}
	if err != nil {
		return domain.Asset{}, false, fmt.Errorf("자산 조회 실패: %w", err)
	}
	return a, true, nil
}

func (r *AssetRegistry) Assets(ctx context.Context) ([]domain.Asset, error) {
	return r.query(ctx, `SELECT symbol, name, category, active FROM assets ORDER BY symbol`)
}

func (r *AssetRegistry) ActiveAssets(ctx context.Context) ([]domain.Asset, error) {
	return r.query(ctx, `SELECT symbol, name, category, active FROM assets WHERE active ORDER BY symbol`)
}

func (r *AssetRegistry) query(ctx context.Context, sql string) ([]domain.Asset, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("자산 목록 조회 실패: %w", err)
	}
	defer rows.Close()

	var out []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.Symbol, &a.Name, &a.Category, &a.Active); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssetRegistry) UpsertAsset(ctx context.Context, a domain.Asset) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assets (symbol, name, category, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category, active = EXCLUDED.active
	`, domain.BaseSymbol(a.Symbol), a.Name, a.Category, a.Active)
	if err != nil {
		return fmt.Errorf("자산 저장 실패: %w", err)
	}
	return nil
}

func (r *AssetRegistry) SetActive(ctx context.Context, symbol string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE assets SET active = $2 WHERE symbol = $1`, domain.BaseSymbol(symbol), active)
	if err != nil {
		return fmt.Errorf("자산 상태 변경 실패: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAssetNotFound
	}
	return nil
}
