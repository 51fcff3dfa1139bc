package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
)

// AssetRegistry는 메모리 자산 목록입니다
type AssetRegistry struct {
	mu     sync.RWMutex
	assets map[string]domain.Asset
}

// NewAssetRegistry는 주어진 자산으로 목록을 초기화합니다
func NewAssetRegistry(assets ...domain.Asset) *AssetRegistry {
	r := &AssetRegistry{assets: make(map[string]domain.Asset)}
	for _, a := range assets {
		a.Symbol = domain.BaseSymbol(a.Symbol)
		r.assets[a.Symbol] = a
	}
	return r
}

var _ storage.AssetRegistry = (*AssetRegistry)(nil)

func (r *AssetRegistry) Asset(ctx context.Context, symbol string) (domain.Asset, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[domain.BaseSymbol(symbol)]
	return a, ok, nil
}

func (r *AssetRegistry) Assets(ctx context.Context) ([]domain.Asset, error) {
	return r.list(false), nil
}

func (r *AssetRegistry) ActiveAssets(ctx context.Context) ([]domain.Asset, error) {
	return r.list(true), nil
}

func (r *AssetRegistry) list(activeOnly bool) []domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (r *AssetRegistry) UpsertAsset(ctx context.Context, a domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Symbol = domain.BaseSymbol(a.Symbol)
	r.assets[a.Symbol] = a
	return nil
}

func (r *AssetRegistry) SetActive(ctx context.Context, symbol string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sym := domain.BaseSymbol(symbol)
	a, ok := r.assets[sym]
	if !ok {
		return storage.ErrAssetNotFound
	}
	a.Active = active
	r.assets[sym] = a
	return nil
}
