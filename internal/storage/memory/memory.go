// Package memory는 테스트와 단독 실행을 위한 메모리 저장소입니다.
// 사용자별 잠금을 트랜잭션이 끝날 때까지 유지하고, 변경은 커밋 시점에만 반영합니다.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/shopspring/decimal"
)

// Store는 지갑과 원장을 메모리에 보관합니다
type Store struct {
	mu        sync.Mutex
	balances  map[int64]domain.BalanceAccount
	entries   []domain.LedgerEntry
	userLocks map[int64]chan struct{}
	now       func() time.Time
}

// New는 빈 메모리 저장소를 생성합니다
func New() *Store {
	return &Store{
		balances:  make(map[int64]domain.BalanceAccount),
		userLocks: make(map[int64]chan struct{}),
		now:       time.Now,
	}
}

var _ storage.DB = (*Store)(nil)

// WithTx는 쓰기 가능한 트랜잭션에서 fn을 실행합니다
func (s *Store) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	t := s.begin(false)
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// View는 읽기 전용 트랜잭션에서 fn을 실행합니다
func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	t := s.begin(true)
	defer t.release()
	return fn(t)
}

func (s *Store) begin(readOnly bool) *tx {
	return &tx{
		s:        s,
		readOnly: readOnly,
		held:     make(map[int64]chan struct{}),
		balances: make(map[int64]domain.BalanceAccount),
	}
}

func (s *Store) userLock(userID int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.userLocks[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.userLocks[userID] = ch
	}
	return ch
}

type tx struct {
	s        *Store
	readOnly bool
	held     map[int64]chan struct{}
	balances map[int64]domain.BalanceAccount
	entries  []domain.LedgerEntry
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, acct := range t.balances {
		t.s.balances[id] = acct
	}
	t.s.entries = append(t.s.entries, t.entries...)
}

func (t *tx) release() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

func (t *tx) Balance(ctx context.Context, userID int64) (domain.BalanceAccount, bool, error) {
	if acct, ok := t.balances[userID]; ok {
		return acct, true, nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	acct, ok := t.s.balances[userID]
	return acct, ok, nil
}

func (t *tx) LockBalance(ctx context.Context, userID int64) (domain.BalanceAccount, bool, error) {
	if t.readOnly {
		return domain.BalanceAccount{}, false, storage.ErrReadOnly
	}

	if _, ok := t.held[userID]; !ok {
		ch := t.s.userLock(userID)
		select {
		case ch <- struct{}{}:
			t.held[userID] = ch
		case <-ctx.Done():
			return domain.BalanceAccount{}, false, ctx.Err()
		}
	}

	acct, found, err := t.Balance(ctx, userID)
	if err != nil {
		return domain.BalanceAccount{}, false, err
	}
	if found {
		return acct, false, nil
	}

	acct = domain.BalanceAccount{UserID: userID, Balance: decimal.Zero, UpdatedAt: t.s.now()}
	t.balances[userID] = acct
	return acct, true, nil
}

func (t *tx) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) (domain.BalanceAccount, error) {
	if t.readOnly {
		return domain.BalanceAccount{}, storage.ErrReadOnly
	}
	if _, ok := t.held[userID]; !ok {
		return domain.BalanceAccount{}, fmt.Errorf("잠기지 않은 잔고 행입니다 (user %d)", userID)
	}
	if balance.IsNegative() {
		return domain.BalanceAccount{}, fmt.Errorf("잔고는 음수가 될 수 없습니다 (user %d)", userID)
	}

	acct := domain.BalanceAccount{UserID: userID, Balance: balance, UpdatedAt: t.s.now()}
	t.balances[userID] = acct
	return acct, nil
}

func (t *tx) InsertEntry(ctx context.Context, entry domain.LedgerEntry) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if entry.ID == "" {
		return fmt.Errorf("원장 항목 ID가 비어 있습니다")
	}
	t.entries = append(t.entries, entry)
	return nil
}

// userEntries는 커밋된 항목과 이 트랜잭션의 항목을 기록 순서대로 모읍니다
func (t *tx) userEntries(userID int64) []domain.LedgerEntry {
	t.s.mu.Lock()
	var out []domain.LedgerEntry
	for _, e := range t.s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	t.s.mu.Unlock()

	for _, e := range t.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (t *tx) SumsByAsset(ctx context.Context, userID int64) ([]storage.AssetSums, error) {
	bySymbol := make(map[string]*storage.AssetSums)
	for _, e := range t.userEntries(userID) {
		s, ok := bySymbol[e.AssetSymbol]
		if !ok {
			s = &storage.AssetSums{AssetSymbol: e.AssetSymbol}
			bySymbol[e.AssetSymbol] = s
		}
		s.Quantity = s.Quantity.Add(e.Quantity)
		s.NetValue = s.NetValue.Add(e.NetValue)
		s.Fee = s.Fee.Add(e.Fee)
		switch e.TradeType {
		case domain.Buy:
			s.BuyNetValue = s.BuyNetValue.Add(e.NetValue)
		case domain.Sell:
			s.SellNetValue = s.SellNetValue.Add(e.NetValue)
		}
	}

	out := make([]storage.AssetSums, 0, len(bySymbol))
	for _, s := range bySymbol {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetSymbol < out[j].AssetSymbol })
	return out, nil
}

func (t *tx) Entries(ctx context.Context, userID int64, limit int) ([]domain.LedgerEntry, error) {
	entries := t.userEntries(userID)

	// 기록 순서를 뒤집은 뒤 시각 기준으로 안정 정렬하면 같은 시각은 나중 기록이 앞에 옵니다
	out := make([]domain.LedgerEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TradeAt.After(out[j].TradeAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
