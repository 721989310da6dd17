package mocks

import (
	"context"
	"math/big"
	"sync"

	"xswap/swapd/internal/models"
	"xswap/swapd/internal/stores"

	"github.com/ethereum/go-ethereum/common"
)

// MockSwapStore keeps records in a map and lets tests override individual
// operations to inject failures.
type MockSwapStore struct {
	mu    sync.Mutex
	Swaps map[common.Hash]*models.Swap

	PutIfAbsentFn func(ctx context.Context, swap *models.Swap) error
	PutFn         func(ctx context.Context, swap *models.Swap) error
	GetFn         func(ctx context.Context, id common.Hash) (*models.Swap, error)
}

func NewMockSwapStore() *MockSwapStore {
	return &MockSwapStore{Swaps: make(map[common.Hash]*models.Swap)}
}

func (m *MockSwapStore) PutIfAbsent(ctx context.Context, swap *models.Swap) error {
	if m.PutIfAbsentFn != nil {
		return m.PutIfAbsentFn(ctx, swap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Swaps[swap.ID]; ok {
		return stores.ErrDuplicateSwap
	}
	cp := *swap
	m.Swaps[swap.ID] = &cp
	return nil
}

func (m *MockSwapStore) Put(ctx context.Context, swap *models.Swap) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, swap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *swap
	m.Swaps[swap.ID] = &cp
	return nil
}

func (m *MockSwapStore) Get(ctx context.Context, id common.Hash) (*models.Swap, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	swap, ok := m.Swaps[id]
	if !ok {
		return nil, stores.ErrSwapNotFound
	}
	cp := *swap
	return &cp, nil
}

func (m *MockSwapStore) Scan(ctx context.Context, visit func(*models.Swap) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, swap := range m.Swaps {
		cp := *swap
		if err := visit(&cp); err != nil {
			return err
		}
	}
	return nil
}

// MockBalanceStore tracks balances in memory. Transfers check funds the same
// way the bbolt store does.
type MockBalanceStore struct {
	mu       sync.Mutex
	Balances map[common.Address]*big.Int

	TransferFn func(ctx context.Context, from, to common.Address, amount *big.Int) error
}

func NewMockBalanceStore() *MockBalanceStore {
	return &MockBalanceStore{Balances: make(map[common.Address]*big.Int)}
}

func (m *MockBalanceStore) Deposit(ctx context.Context, addr common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[addr] = new(big.Int).Add(m.balance(addr), amount)
	return nil
}

func (m *MockBalanceStore) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if m.TransferFn != nil {
		return m.TransferFn(ctx, from, to, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	have := m.balance(from)
	if have.Cmp(amount) < 0 {
		return stores.ErrInsufficientFunds
	}
	m.Balances[from] = new(big.Int).Sub(have, amount)
	m.Balances[to] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

func (m *MockBalanceStore) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance(addr)), nil
}

func (m *MockBalanceStore) balance(addr common.Address) *big.Int {
	if b, ok := m.Balances[addr]; ok {
		return b
	}
	return new(big.Int)
}
