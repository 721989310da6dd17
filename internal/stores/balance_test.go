package stores

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addrA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func newTestBalanceStore(t *testing.T) *LocalBalanceStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalBalanceStore(filepath.Join(dir, "balances.db"))
	if err != nil {
		t.Fatalf("NewLocalBalanceStore error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustBalance(t *testing.T, s *LocalBalanceStore, addr common.Address) *big.Int {
	t.Helper()
	b, err := s.Balance(context.Background(), addr)
	if err != nil {
		t.Fatalf("Balance(%s) error: %v", addr.Hex(), err)
	}
	return b
}

func TestBalanceStore_DepositAndBalance(t *testing.T) {
	store := newTestBalanceStore(t)
	ctx := context.Background()

	if got := mustBalance(t, store, addrA); got.Sign() != 0 {
		t.Fatalf("fresh balance = %s, want 0", got)
	}

	if err := store.Deposit(ctx, addrA, big.NewInt(100)); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if err := store.Deposit(ctx, addrA, big.NewInt(50)); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}

	if got := mustBalance(t, store, addrA); got.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("balance = %s, want 150", got)
	}
}

func TestBalanceStore_Deposit_RejectsNonPositive(t *testing.T) {
	store := newTestBalanceStore(t)
	ctx := context.Background()

	if err := store.Deposit(ctx, addrA, big.NewInt(0)); err == nil {
		t.Fatal("expected error for zero deposit")
	}
	if err := store.Deposit(ctx, addrA, big.NewInt(-5)); err == nil {
		t.Fatal("expected error for negative deposit")
	}
}

func TestBalanceStore_Transfer(t *testing.T) {
	store := newTestBalanceStore(t)
	ctx := context.Background()

	if err := store.Deposit(ctx, addrA, big.NewInt(100)); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if err := store.Transfer(ctx, addrA, addrB, big.NewInt(60)); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}

	if got := mustBalance(t, store, addrA); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("from balance = %s, want 40", got)
	}
	if got := mustBalance(t, store, addrB); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("to balance = %s, want 60", got)
	}
}

func TestBalanceStore_Transfer_Insufficient(t *testing.T) {
	store := newTestBalanceStore(t)
	ctx := context.Background()

	if err := store.Deposit(ctx, addrA, big.NewInt(10)); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}

	err := store.Transfer(ctx, addrA, addrB, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// nothing moved
	if got := mustBalance(t, store, addrA); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("from balance = %s, want 10", got)
	}
	if got := mustBalance(t, store, addrB); got.Sign() != 0 {
		t.Fatalf("to balance = %s, want 0", got)
	}
}
