package services

import (
	"context"
	"math/big"

	"xswap/swapd/internal/stores"

	"github.com/ethereum/go-ethereum/common"
)

// Treasury moves locked value between caller accounts and the ledger's escrow
// account. Each call is all-or-nothing: a failed move leaves balances untouched.
type Treasury interface {
	Escrow(ctx context.Context, from common.Address, amount *big.Int) error
	Payout(ctx context.Context, to common.Address, amount *big.Int) error
}

type LocalTreasury struct {
	balances stores.BalanceStore
	escrow   common.Address
}

func NewLocalTreasury(balances stores.BalanceStore, escrow common.Address) *LocalTreasury {
	return &LocalTreasury{
		balances: balances,
		escrow:   escrow,
	}
}

func (t *LocalTreasury) Escrow(ctx context.Context, from common.Address, amount *big.Int) error {
	return t.balances.Transfer(ctx, from, t.escrow, amount)
}

func (t *LocalTreasury) Payout(ctx context.Context, to common.Address, amount *big.Int) error {
	return t.balances.Transfer(ctx, t.escrow, to, amount)
}

// Fund credits an account directly, bypassing escrow. Used for genesis funding
// at startup and in tests.
func (t *LocalTreasury) Fund(ctx context.Context, addr common.Address, amount *big.Int) error {
	return t.balances.Deposit(ctx, addr, amount)
}
