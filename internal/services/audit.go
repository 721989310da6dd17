package services

import (
	"context"
	"math/big"

	"xswap/swapd/internal/models"
	"xswap/swapd/internal/stores"

	"github.com/ethereum/go-ethereum/common"
)

// EscrowAudit compares the value the swap records say is locked against what
// the escrow account actually holds.
type EscrowAudit struct {
	ActiveSwaps   int
	LockedValue   *big.Int
	EscrowBalance *big.Int
}

// Balanced reports whether every escrowed unit is accounted for by an active
// swap. A mismatch means a rollback failed at some point and the books need
// operator attention.
func (a *EscrowAudit) Balanced() bool {
	return a.LockedValue.Cmp(a.EscrowBalance) == 0
}

// AuditEscrow walks all swap records, sums the amounts of active ones and
// reads the escrow account balance. Run at startup before serving.
func AuditEscrow(ctx context.Context, swaps stores.SwapStore, balances stores.BalanceStore, escrow common.Address) (*EscrowAudit, error) {
	audit := &EscrowAudit{LockedValue: new(big.Int)}
	err := swaps.Scan(ctx, func(s *models.Swap) error {
		if s.Active() {
			audit.ActiveSwaps++
			audit.LockedValue.Add(audit.LockedValue, s.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.EscrowBalance, err = balances.Balance(ctx, escrow)
	if err != nil {
		return nil, err
	}
	return audit, nil
}
