package services

import (
	"context"
	"math/big"
	"testing"
	"time"
)

func TestAuditEscrow_Balanced(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	// two live swaps, one claimed: only the live ones count as locked
	id1 := f.initiate(t, 2*time.Hour)
	f.clock.Advance(time.Second)
	f.initiate(t, 2*time.Hour)
	f.clock.Advance(time.Second)
	f.initiate(t, 2*time.Hour)
	if err := f.ledger.Claim(ctx, bob, id1, secret); err != nil {
		t.Fatalf("Claim error: %v", err)
	}

	audit, err := AuditEscrow(ctx, f.ledger.swaps, f.balances, escrowAddr)
	if err != nil {
		t.Fatalf("AuditEscrow error: %v", err)
	}
	if audit.ActiveSwaps != 2 {
		t.Fatalf("active swaps = %d, want 2", audit.ActiveSwaps)
	}
	if audit.LockedValue.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("locked value = %s, want 200", audit.LockedValue)
	}
	if !audit.Balanced() {
		t.Fatalf("audit must balance: locked %s vs escrow %s", audit.LockedValue, audit.EscrowBalance)
	}
}

func TestAuditEscrow_DetectsMismatch(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	f.initiate(t, 2*time.Hour)

	// value parked in escrow outside any swap record
	if err := f.treasury.Fund(ctx, escrowAddr, big.NewInt(7)); err != nil {
		t.Fatalf("Fund error: %v", err)
	}

	audit, err := AuditEscrow(ctx, f.ledger.swaps, f.balances, escrowAddr)
	if err != nil {
		t.Fatalf("AuditEscrow error: %v", err)
	}
	if audit.Balanced() {
		t.Fatalf("audit must flag the mismatch: locked %s vs escrow %s", audit.LockedValue, audit.EscrowBalance)
	}
}
