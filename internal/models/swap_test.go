package models

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testInitiator   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testParticipant = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestSwapID_Deterministic(t *testing.T) {
	amount := big.NewInt(100)
	hashlock := HashlockOf([]byte("secret"))

	a := SwapID(testInitiator, testParticipant, amount, hashlock, 5000, 1000)
	b := SwapID(testInitiator, testParticipant, amount, hashlock, 5000, 1000)
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestSwapID_TimestampChangesID(t *testing.T) {
	amount := big.NewInt(100)
	hashlock := HashlockOf([]byte("secret"))

	a := SwapID(testInitiator, testParticipant, amount, hashlock, 5000, 1000)
	b := SwapID(testInitiator, testParticipant, amount, hashlock, 5000, 1001)
	if a == b {
		t.Fatal("ids for different creation times must differ")
	}
}

func TestSwapID_ParamsChangeID(t *testing.T) {
	amount := big.NewInt(100)
	hashlock := HashlockOf([]byte("secret"))
	base := SwapID(testInitiator, testParticipant, amount, hashlock, 5000, 1000)

	if got := SwapID(testParticipant, testInitiator, amount, hashlock, 5000, 1000); got == base {
		t.Fatal("swapping parties must change the id")
	}
	if got := SwapID(testInitiator, testParticipant, big.NewInt(101), hashlock, 5000, 1000); got == base {
		t.Fatal("amount must change the id")
	}
	if got := SwapID(testInitiator, testParticipant, amount, hashlock, 5001, 1000); got == base {
		t.Fatal("timelock must change the id")
	}
}

func TestHashlockOf_MatchesSha256(t *testing.T) {
	h := HashlockOf([]byte("secret"))
	if h == (common.Hash{}) {
		t.Fatal("hashlock must not be zero")
	}
	if h != HashlockOf([]byte("secret")) {
		t.Fatal("hashlock must be deterministic")
	}
	if h == HashlockOf([]byte("other")) {
		t.Fatal("different secrets must not collide")
	}
}

func TestSwap_ExistsAndStatus(t *testing.T) {
	var empty Swap
	if empty.Exists() {
		t.Fatal("zero record must not exist")
	}
	if empty.Status() != StatusNonexistent {
		t.Fatalf("status = %s, want %s", empty.Status(), StatusNonexistent)
	}

	s := Swap{Initiator: testInitiator, Participant: testParticipant, Amount: big.NewInt(1)}
	if !s.Exists() || !s.Active() {
		t.Fatal("fresh swap must exist and be active")
	}
	if s.Status() != StatusActive {
		t.Fatalf("status = %s, want %s", s.Status(), StatusActive)
	}

	s.Withdrawn = true
	if s.Active() {
		t.Fatal("withdrawn swap must not be active")
	}
	if s.Status() != StatusClaimed {
		t.Fatalf("status = %s, want %s", s.Status(), StatusClaimed)
	}

	s.Withdrawn = false
	s.Refunded = true
	if s.Status() != StatusRefunded {
		t.Fatalf("status = %s, want %s", s.Status(), StatusRefunded)
	}
}

func TestSwap_ActiveIgnoresExpiry(t *testing.T) {
	// timelock in the distant past: still active until someone refunds
	s := Swap{Initiator: testInitiator, Participant: testParticipant, Amount: big.NewInt(1), Timelock: 1}
	if !s.Active() {
		t.Fatal("expired but unsettled swap must still report active")
	}
}
