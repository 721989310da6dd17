package models

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type SwapStatus string

const (
	StatusNonexistent SwapStatus = "NONEXISTENT"
	StatusActive      SwapStatus = "ACTIVE"
	StatusClaimed     SwapStatus = "CLAIMED"
	StatusRefunded    SwapStatus = "REFUNDED"
)

// Swap is a single hashed-timelock contract entry. Records are write-once except
// for the two terminal flags and the preimage captured on claim; they are never
// deleted from the ledger.
type Swap struct {
	ID                 common.Hash    `json:"id"`
	Initiator          common.Address `json:"initiator"`
	Participant        common.Address `json:"participant"`
	Amount             *big.Int       `json:"amount"`
	Hashlock           common.Hash    `json:"hashlock"`
	Timelock           int64          `json:"timelock"` // absolute expiry, unix seconds
	DestinationAddress string         `json:"destination_address"`
	Withdrawn          bool           `json:"withdrawn"`
	Refunded           bool           `json:"refunded"`
	Preimage           hexutil.Bytes  `json:"preimage,omitempty"`
	CreatedAt          int64          `json:"created_at"` // unix seconds
}

// SwapID derives the record identity from all immutable parameters plus the
// creation timestamp. Two identical submissions within the same second produce
// the same id; the ledger treats the second as a duplicate submission.
func SwapID(initiator, participant common.Address, amount *big.Int, hashlock common.Hash, timelock, createdAt int64) common.Hash {
	buf := make([]byte, 0, 2*common.AddressLength+2*common.HashLength+16)
	buf = append(buf, initiator.Bytes()...)
	buf = append(buf, participant.Bytes()...)
	buf = append(buf, common.BigToHash(amount).Bytes()...)
	buf = append(buf, hashlock.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timelock))
	buf = binary.BigEndian.AppendUint64(buf, uint64(createdAt))
	return common.BytesToHash(crypto.Keccak256(buf))
}

// HashlockOf returns the sha256 commitment for a secret.
func HashlockOf(preimage []byte) common.Hash {
	return common.Hash(sha256.Sum256(preimage))
}

// Exists reports whether the record represents a stored swap. A zero initiator
// marks the empty record returned for unknown ids.
func (s *Swap) Exists() bool {
	return s != nil && s.Initiator != (common.Address{})
}

func (s *Swap) Settled() bool {
	return s != nil && (s.Withdrawn || s.Refunded)
}

// Active means created and not yet settled. Expiry is deliberately not part of
// this check: an expired swap stays active until someone refunds it.
func (s *Swap) Active() bool {
	return s.Exists() && !s.Settled()
}

func (s *Swap) Status() SwapStatus {
	switch {
	case !s.Exists():
		return StatusNonexistent
	case s.Withdrawn:
		return StatusClaimed
	case s.Refunded:
		return StatusRefunded
	default:
		return StatusActive
	}
}
