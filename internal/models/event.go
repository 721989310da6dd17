package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type EventType string

const (
	EventSwapInitiated EventType = "SWAP_INITIATED"
	EventSwapWithdrawn EventType = "SWAP_WITHDRAWN"
	EventSwapRefunded  EventType = "SWAP_REFUNDED"
)

// SwapEvent is the coordination channel with off-chain relayers. The withdrawn
// event carries the revealed preimage; that reveal is what lets the relayer
// unlock the mirrored swap on the counterparty chain.
type SwapEvent struct {
	Seq                uint64          `json:"seq"`
	Type               EventType       `json:"type"`
	SwapID             common.Hash     `json:"swap_id"`
	Initiator          *common.Address `json:"initiator,omitempty"`
	Participant        *common.Address `json:"participant,omitempty"`
	Amount             *big.Int        `json:"amount,omitempty"`
	Hashlock           *common.Hash    `json:"hashlock,omitempty"`
	Timelock           int64           `json:"timelock,omitempty"`
	DestinationAddress string          `json:"destination_address,omitempty"`
	Preimage           hexutil.Bytes   `json:"preimage,omitempty"`
	EmittedAt          time.Time       `json:"emitted_at"`
}

func NewInitiatedEvent(s *Swap) *SwapEvent {
	initiator := s.Initiator
	participant := s.Participant
	hashlock := s.Hashlock
	return &SwapEvent{
		Type:               EventSwapInitiated,
		SwapID:             s.ID,
		Initiator:          &initiator,
		Participant:        &participant,
		Amount:             new(big.Int).Set(s.Amount),
		Hashlock:           &hashlock,
		Timelock:           s.Timelock,
		DestinationAddress: s.DestinationAddress,
		EmittedAt:          time.Now().UTC(),
	}
}

func NewWithdrawnEvent(id common.Hash, preimage []byte) *SwapEvent {
	return &SwapEvent{
		Type:      EventSwapWithdrawn,
		SwapID:    id,
		Preimage:  append([]byte(nil), preimage...),
		EmittedAt: time.Now().UTC(),
	}
}

func NewRefundedEvent(id common.Hash) *SwapEvent {
	return &SwapEvent{
		Type:      EventSwapRefunded,
		SwapID:    id,
		EmittedAt: time.Now().UTC(),
	}
}
