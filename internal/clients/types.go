package clients

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type InitiateParams struct {
	Participant        string `json:"participant"`
	Amount             string `json:"amount"`
	Hashlock           string `json:"hashlock"`
	Timelock           int64  `json:"timelock"`
	DestinationAddress string `json:"destination_address"`
}

type InitiateResult struct {
	SwapID common.Hash `json:"swap_id"`
}

type claimParams struct {
	Preimage hexutil.Bytes `json:"preimage"`
}

type SwapRecord struct {
	ID                 common.Hash    `json:"id"`
	Initiator          common.Address `json:"initiator"`
	Participant        common.Address `json:"participant"`
	Amount             *big.Int       `json:"amount"`
	Hashlock           common.Hash    `json:"hashlock"`
	Timelock           int64          `json:"timelock"`
	DestinationAddress string         `json:"destination_address"`
	Withdrawn          bool           `json:"withdrawn"`
	Refunded           bool           `json:"refunded"`
	Preimage           hexutil.Bytes  `json:"preimage,omitempty"`
	CreatedAt          int64          `json:"created_at"`
}

type SwapResult struct {
	Swap   *SwapRecord `json:"swap"`
	Exists bool        `json:"exists"`
	Status string      `json:"status"`
}

type ActiveResult struct {
	Active bool `json:"active"`
}

// ApiError carries the HTTP status and server-side message of a failed call,
// so callers can branch on the status without parsing error strings.
type ApiError struct {
	StatusCode int
	Message    string `json:"message"`
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}
