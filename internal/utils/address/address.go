package address

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Parse validates and decodes an EVM address.
// Destination addresses on the counterparty chain are NOT parsed with this:
// they are opaque strings whose format is the counterparty's business.
func Parse(addressStr string) (common.Address, error) {
	if !common.IsHexAddress(addressStr) {
		return common.Address{}, fmt.Errorf("invalid address: %s", addressStr)
	}
	return common.HexToAddress(addressStr), nil
}
