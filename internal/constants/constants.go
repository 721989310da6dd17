package constants

import "time"

const (
	DefaultListenAddr = ":8000"
	DefaultDataDir    = "./tmp"

	// Minimum gap between creation and expiry; gives the counterparty chain
	// time to react before the initiator can refund.
	DefaultMinTimelock = 3600 * time.Second

	// Internal account holding all escrowed value.
	EscrowAccount = "0x000000000000000000000000000000000000ec50"
)
