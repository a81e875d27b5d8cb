package events

import (
	"math/big"

	"loanft/core/types"
)

const (
	// TypeFeeCollected marks a loan fee forwarded to a commission wallet.
	TypeFeeCollected = "fees.collected"
)

// FeeCollected records a loan fee routed to the commission wallet of an escrow.
type FeeCollected struct {
	Escrow           [20]byte
	Payer            [20]byte
	CommissionWallet [20]byte
	Amount           *big.Int
	Stage            string
}

// EventType satisfies the events.Event interface.
func (FeeCollected) EventType() string { return TypeFeeCollected }

// Event converts the structured payload into a broadcastable event.
func (e FeeCollected) Event() *types.Event {
	attrs := map[string]string{
		"escrow":           FormatAddress(e.Escrow),
		"payer":            FormatAddress(e.Payer),
		"commissionWallet": FormatAddress(e.CommissionWallet),
		"amount":           formatAmount(e.Amount),
	}
	if e.Stage != "" {
		attrs["stage"] = e.Stage
	}
	return &types.Event{Type: TypeFeeCollected, Attributes: attrs}
}
