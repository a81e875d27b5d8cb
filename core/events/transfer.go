package events

import (
	"math/big"

	"loanft/core/types"
)

const (
	// TypeTransfer is emitted for native currency balance movements.
	TypeTransfer = "transfer.native"
)

type Transfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"to":     FormatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	// Genesis credits have no sender.
	if !zeroBytes(e.From[:]) {
		attrs["from"] = FormatAddress(e.From)
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
