package loan

import (
	"loanft/core/events"
	"loanft/core/types"
)

const (
	EventTypeLoanCreated  = "loan.created"
	EventTypeBorrowOrder  = "loan.borrow_order"
	EventTypeLendingOrder = "loan.lending_order"
)

// LoanCreatedEvent is emitted when an escrow is constructed.
type LoanCreatedEvent struct {
	Escrow *Escrow
}

func (LoanCreatedEvent) EventType() string { return EventTypeLoanCreated }

func (e LoanCreatedEvent) Event() *types.Event {
	esc := e.Escrow
	if esc == nil {
		return nil
	}
	return &types.Event{Type: EventTypeLoanCreated, Attributes: map[string]string{
		"escrow":             events.FormatAddress(esc.Address),
		"borrower":           events.FormatAddress(esc.Borrower),
		"collateralRegistry": events.FormatAddress(esc.CollateralRegistry),
		"requestedRegistry":  events.FormatAddress(esc.RequestedRegistry),
		"interestRegistry":   events.FormatAddress(esc.InterestRegistry),
		"collateralId":       events.FormatUint(esc.CollateralAssetID),
		"assetToRequestId":   events.FormatUint(esc.RequestedAssetID),
		"timeToPay":          events.FormatUint(esc.TimeToPay),
		"loanFee":            esc.LoanFee.String(),
		"commissionWallet":   events.FormatAddress(esc.CommissionWallet),
	}}
}

// BorrowOrderEvent is emitted once the borrower has staked collateral and
// interest.
type BorrowOrderEvent struct {
	Escrow       [20]byte
	Borrower     [20]byte
	CollateralID uint64
	InterestID   uint64
}

func (BorrowOrderEvent) EventType() string { return EventTypeBorrowOrder }

func (e BorrowOrderEvent) Event() *types.Event {
	return &types.Event{Type: EventTypeBorrowOrder, Attributes: map[string]string{
		"escrow":       events.FormatAddress(e.Escrow),
		"borrower":     events.FormatAddress(e.Borrower),
		"collateralId": events.FormatUint(e.CollateralID),
		"interestId":   events.FormatUint(e.InterestID),
	}}
}

// LendingOrderEvent is emitted once a lender has supplied the requested asset.
type LendingOrderEvent struct {
	Escrow            [20]byte
	Lender            [20]byte
	RequestedAssetID  uint64
	RequestedRegistry [20]byte
}

func (LendingOrderEvent) EventType() string { return EventTypeLendingOrder }

func (e LendingOrderEvent) Event() *types.Event {
	return &types.Event{Type: EventTypeLendingOrder, Attributes: map[string]string{
		"escrow":            events.FormatAddress(e.Escrow),
		"lender":            events.FormatAddress(e.Lender),
		"assetToRequestId":  events.FormatUint(e.RequestedAssetID),
		"requestedRegistry": events.FormatAddress(e.RequestedRegistry),
	}}
}
