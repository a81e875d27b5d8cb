package loan

import (
	"fmt"
	"math/big"
)

// Phase is the lifecycle stage of an escrow. It only ever moves forward.
type Phase uint8

const (
	PhaseCreated Phase = iota
	PhaseBorrowDeposited
	PhaseLendDeposited
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseBorrowDeposited:
		return "borrow_deposited"
	case PhaseLendDeposited:
		return "lend_deposited"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool { return p <= PhaseLendDeposited }

// Transition names one of the escrow's state changes.
type Transition string

const (
	TransitionBorrow Transition = "commit_collateral"
	TransitionLend   Transition = "commit_requested_asset"
)

type edge struct {
	from Phase
	to   Phase
}

// transitions is the complete table of allowed phase changes.
var transitions = map[Transition]edge{
	TransitionBorrow: {from: PhaseCreated, to: PhaseBorrowDeposited},
	TransitionLend:   {from: PhaseBorrowDeposited, to: PhaseLendDeposited},
}

// Terms are the construction parameters of an escrow, in their canonical
// order. InterestUnits and RequestedUnits default to one unit when nil.
type Terms struct {
	Borrower           [20]byte
	CollateralRegistry [20]byte
	RequestedRegistry  [20]byte
	InterestRegistry   [20]byte
	CollateralAssetID  uint64
	RequestedAssetID   uint64
	TimeToPay          uint64
	LoanFee            *big.Int
	CommissionWallet   [20]byte
	InterestUnits      *big.Int
	RequestedUnits     *big.Int
}

// Escrow is a single loan agreement.
type Escrow struct {
	Address            [20]byte
	Borrower           [20]byte
	CollateralRegistry [20]byte
	RequestedRegistry  [20]byte
	InterestRegistry   [20]byte
	CollateralAssetID  uint64
	RequestedAssetID   uint64
	TimeToPay          uint64
	LoanFee            *big.Int
	CommissionWallet   [20]byte
	InterestUnits      *big.Int
	RequestedUnits     *big.Int

	Lender          [20]byte
	InterestAssetID uint64
	Phase           Phase

	CreatedAt  int64
	BorrowedAt int64
	LentAt     int64
}

var one = big.NewInt(1)

func unitsOrOne(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int).Set(one)
	}
	return new(big.Int).Set(v)
}

// NewEscrow validates terms and returns an escrow at addr in phase Created.
// Nothing is returned when validation fails.
func NewEscrow(addr [20]byte, terms Terms) (*Escrow, error) {
	if terms.TimeToPay == 0 {
		return nil, ErrTimeToPayZero
	}
	if terms.LoanFee == nil || terms.LoanFee.Sign() == 0 {
		return nil, ErrLoanFeeZero
	}
	if terms.LoanFee.Sign() < 0 {
		return nil, ErrNegativeLoanFee
	}
	if terms.Borrower == ([20]byte{}) {
		return nil, ErrZeroBorrower
	}
	var zero [20]byte
	if terms.CollateralRegistry == zero || terms.RequestedRegistry == zero || terms.InterestRegistry == zero {
		return nil, ErrZeroRegistry
	}
	if terms.CommissionWallet == zero {
		return nil, ErrZeroCommissionWallet
	}
	interest := unitsOrOne(terms.InterestUnits)
	requested := unitsOrOne(terms.RequestedUnits)
	if interest.Sign() <= 0 || requested.Sign() <= 0 {
		return nil, ErrInvalidUnits
	}
	return &Escrow{
		Address:            addr,
		Borrower:           terms.Borrower,
		CollateralRegistry: terms.CollateralRegistry,
		RequestedRegistry:  terms.RequestedRegistry,
		InterestRegistry:   terms.InterestRegistry,
		CollateralAssetID:  terms.CollateralAssetID,
		RequestedAssetID:   terms.RequestedAssetID,
		TimeToPay:          terms.TimeToPay,
		LoanFee:            new(big.Int).Set(terms.LoanFee),
		CommissionWallet:   terms.CommissionWallet,
		InterestUnits:      interest,
		RequestedUnits:     requested,
		Phase:              PhaseCreated,
	}, nil
}

// BorrowerAddress returns the identity allowed to commit collateral.
func (e *Escrow) BorrowerAddress() [20]byte { return e.Borrower }

// AssetToRequestID returns the requested asset id a lender must supply.
func (e *Escrow) AssetToRequestID() uint64 { return e.RequestedAssetID }

// CommissionWalletAddress returns the identity receiving loan fees.
func (e *Escrow) CommissionWalletAddress() [20]byte { return e.CommissionWallet }

// HasLender reports whether the lend transition has completed.
func (e *Escrow) HasLender() bool { return e.Lender != ([20]byte{}) }

// DueAt returns the informational repayment deadline, or zero before the loan
// is matched. Nothing enforces it.
func (e *Escrow) DueAt() int64 {
	if e.LentAt == 0 {
		return 0
	}
	return e.LentAt + int64(e.TimeToPay)
}

func (e *Escrow) interestUnits() *big.Int  { return unitsOrOne(e.InterestUnits) }
func (e *Escrow) requestedUnits() *big.Int { return unitsOrOne(e.RequestedUnits) }

// advance applies the transition table. The escrow is left untouched when the
// current phase is not the transition's source.
func (e *Escrow) advance(t Transition) error {
	step, ok := transitions[t]
	if !ok || e.Phase != step.from {
		return ErrPhase
	}
	e.Phase = step.to
	return nil
}

// Clone returns a deep copy of the escrow.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	out := *e
	if e.LoanFee != nil {
		out.LoanFee = new(big.Int).Set(e.LoanFee)
	}
	if e.InterestUnits != nil {
		out.InterestUnits = new(big.Int).Set(e.InterestUnits)
	}
	if e.RequestedUnits != nil {
		out.RequestedUnits = new(big.Int).Set(e.RequestedUnits)
	}
	return &out
}

// Sanitize checks the stored invariants of an escrow record.
func Sanitize(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("loan: nil escrow")
	}
	if e.Address == ([20]byte{}) {
		return nil, fmt.Errorf("loan: escrow address required")
	}
	if !e.Phase.Valid() {
		return nil, fmt.Errorf("loan: invalid phase %d", e.Phase)
	}
	if e.TimeToPay == 0 || e.LoanFee == nil || e.LoanFee.Sign() <= 0 {
		return nil, fmt.Errorf("loan: invalid terms")
	}
	if e.HasLender() && e.Lender == e.Borrower {
		return nil, fmt.Errorf("loan: lender equals borrower")
	}
	if e.Phase == PhaseLendDeposited && !e.HasLender() {
		return nil, fmt.Errorf("loan: lend phase without lender")
	}
	return e.Clone(), nil
}
