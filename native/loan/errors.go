package loan

import "errors"

// Error kinds. Every failure of a loan transition wraps exactly one of these so
// callers can classify it with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAuthorization = errors.New("authorization error")
	ErrBalance       = errors.New("balance error")
	ErrPayment       = errors.New("payment error")
	ErrRoleConflict  = errors.New("role conflict error")
)

// Error is a classified loan failure. Error() returns the reason verbatim so it
// can be surfaced to clients unchanged.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Unwrap exposes the kind sentinel to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

var (
	ErrTimeToPayZero = newError(ErrConfiguration, "time can't be zero")
	ErrLoanFeeZero   = newError(ErrConfiguration, "loan fee can't be zero")

	ErrNotBorrower          = newError(ErrAuthorization, "Token must be staked by borrower!")
	ErrInsufficientHolding  = newError(ErrBalance, "You need to have at least one!")
	ErrFeeMismatch          = newError(ErrPayment, "You have to pay the Loan fee")
	ErrLenderIsBorrower     = newError(ErrRoleConflict, "You cannot be the lender if you are the borrower")
	ErrPhase                = newError(ErrAuthorization, "transition not allowed in current phase")
	ErrReentrantCall        = newError(ErrAuthorization, "transition already in progress")
	ErrCollateralMismatch   = newError(ErrConfiguration, "collateral does not match loan terms")
	ErrZeroBorrower         = newError(ErrConfiguration, "borrower can't be empty")
	ErrZeroRegistry         = newError(ErrConfiguration, "registry can't be empty")
	ErrZeroCommissionWallet = newError(ErrConfiguration, "commission wallet can't be empty")
	ErrNegativeLoanFee      = newError(ErrConfiguration, "loan fee can't be negative")
	ErrInvalidUnits         = newError(ErrConfiguration, "unit amounts must be positive")
)

// KindLabel returns a short stable label for the kind of err, suitable for
// metrics and logs. Unclassified errors are labelled "internal".
func KindLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrBalance):
		return "balance"
	case errors.Is(err, ErrPayment):
		return "payment"
	case errors.Is(err, ErrRoleConflict):
		return "role_conflict"
	default:
		return "internal"
	}
}
