package rpc

import (
	"errors"
	"net/http"

	"loanft/core"
	"loanft/native/assets"
	"loanft/native/bank"
	nativecommon "loanft/native/common"
	"loanft/native/loan"
)

// classify maps an error returned by the node to an HTTP status and JSON-RPC
// code. The message is always err.Error() so loan reasons reach the client
// verbatim.
func classify(err error) (int, int) {
	switch {
	case err == nil:
		return http.StatusOK, 0
	case errors.Is(err, loan.ErrConfiguration):
		return http.StatusBadRequest, codeLoanConfiguration
	case errors.Is(err, loan.ErrAuthorization):
		return http.StatusForbidden, codeLoanAuthorization
	case errors.Is(err, loan.ErrBalance):
		return http.StatusUnprocessableEntity, codeLoanBalance
	case errors.Is(err, loan.ErrPayment):
		return http.StatusPaymentRequired, codeLoanPayment
	case errors.Is(err, loan.ErrRoleConflict):
		return http.StatusConflict, codeLoanRoleConflict
	case errors.Is(err, core.ErrChainIDMismatch),
		errors.Is(err, core.ErrInvalidSender),
		errors.Is(err, core.ErrNonceMismatch),
		errors.Is(err, core.ErrNilTransaction):
		return http.StatusBadRequest, codeTxRejected
	case errors.Is(err, loan.ErrEscrowNotFound),
		errors.Is(err, assets.ErrRegistryNotFound),
		errors.Is(err, assets.ErrTokenNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable, codeTxFailed
	case errors.Is(err, core.ErrUnknownTxType),
		errors.Is(err, core.ErrValueNotAllowed),
		errors.Is(err, core.ErrMissingTarget),
		errors.Is(err, loan.ErrEscrowExists),
		errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrBalanceOverflow),
		isAssetFailure(err):
		return http.StatusUnprocessableEntity, codeTxFailed
	default:
		return http.StatusInternalServerError, codeServerError
	}
}

func isAssetFailure(err error) bool {
	for _, target := range []error{
		assets.ErrWrongKind,
		assets.ErrTokenExists,
		assets.ErrNotMinter,
		assets.ErrNotOwner,
		assets.ErrNotApproved,
		assets.ErrInsufficient,
		assets.ErrInvalidAmount,
		assets.ErrZeroRecipient,
		assets.ErrSelfApproval,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func rpcErrorFrom(err error, data interface{}) (int, *RPCError) {
	status, code := classify(err)
	return status, &RPCError{Code: code, Message: err.Error(), Data: data}
}
