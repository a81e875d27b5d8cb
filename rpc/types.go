package rpc

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"

	"loanft/core/state"
	"loanft/crypto"
	"loanft/native/loan"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeTxRejected     = -32010
	codeRateLimited    = -32020

	// Loan transition failures, one code per error kind.
	codeLoanConfiguration = -32100
	codeLoanAuthorization = -32101
	codeLoanBalance       = -32102
	codeLoanPayment       = -32103
	codeLoanRoleConflict  = -32104
	codeTxFailed          = -32105
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// EscrowResult is the JSON view of a loan escrow.
type EscrowResult struct {
	Address            string `json:"address"`
	Borrower           string `json:"borrower"`
	Lender             string `json:"lender,omitempty"`
	CollateralRegistry string `json:"collateralRegistry"`
	RequestedRegistry  string `json:"requestedRegistry"`
	InterestRegistry   string `json:"interestRegistry"`
	CollateralAssetID  uint64 `json:"collateralAssetId"`
	RequestedAssetID   uint64 `json:"assetToRequestId"`
	InterestAssetID    uint64 `json:"interestAssetId"`
	InterestUnits      string `json:"interestUnits"`
	RequestedUnits     string `json:"requestedUnits"`
	TimeToPay          uint64 `json:"timeToPay"`
	LoanFee            string `json:"loanFee"`
	CommissionWallet   string `json:"commissionWallet"`
	Phase              string `json:"phase"`
	CreatedAt          int64  `json:"createdAt"`
	BorrowedAt         int64  `json:"borrowedAt,omitempty"`
	LentAt             int64  `json:"lentAt,omitempty"`
	DueAt              int64  `json:"dueAt,omitempty"`
}

func formatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func newEscrowResult(esc *loan.Escrow) EscrowResult {
	res := EscrowResult{
		Address:            crypto.FromRaw(esc.Address).String(),
		Borrower:           crypto.FromRaw(esc.BorrowerAddress()).String(),
		CollateralRegistry: crypto.FromRaw(esc.CollateralRegistry).String(),
		RequestedRegistry:  crypto.FromRaw(esc.RequestedRegistry).String(),
		InterestRegistry:   crypto.FromRaw(esc.InterestRegistry).String(),
		CollateralAssetID:  esc.CollateralAssetID,
		RequestedAssetID:   esc.AssetToRequestID(),
		InterestAssetID:    esc.InterestAssetID,
		InterestUnits:      formatUnits(esc.InterestUnits),
		RequestedUnits:     formatUnits(esc.RequestedUnits),
		TimeToPay:          esc.TimeToPay,
		LoanFee:            formatUnits(esc.LoanFee),
		CommissionWallet:   crypto.FromRaw(esc.CommissionWalletAddress()).String(),
		Phase:              esc.Phase.String(),
		CreatedAt:          esc.CreatedAt,
		BorrowedAt:         esc.BorrowedAt,
		LentAt:             esc.LentAt,
		DueAt:              esc.DueAt(),
	}
	if esc.HasLender() {
		res.Lender = crypto.FromRaw(esc.Lender).String()
	}
	return res
}

// EventResult is the JSON view of a committed event record.
type EventResult struct {
	Sequence   uint64            `json:"sequence"`
	TxHash     string            `json:"txHash"`
	Timestamp  int64             `json:"timestamp"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func newEventResult(rec *state.EventRecord) EventResult {
	res := EventResult{
		Sequence:   rec.Sequence,
		TxHash:     "0x" + hex.EncodeToString(rec.TxHash[:]),
		Timestamp:  rec.Timestamp,
		Attributes: map[string]string{},
	}
	if rec.Event != nil {
		res.Type = rec.Event.Type
		for k, v := range rec.Event.Attributes {
			res.Attributes[k] = v
		}
	}
	return res
}

func newEventResults(records []*state.EventRecord) []EventResult {
	out := make([]EventResult, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		out = append(out, newEventResult(rec))
	}
	return out
}

// BalanceResult is returned by bank_getBalance.
type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}
