package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"loanft/core"
	"loanft/core/types"
	"loanft/crypto"
	"loanft/indexer"
	"loanft/native/assets"
)

// txFailure reports a transaction whose nonce was consumed but whose
// transition reverted. The receipt travels in the error data.
type txFailure struct {
	receipt *core.Receipt
	cause   error
}

func (e *txFailure) Error() string { return e.cause.Error() }
func (e *txFailure) Unwrap() error { return e.cause }

func (s *Server) registerMethods() map[string]method {
	methods := map[string]method{
		"node_chainId":           {handler: s.handleChainID},
		"loan_sendTransaction":   {handler: s.handleSendTransaction, mutating: true},
		"loan_get":               {handler: s.handleLoanGet},
		"loan_list":              {handler: s.handleLoanList},
		"loan_borrowerAddress":   {handler: s.handleLoanBorrowerAddress},
		"loan_assetToRequestId":  {handler: s.handleLoanAssetToRequestID},
		"loan_commissionWallet":  {handler: s.handleLoanCommissionWallet},
		"loan_listEvents":        {handler: s.handleLoanListEvents},
		"events_since":           {handler: s.handleEventsSince},
		"bank_getBalance":        {handler: s.handleBankGetBalance},
		"bank_getNonce":          {handler: s.handleBankGetNonce},
		"asset_ownerOf":          {handler: s.handleAssetOwnerOf},
		"asset_balanceOf":        {handler: s.handleAssetBalanceOf},
		"asset_isApprovedForAll": {handler: s.handleAssetIsApprovedForAll},
		"asset_getRegistry":      {handler: s.handleAssetGetRegistry},
		"asset_listRegistries":   {handler: s.handleAssetListRegistries},
	}
	if s.index != nil {
		methods["index_listEscrows"] = method{handler: s.handleIndexListEscrows}
		methods["index_getEscrow"] = method{handler: s.handleIndexGetEscrow}
		methods["index_feesCollected"] = method{handler: s.handleIndexFeesCollected}
	}
	return methods
}

// --- param helpers ---

func addressParam(params []json.RawMessage, idx int, name string) ([20]byte, error) {
	if len(params) <= idx {
		return [20]byte{}, invalidParams("%s parameter required", name)
	}
	var raw string
	if err := json.Unmarshal(params[idx], &raw); err != nil {
		return [20]byte{}, invalidParams("%s must be a string", name)
	}
	addr, err := crypto.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, invalidParams("invalid %s: %v", name, err)
	}
	return addr, nil
}

func uintParam(params []json.RawMessage, idx int, name string, required bool) (uint64, error) {
	if len(params) <= idx {
		if required {
			return 0, invalidParams("%s parameter required", name)
		}
		return 0, nil
	}
	var v uint64
	if err := json.Unmarshal(params[idx], &v); err != nil {
		return 0, invalidParams("%s must be an unsigned integer", name)
	}
	return v, nil
}

func (s *Server) handleChainID(_ *http.Request, _ []json.RawMessage) (interface{}, error) {
	return s.node.ChainID(), nil
}

// --- loan ---

func (s *Server) handleSendTransaction(r *http.Request, params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, invalidParams("transaction parameter required")
	}
	var tx types.Transaction
	if err := json.Unmarshal(params[0], &tx); err != nil {
		return nil, invalidParams("invalid transaction format: %v", err)
	}
	receipt, err := s.node.ApplyTransaction(r.Context(), &tx)
	if err != nil {
		if receipt != nil {
			return nil, &txFailure{receipt: receipt, cause: err}
		}
		return nil, err
	}
	return receipt, nil
}

func (s *Server) handleLoanGet(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "escrow")
	if err != nil {
		return nil, err
	}
	esc, err := s.node.Escrow(addr)
	if err != nil {
		return nil, err
	}
	return newEscrowResult(esc), nil
}

func (s *Server) handleLoanList(_ *http.Request, _ []json.RawMessage) (interface{}, error) {
	addrs, err := s.node.Escrows()
	if err != nil {
		return nil, err
	}
	out := make([]EscrowResult, 0, len(addrs))
	for _, addr := range addrs {
		esc, err := s.node.Escrow(addr)
		if err != nil {
			return nil, err
		}
		out = append(out, newEscrowResult(esc))
	}
	return out, nil
}

func (s *Server) handleLoanBorrowerAddress(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "escrow")
	if err != nil {
		return nil, err
	}
	esc, err := s.node.Escrow(addr)
	if err != nil {
		return nil, err
	}
	return crypto.FromRaw(esc.BorrowerAddress()).String(), nil
}

func (s *Server) handleLoanAssetToRequestID(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "escrow")
	if err != nil {
		return nil, err
	}
	esc, err := s.node.Escrow(addr)
	if err != nil {
		return nil, err
	}
	return esc.AssetToRequestID(), nil
}

func (s *Server) handleLoanCommissionWallet(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "escrow")
	if err != nil {
		return nil, err
	}
	esc, err := s.node.Escrow(addr)
	if err != nil {
		return nil, err
	}
	return crypto.FromRaw(esc.CommissionWalletAddress()).String(), nil
}

func (s *Server) handleLoanListEvents(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "escrow")
	if err != nil {
		return nil, err
	}
	records, err := s.node.EventsByEscrow(addr)
	if err != nil {
		return nil, err
	}
	return newEventResults(records), nil
}

func (s *Server) handleEventsSince(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	after, err := uintParam(params, 0, "after", false)
	if err != nil {
		return nil, err
	}
	limit, err := uintParam(params, 1, "limit", false)
	if err != nil {
		return nil, err
	}
	records, err := s.node.EventsSince(after, int(limit))
	if err != nil {
		return nil, err
	}
	return newEventResults(records), nil
}

// --- bank ---

func (s *Server) handleBankGetBalance(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	account, err := s.node.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return BalanceResult{
		Address: crypto.FromRaw(addr).String(),
		Balance: formatUnits(account.Balance),
		Nonce:   account.Nonce,
	}, nil
}

func (s *Server) handleBankGetNonce(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	account, err := s.node.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Nonce, nil
}

// --- asset registries ---

// RegistryResult is the JSON view of registry metadata.
type RegistryResult struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Minter  string `json:"minter"`
	Name    string `json:"name,omitempty"`
}

func newRegistryResult(reg *assets.Registry) RegistryResult {
	return RegistryResult{
		Address: crypto.FromRaw(reg.Address).String(),
		Kind:    reg.Kind.String(),
		Minter:  crypto.FromRaw(reg.Minter).String(),
		Name:    reg.Name,
	}
}

func (s *Server) handleAssetOwnerOf(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	registry, err := addressParam(params, 0, "registry")
	if err != nil {
		return nil, err
	}
	id, err := uintParam(params, 1, "assetId", true)
	if err != nil {
		return nil, err
	}
	owner, err := s.node.OwnerOf(registry, id)
	if err != nil {
		return nil, err
	}
	return crypto.FromRaw(owner).String(), nil
}

// handleAssetBalanceOf returns a token count for unique registries and the
// unit balance of the given asset id for fungible ones.
func (s *Server) handleAssetBalanceOf(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	registry, err := addressParam(params, 0, "registry")
	if err != nil {
		return nil, err
	}
	holder, err := addressParam(params, 1, "holder")
	if err != nil {
		return nil, err
	}
	reg, err := s.node.Registry(registry)
	if err != nil {
		return nil, err
	}
	if reg.Kind == assets.KindUnique {
		count, err := s.node.TokenCount(registry, holder)
		if err != nil {
			return nil, err
		}
		return formatUint(count), nil
	}
	id, err := uintParam(params, 2, "assetId", true)
	if err != nil {
		return nil, err
	}
	units, err := s.node.UnitsOf(registry, holder, id)
	if err != nil {
		return nil, err
	}
	return formatUnits(units), nil
}

func (s *Server) handleAssetIsApprovedForAll(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	registry, err := addressParam(params, 0, "registry")
	if err != nil {
		return nil, err
	}
	owner, err := addressParam(params, 1, "owner")
	if err != nil {
		return nil, err
	}
	operator, err := addressParam(params, 2, "operator")
	if err != nil {
		return nil, err
	}
	return s.node.IsApprovedForAll(registry, owner, operator)
}

func (s *Server) handleAssetGetRegistry(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	registry, err := addressParam(params, 0, "registry")
	if err != nil {
		return nil, err
	}
	reg, err := s.node.Registry(registry)
	if err != nil {
		return nil, err
	}
	return newRegistryResult(reg), nil
}

func (s *Server) handleAssetListRegistries(_ *http.Request, _ []json.RawMessage) (interface{}, error) {
	regs, err := s.node.Registries()
	if err != nil {
		return nil, err
	}
	out := make([]RegistryResult, 0, len(regs))
	for _, reg := range regs {
		out = append(out, newRegistryResult(reg))
	}
	return out, nil
}

// --- index ---

type escrowFilterParams struct {
	Borrower string `json:"borrower"`
	Lender   string `json:"lender"`
	Phase    string `json:"phase"`
	Limit    int    `json:"limit"`
}

func (s *Server) handleIndexListEscrows(r *http.Request, params []json.RawMessage) (interface{}, error) {
	var filter escrowFilterParams
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], &filter); err != nil {
			return nil, invalidParams("invalid filter: %v", err)
		}
	}
	return s.index.ListEscrows(r.Context(), indexer.EscrowFilter{
		Borrower: strings.TrimSpace(filter.Borrower),
		Lender:   strings.TrimSpace(filter.Lender),
		Phase:    strings.TrimSpace(filter.Phase),
		Limit:    filter.Limit,
	})
}

func (s *Server) handleIndexGetEscrow(r *http.Request, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "escrow")
	if err != nil {
		return nil, err
	}
	row, err := s.index.Escrow(r.Context(), crypto.FromRaw(addr).String())
	if errors.Is(err, indexer.ErrEscrowNotIndexed) {
		return nil, &callError{status: http.StatusNotFound, err: &RPCError{Code: codeNotFound, Message: err.Error()}}
	}
	return row, err
}

func (s *Server) handleIndexFeesCollected(r *http.Request, params []json.RawMessage) (interface{}, error) {
	wallet, err := addressParam(params, 0, "wallet")
	if err != nil {
		return nil, err
	}
	total, err := s.index.FeesCollected(r.Context(), crypto.FromRaw(wallet).String())
	if err != nil {
		return nil, err
	}
	return total.String(), nil
}
