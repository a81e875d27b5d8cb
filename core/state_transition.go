package core

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"loanft/core/events"
	"loanft/core/state"
	"loanft/core/types"
	"loanft/crypto"
	"loanft/native/assets"
	"loanft/native/bank"
	"loanft/native/loan"
)

var (
	ErrUnknownTxType   = errors.New("state transition: unknown transaction type")
	ErrValueNotAllowed = errors.New("state transition: transaction does not accept a value")
	ErrMissingTarget   = errors.New("state transition: transaction target required")
)

// StateProcessor applies decoded transactions to the pending state held by
// its manager. It never commits; the node decides whether the pending writes
// survive.
type StateProcessor struct {
	manager    *state.Manager
	Bank       *bank.Ledger
	Assets     *assets.Engine
	LoanEngine *loan.Engine
	buffer     *events.Buffer
	nowFn      func() int64
}

// NewStateProcessor wires the native modules to manager. Every module emits
// into a shared buffer that is drained by the node after each transaction.
func NewStateProcessor(manager *state.Manager) *StateProcessor {
	buf := &events.Buffer{}
	ledger := bank.NewLedger(manager)
	ledger.SetEmitter(buf)

	registries := assets.NewEngine()
	registries.SetState(manager)
	registries.SetEmitter(buf)

	loans := loan.NewEngine()
	loans.SetState(manager)
	loans.SetRegistries(registries, registries)
	loans.SetFeeLedger(ledger)
	loans.SetPauses(manager)
	loans.SetEmitter(buf)

	sp := &StateProcessor{
		manager:    manager,
		Bank:       ledger,
		Assets:     registries,
		LoanEngine: loans,
		buffer:     buf,
	}
	sp.SetNowFunc(nil)
	return sp
}

// SetNowFunc overrides the clock used to timestamp escrow transitions.
func (sp *StateProcessor) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	sp.nowFn = now
	sp.LoanEngine.SetNowFunc(now)
}

// Now returns the processor clock in unix seconds.
func (sp *StateProcessor) Now() int64 { return sp.nowFn() }

// Manager exposes the underlying state manager.
func (sp *StateProcessor) Manager() *state.Manager { return sp.manager }

// TakeEvents returns the events emitted since the last call and clears the
// buffer.
func (sp *StateProcessor) TakeEvents() []events.Event {
	evts := sp.buffer.Events()
	sp.buffer.Reset()
	return evts
}

// DropEvents discards buffered events from a failed transaction.
func (sp *StateProcessor) DropEvents() { sp.buffer.Reset() }

// EscrowTarget returns the escrow a transaction acts on, or the zero identity
// for transactions that do not touch an escrow.
func EscrowTarget(tx *types.Transaction, sender [20]byte) [20]byte {
	switch tx.Type {
	case types.TxTypeCreateLoan:
		return loan.DeriveAddress(sender, tx.Nonce)
	case types.TxTypeCommitCollateral, types.TxTypeCommitRequestedAsset:
		if addr, err := tx.Recipient(); err == nil {
			return addr
		}
	}
	return [20]byte{}
}

// ApplyTransaction dispatches tx from sender. The nonce is handled by the
// caller.
func (sp *StateProcessor) ApplyTransaction(tx *types.Transaction, sender [20]byte) error {
	if tx == nil {
		return fmt.Errorf("state transition: nil transaction")
	}
	switch tx.Type {
	case types.TxTypeTransfer:
		return sp.applyTransfer(tx, sender)
	case types.TxTypeCommitCollateral:
		return sp.applyCommitCollateral(tx, sender)
	case types.TxTypeCommitRequestedAsset:
		return sp.applyCommitRequestedAsset(tx, sender)
	}
	if tx.Payment().Sign() != 0 {
		return ErrValueNotAllowed
	}
	switch tx.Type {
	case types.TxTypeApprove:
		return sp.applyApprove(tx, sender)
	case types.TxTypeMintCollateral:
		return sp.applyMintCollateral(tx, sender)
	case types.TxTypeMintUnits:
		return sp.applyMintUnits(tx, sender)
	case types.TxTypeTransferCollateral:
		return sp.applyTransferCollateral(tx, sender)
	case types.TxTypeTransferUnits:
		return sp.applyTransferUnits(tx, sender)
	case types.TxTypeCreateLoan:
		return sp.applyCreateLoan(tx, sender)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
}

func target(tx *types.Transaction) ([20]byte, error) {
	addr, err := tx.Recipient()
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrMissingTarget, err)
	}
	return addr, nil
}

func parseIdentity(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return addr, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func (sp *StateProcessor) applyTransfer(tx *types.Transaction, sender [20]byte) error {
	to, err := target(tx)
	if err != nil {
		return err
	}
	return sp.Bank.Transfer(sender, to, tx.Payment())
}

func (sp *StateProcessor) applyApprove(tx *types.Transaction, sender [20]byte) error {
	registry, err := target(tx)
	if err != nil {
		return err
	}
	var payload types.ApprovePayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	operator, err := parseIdentity("operator", payload.Operator)
	if err != nil {
		return err
	}
	return sp.Assets.SetApprovalForAll(registry, sender, operator, payload.Approved)
}

func (sp *StateProcessor) applyMintCollateral(tx *types.Transaction, sender [20]byte) error {
	registry, err := target(tx)
	if err != nil {
		return err
	}
	var payload types.MintCollateralPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	recipient, err := parseIdentity("recipient", payload.Recipient)
	if err != nil {
		return err
	}
	return sp.Assets.MintUnique(registry, sender, recipient, payload.AssetID)
}

func (sp *StateProcessor) applyMintUnits(tx *types.Transaction, sender [20]byte) error {
	registry, err := target(tx)
	if err != nil {
		return err
	}
	var payload types.MintUnitsPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	recipient, err := parseIdentity("recipient", payload.Recipient)
	if err != nil {
		return err
	}
	return sp.Assets.MintUnits(registry, sender, recipient, payload.AssetID, payload.Amount)
}

func (sp *StateProcessor) applyTransferCollateral(tx *types.Transaction, sender [20]byte) error {
	registry, err := target(tx)
	if err != nil {
		return err
	}
	var payload types.TransferCollateralPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	recipient, err := parseIdentity("recipient", payload.Recipient)
	if err != nil {
		return err
	}
	return sp.Assets.TransferOwnership(registry, sender, sender, recipient, payload.AssetID)
}

func (sp *StateProcessor) applyTransferUnits(tx *types.Transaction, sender [20]byte) error {
	registry, err := target(tx)
	if err != nil {
		return err
	}
	var payload types.TransferUnitsPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	recipient, err := parseIdentity("recipient", payload.Recipient)
	if err != nil {
		return err
	}
	return sp.Assets.TransferUnits(registry, sender, sender, recipient, payload.AssetID, payload.Amount)
}

// TermsFromPayload converts a create-loan payload into escrow terms.
func TermsFromPayload(payload types.CreateLoanPayload) (loan.Terms, error) {
	var terms loan.Terms
	fields := []struct {
		name  string
		value string
		out   *[20]byte
	}{
		{"borrower", payload.Borrower, &terms.Borrower},
		{"collateralRegistry", payload.CollateralRegistry, &terms.CollateralRegistry},
		{"requestedRegistry", payload.RequestedRegistry, &terms.RequestedRegistry},
		{"interestRegistry", payload.InterestRegistry, &terms.InterestRegistry},
		{"commissionWallet", payload.CommissionWallet, &terms.CommissionWallet},
	}
	for _, f := range fields {
		addr, err := parseIdentity(f.name, f.value)
		if err != nil {
			return loan.Terms{}, err
		}
		*f.out = addr
	}
	terms.CollateralAssetID = payload.CollateralAssetID
	terms.RequestedAssetID = payload.RequestedAssetID
	terms.TimeToPay = payload.TimeToPay
	terms.LoanFee = payload.LoanFee
	if terms.LoanFee == nil {
		terms.LoanFee = new(big.Int)
	}
	terms.InterestUnits = payload.InterestUnits
	terms.RequestedUnits = payload.RequestedUnits
	return terms, nil
}

func (sp *StateProcessor) applyCreateLoan(tx *types.Transaction, sender [20]byte) error {
	var payload types.CreateLoanPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	terms, err := TermsFromPayload(payload)
	if err != nil {
		return err
	}
	_, err = sp.LoanEngine.Create(loan.DeriveAddress(sender, tx.Nonce), terms)
	return err
}

func (sp *StateProcessor) applyCommitCollateral(tx *types.Transaction, sender [20]byte) error {
	escrow, err := target(tx)
	if err != nil {
		return err
	}
	var payload types.CommitCollateralPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	_, err = sp.LoanEngine.CommitCollateral(escrow, sender, payload.CollateralAssetID, payload.InterestAssetID, tx.Payment())
	return err
}

func (sp *StateProcessor) applyCommitRequestedAsset(tx *types.Transaction, sender [20]byte) error {
	escrow, err := target(tx)
	if err != nil {
		return err
	}
	_, err = sp.LoanEngine.CommitRequestedAsset(escrow, sender, tx.Payment())
	return err
}
