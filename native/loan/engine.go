package loan

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"loanft/core/events"
	nativecommon "loanft/native/common"
)

// ModuleName is the pause switch consulted before every transition.
const ModuleName = "loan"

var (
	errNilState       = errors.New("loan engine: state not configured")
	errNilRegistries  = errors.New("loan engine: registries not configured")
	errNilFees        = errors.New("loan engine: fee ledger not configured")
	ErrEscrowNotFound = errors.New("loan engine: escrow not found")
	ErrEscrowExists   = errors.New("loan engine: escrow already exists")
)

// CollateralRegistry is the unique-ownership capability set an escrow needs.
type CollateralRegistry interface {
	TransferOwnership(registry, operator, from, to [20]byte, id uint64) error
}

// FungibleRegistry is the multi-asset capability set an escrow needs for the
// interest and requested assets.
type FungibleRegistry interface {
	BalanceOf(registry, holder [20]byte, id uint64) (*big.Int, error)
	TransferUnits(registry, operator, from, to [20]byte, id uint64, amount *big.Int) error
}

// FeeLedger moves loan fees in the native currency.
type FeeLedger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

type engineState interface {
	LoanPut(*Escrow) error
	LoanGet(addr [20]byte) (*Escrow, bool, error)
}

// Engine runs the escrow state machine against external registries and the
// native fee ledger. Atomicity across the collaborators is provided by the
// caller's state snapshot; the engine itself orders every transition as
// checks, then escrow effects, then external transfers.
type Engine struct {
	state      engineState
	collateral CollateralRegistry
	fungible   FungibleRegistry
	fees       FeeLedger
	pauses     nativecommon.PauseView
	emitter    events.Emitter
	nowFn      func() int64

	mu       sync.Mutex
	inFlight map[[20]byte]struct{}
}

// NewEngine creates a loan engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		inFlight: make(map[[20]byte]struct{}),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistries configures the collateral and fungible registry collaborators.
func (e *Engine) SetRegistries(collateral CollateralRegistry, fungible FungibleRegistry) {
	e.collateral = collateral
	e.fungible = fungible
}

// SetFeeLedger configures the ledger loan fees are forwarded through.
func (e *Engine) SetFeeLedger(fees FeeLedger) { e.fees = fees }

// SetPauses configures the pause switches consulted before transitions.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// DeriveAddress returns the escrow identity created by creator at nonce.
func DeriveAddress(creator [20]byte, nonce uint64) [20]byte {
	return ethcrypto.CreateAddress(common.BytesToAddress(creator[:]), nonce)
}

// enter marks addr as having a transition in flight. A second caller for the
// same escrow is rejected until exit runs.
func (e *Engine) enter(addr [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight == nil {
		e.inFlight = make(map[[20]byte]struct{})
	}
	if _, busy := e.inFlight[addr]; busy {
		return ErrReentrantCall
	}
	e.inFlight[addr] = struct{}{}
	return nil
}

func (e *Engine) exit(addr [20]byte) {
	e.mu.Lock()
	delete(e.inFlight, addr)
	e.mu.Unlock()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.collateral == nil || e.fungible == nil {
		return errNilRegistries
	}
	if e.fees == nil {
		return errNilFees
	}
	return nil
}

func (e *Engine) load(addr [20]byte) (*Escrow, error) {
	esc, ok, err := e.state.LoanGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEscrowNotFound
	}
	return esc, nil
}

// Get returns the escrow stored at addr.
func (e *Engine) Get(addr [20]byte) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.load(addr)
}

// Create validates terms and persists a new escrow at addr. No assets move.
func (e *Engine) Create(addr [20]byte, terms Terms) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	esc, err := NewEscrow(addr, terms)
	if err != nil {
		return nil, err
	}
	_, exists, err := e.state.LoanGet(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEscrowExists
	}
	esc.CreatedAt = e.now()
	if err := e.state.LoanPut(esc); err != nil {
		return nil, err
	}
	e.emit(LoanCreatedEvent{Escrow: esc.Clone()})
	return esc.Clone(), nil
}

func checkPayment(esc *Escrow, payment *big.Int) error {
	if payment == nil || payment.Cmp(esc.LoanFee) != 0 {
		return ErrFeeMismatch
	}
	return nil
}

func (e *Engine) forwardFee(esc *Escrow, payer [20]byte, payment *big.Int, stage Transition) error {
	if err := e.fees.Transfer(payer, esc.CommissionWallet, payment); err != nil {
		return fmt.Errorf("loan engine: forward fee: %w", err)
	}
	e.emit(events.FeeCollected{
		Escrow:           esc.Address,
		Payer:            payer,
		CommissionWallet: esc.CommissionWallet,
		Amount:           new(big.Int).Set(payment),
		Stage:            string(stage),
	})
	return nil
}

// CommitCollateral is the borrow transition. The borrower stakes the
// collateral token and InterestUnits of interestID with the escrow and pays the
// loan fee to the commission wallet.
func (e *Engine) CommitCollateral(addr, caller [20]byte, collateralID, interestID uint64, payment *big.Int) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if err := e.enter(addr); err != nil {
		return nil, err
	}
	defer e.exit(addr)

	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	if caller != esc.Borrower {
		return nil, ErrNotBorrower
	}
	units := esc.interestUnits()
	balance, err := e.fungible.BalanceOf(esc.InterestRegistry, caller, interestID)
	if err != nil {
		return nil, fmt.Errorf("loan engine: interest balance: %w", err)
	}
	if balance.Cmp(units) < 0 {
		return nil, ErrInsufficientHolding
	}
	if err := checkPayment(esc, payment); err != nil {
		return nil, err
	}
	if collateralID != esc.CollateralAssetID {
		return nil, ErrCollateralMismatch
	}
	if err := esc.advance(TransitionBorrow); err != nil {
		return nil, err
	}
	esc.InterestAssetID = interestID
	esc.BorrowedAt = e.now()
	if err := e.state.LoanPut(esc); err != nil {
		return nil, err
	}

	if err := e.forwardFee(esc, caller, payment, TransitionBorrow); err != nil {
		return nil, err
	}
	if err := e.collateral.TransferOwnership(esc.CollateralRegistry, esc.Address, caller, esc.Address, collateralID); err != nil {
		return nil, fmt.Errorf("loan engine: stake collateral: %w", err)
	}
	if err := e.fungible.TransferUnits(esc.InterestRegistry, esc.Address, caller, esc.Address, interestID, units); err != nil {
		return nil, fmt.Errorf("loan engine: stake interest: %w", err)
	}
	e.emit(BorrowOrderEvent{
		Escrow:       esc.Address,
		Borrower:     esc.Borrower,
		CollateralID: collateralID,
		InterestID:   interestID,
	})
	return esc.Clone(), nil
}

// CommitRequestedAsset is the lend transition. The caller supplies
// RequestedUnits of the requested asset straight to the borrower, pays the loan
// fee and becomes the lender.
func (e *Engine) CommitRequestedAsset(addr, caller [20]byte, payment *big.Int) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if err := e.enter(addr); err != nil {
		return nil, err
	}
	defer e.exit(addr)

	esc, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	units := esc.requestedUnits()
	balance, err := e.fungible.BalanceOf(esc.RequestedRegistry, caller, esc.RequestedAssetID)
	if err != nil {
		return nil, fmt.Errorf("loan engine: requested balance: %w", err)
	}
	if balance.Cmp(units) < 0 {
		return nil, ErrInsufficientHolding
	}
	if caller == esc.Borrower {
		return nil, ErrLenderIsBorrower
	}
	if err := checkPayment(esc, payment); err != nil {
		return nil, err
	}
	if err := esc.advance(TransitionLend); err != nil {
		return nil, err
	}
	esc.Lender = caller
	esc.LentAt = e.now()
	if err := e.state.LoanPut(esc); err != nil {
		return nil, err
	}

	if err := e.forwardFee(esc, caller, payment, TransitionLend); err != nil {
		return nil, err
	}
	if err := e.fungible.TransferUnits(esc.RequestedRegistry, esc.Address, caller, esc.Borrower, esc.RequestedAssetID, units); err != nil {
		return nil, fmt.Errorf("loan engine: supply requested asset: %w", err)
	}
	e.emit(LendingOrderEvent{
		Escrow:            esc.Address,
		Lender:            caller,
		RequestedAssetID:  esc.RequestedAssetID,
		RequestedRegistry: esc.RequestedRegistry,
	})
	return esc.Clone(), nil
}
