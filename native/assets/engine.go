package assets

import (
	"errors"
	"fmt"
	"math/big"

	"loanft/core/events"
)

var (
	errNilState = errors.New("assets engine: state not configured")

	ErrRegistryNotFound = errors.New("assets: registry not found")
	ErrRegistryExists   = errors.New("assets: registry already registered")
	ErrWrongKind        = errors.New("assets: registry kind does not support operation")
	ErrTokenNotFound    = errors.New("assets: token does not exist")
	ErrTokenExists      = errors.New("assets: token already minted")
	ErrNotMinter        = errors.New("assets: caller is not the registry minter")
	ErrNotOwner         = errors.New("assets: transfer from incorrect owner")
	ErrNotApproved      = errors.New("assets: operator is not owner nor approved")
	ErrInsufficient     = errors.New("assets: insufficient balance for transfer")
	ErrInvalidAmount    = errors.New("assets: amount must be positive")
	ErrZeroRecipient    = errors.New("assets: transfer to the zero identity")
	ErrSelfApproval     = errors.New("assets: setting approval status for self")
)

type engineState interface {
	AssetRegistryGet(addr [20]byte) (*Registry, bool, error)
	AssetRegistryPut(reg *Registry) error
	AssetOwner(registry [20]byte, id uint64) ([20]byte, bool, error)
	AssetSetOwner(registry [20]byte, id uint64, owner [20]byte) error
	AssetHoldings(registry, holder [20]byte) (uint64, error)
	AssetSetHoldings(registry, holder [20]byte, count uint64) error
	AssetApproval(registry, owner, operator [20]byte) (bool, error)
	AssetSetApproval(registry, owner, operator [20]byte, approved bool) error
	AssetUnits(registry, holder [20]byte, id uint64) (*big.Int, error)
	AssetSetUnits(registry, holder [20]byte, id uint64, amount *big.Int) error
}

// Engine hosts every unique and fungible registry known to the node. Each
// method takes the registry identity it operates on.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine creates a registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) registry(addr [20]byte, want Kind) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, ok, err := e.state.AssetRegistryGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRegistryNotFound
	}
	if want != 0 && reg.Kind != want {
		return nil, fmt.Errorf("%w: %s registry", ErrWrongKind, reg.Kind)
	}
	return reg, nil
}

// Register declares a new registry. It is used by genesis.
func (e *Engine) Register(reg *Registry) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if reg == nil {
		return fmt.Errorf("assets: registry required")
	}
	if reg.Address == ([20]byte{}) {
		return fmt.Errorf("assets: registry address required")
	}
	if reg.Kind != KindUnique && reg.Kind != KindFungible {
		return fmt.Errorf("assets: unsupported registry kind %s", reg.Kind)
	}
	_, exists, err := e.state.AssetRegistryGet(reg.Address)
	if err != nil {
		return err
	}
	if exists {
		return ErrRegistryExists
	}
	return e.state.AssetRegistryPut(reg.Clone())
}

// Registry returns the metadata of a registry.
func (e *Engine) Registry(addr [20]byte) (*Registry, error) {
	return e.registry(addr, 0)
}

// IsApprovedForAll reports whether operator may move every asset of owner.
func (e *Engine) IsApprovedForAll(registry, owner, operator [20]byte) (bool, error) {
	if _, err := e.registry(registry, 0); err != nil {
		return false, err
	}
	return e.state.AssetApproval(registry, owner, operator)
}

// SetApprovalForAll grants or revokes operator's right to move every asset
// owner holds in the registry.
func (e *Engine) SetApprovalForAll(registry, owner, operator [20]byte, approved bool) error {
	reg, err := e.registry(registry, 0)
	if err != nil {
		return err
	}
	if owner == operator {
		return ErrSelfApproval
	}
	if err := e.state.AssetSetApproval(registry, owner, operator, approved); err != nil {
		return err
	}
	e.emit(events.AssetApproval{Registry: reg.Address, Owner: owner, Operator: operator, Approved: approved})
	return nil
}

func (e *Engine) authorized(registry, owner, operator [20]byte) error {
	if operator == owner {
		return nil
	}
	approved, err := e.state.AssetApproval(registry, owner, operator)
	if err != nil {
		return err
	}
	if !approved {
		return ErrNotApproved
	}
	return nil
}

// OwnerOf returns the current owner of a unique token.
func (e *Engine) OwnerOf(registry [20]byte, id uint64) ([20]byte, error) {
	if _, err := e.registry(registry, KindUnique); err != nil {
		return [20]byte{}, err
	}
	owner, ok, err := e.state.AssetOwner(registry, id)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrTokenNotFound
	}
	return owner, nil
}

// TokenCount returns how many unique tokens holder owns in the registry.
func (e *Engine) TokenCount(registry, holder [20]byte) (uint64, error) {
	if _, err := e.registry(registry, KindUnique); err != nil {
		return 0, err
	}
	return e.state.AssetHoldings(registry, holder)
}

// TransferOwnership moves token id from `from` to `to`. The operator must be
// the owner or an approved operator of the owner.
func (e *Engine) TransferOwnership(registry, operator, from, to [20]byte, id uint64) error {
	reg, err := e.registry(registry, KindUnique)
	if err != nil {
		return err
	}
	if to == ([20]byte{}) {
		return ErrZeroRecipient
	}
	owner, ok, err := e.state.AssetOwner(registry, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFound
	}
	if owner != from {
		return ErrNotOwner
	}
	if err := e.authorized(registry, from, operator); err != nil {
		return err
	}
	if err := e.moveHolding(registry, from, to); err != nil {
		return err
	}
	if err := e.state.AssetSetOwner(registry, id, to); err != nil {
		return err
	}
	e.emit(events.AssetTransfer{Registry: reg.Address, Operator: operator, From: from, To: to, AssetID: id})
	return nil
}

func (e *Engine) moveHolding(registry, from, to [20]byte) error {
	if from == to {
		return nil
	}
	if from != ([20]byte{}) {
		count, err := e.state.AssetHoldings(registry, from)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("assets: holdings underflow")
		}
		if err := e.state.AssetSetHoldings(registry, from, count-1); err != nil {
			return err
		}
	}
	count, err := e.state.AssetHoldings(registry, to)
	if err != nil {
		return err
	}
	return e.state.AssetSetHoldings(registry, to, count+1)
}

// MintUnique issues token id to `to`. Only the registry minter may mint and
// ids are never reused.
func (e *Engine) MintUnique(registry, caller, to [20]byte, id uint64) error {
	reg, err := e.registry(registry, KindUnique)
	if err != nil {
		return err
	}
	if caller != reg.Minter {
		return ErrNotMinter
	}
	if to == ([20]byte{}) {
		return ErrZeroRecipient
	}
	_, exists, err := e.state.AssetOwner(registry, id)
	if err != nil {
		return err
	}
	if exists {
		return ErrTokenExists
	}
	if err := e.moveHolding(registry, [20]byte{}, to); err != nil {
		return err
	}
	if err := e.state.AssetSetOwner(registry, id, to); err != nil {
		return err
	}
	e.emit(events.AssetTransfer{Registry: reg.Address, Operator: caller, To: to, AssetID: id})
	return nil
}

// BalanceOf returns the units of asset id held by holder in a fungible
// registry.
func (e *Engine) BalanceOf(registry, holder [20]byte, id uint64) (*big.Int, error) {
	if _, err := e.registry(registry, KindFungible); err != nil {
		return nil, err
	}
	balance, err := e.state.AssetUnits(registry, holder, id)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

// TransferUnits moves amount units of asset id between holders. The operator
// must be the holder or an approved operator of the holder.
func (e *Engine) TransferUnits(registry, operator, from, to [20]byte, id uint64, amount *big.Int) error {
	reg, err := e.registry(registry, KindFungible)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if to == ([20]byte{}) {
		return ErrZeroRecipient
	}
	if err := e.authorized(registry, from, operator); err != nil {
		return err
	}
	fromBalance, err := e.BalanceOf(registry, from, id)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficient
	}
	if from != to {
		toBalance, err := e.BalanceOf(registry, to, id)
		if err != nil {
			return err
		}
		if err := e.state.AssetSetUnits(registry, from, id, fromBalance.Sub(fromBalance, amount)); err != nil {
			return err
		}
		if err := e.state.AssetSetUnits(registry, to, id, toBalance.Add(toBalance, amount)); err != nil {
			return err
		}
	}
	e.emit(events.AssetTransfer{Registry: reg.Address, Operator: operator, From: from, To: to, AssetID: id, Amount: new(big.Int).Set(amount)})
	return nil
}

// MintUnits issues amount units of asset id to `to`. Only the registry minter
// may mint.
func (e *Engine) MintUnits(registry, caller, to [20]byte, id uint64, amount *big.Int) error {
	reg, err := e.registry(registry, KindFungible)
	if err != nil {
		return err
	}
	if caller != reg.Minter {
		return ErrNotMinter
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if to == ([20]byte{}) {
		return ErrZeroRecipient
	}
	balance, err := e.BalanceOf(registry, to, id)
	if err != nil {
		return err
	}
	if err := e.state.AssetSetUnits(registry, to, id, balance.Add(balance, amount)); err != nil {
		return err
	}
	e.emit(events.AssetTransfer{Registry: reg.Address, Operator: caller, To: to, AssetID: id, Amount: new(big.Int).Set(amount)})
	return nil
}
