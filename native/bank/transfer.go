package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"loanft/core/events"
	"loanft/core/types"
)

var (
	errNilState = errors.New("bank: state not configured")

	// ErrInsufficientFunds is returned when a debit exceeds the account balance.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrInvalidAmount is returned for negative amounts.
	ErrInvalidAmount = errors.New("bank: amount must not be negative")
	// ErrBalanceOverflow is returned when a credit would exceed 256 bits.
	ErrBalanceOverflow = errors.New("bank: balance overflow")
)

type ledgerState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Ledger moves the native currency between accounts. Loan fees are paid in this
// unit.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger constructs a ledger bound to the supplied state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) account(addr [20]byte) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	account, err := l.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if account == nil {
		return types.NewAccount(), nil
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// Balance returns the native balance of addr.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	account, err := l.account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if _, overflow := uint256.FromBig(sum); overflow {
		return nil, ErrBalanceOverflow
	}
	return sum, nil
}

// Credit mints amount into addr. It is used for genesis allocations.
func (l *Ledger) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	account, err := l.account(addr)
	if err != nil {
		return err
	}
	balance, err := checkedAdd(account.Balance, amount)
	if err != nil {
		return err
	}
	account.Balance = balance
	if err := l.state.PutAccount(addr[:], account); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{To: addr, Amount: new(big.Int).Set(amount)})
	return nil
}

// Transfer moves amount from `from` to `to`. A zero amount is a no-op that
// still validates the accounts.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	sender, err := l.account(from)
	if err != nil {
		return err
	}
	if sender.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, sender.Balance, amount)
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	recipient, err := l.account(to)
	if err != nil {
		return err
	}
	credited, err := checkedAdd(recipient.Balance, amount)
	if err != nil {
		return err
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	recipient.Balance = credited
	if err := l.state.PutAccount(from[:], sender); err != nil {
		return err
	}
	if err := l.state.PutAccount(to[:], recipient); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}
