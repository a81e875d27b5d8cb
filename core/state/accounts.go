package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"loanft/core/types"
)

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func accountKey(addr []byte) []byte {
	return joinKey(accountPrefix, addr)
}

// GetAccount returns the account stored under addr. Unknown addresses yield
// an empty account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	account := types.NewAccount()
	if !ok {
		return account, nil
	}
	account.Nonce = stored.Nonce
	if stored.Balance != nil {
		account.Balance.Set(stored.Balance)
	}
	return account, nil
}

// PutAccount persists the account, rejecting balances that do not fit in 256
// bits.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("account must not be nil")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("balance must not be negative")
	}
	if _, overflow := uint256.FromBig(balance); overflow {
		return fmt.Errorf("balance overflow")
	}
	return m.KVPut(accountKey(addr), storedAccount{Nonce: account.Nonce, Balance: new(big.Int).Set(balance)})
}
