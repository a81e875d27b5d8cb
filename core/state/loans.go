package state

import (
	"fmt"
	"math/big"

	"loanft/native/loan"
)

// storedEscrow is the RLP form of an escrow. RLP has no signed integers, so
// timestamps are persisted as uint64.
type storedEscrow struct {
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
	Lender             [20]byte
	InterestAssetID    uint64
	Phase              uint8
	CreatedAt          uint64
	BorrowedAt         uint64
	LentAt             uint64
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func newStoredEscrow(e *loan.Escrow) *storedEscrow {
	return &storedEscrow{
		Address:            e.Address,
		Borrower:           e.Borrower,
		CollateralRegistry: e.CollateralRegistry,
		RequestedRegistry:  e.RequestedRegistry,
		InterestRegistry:   e.InterestRegistry,
		CollateralAssetID:  e.CollateralAssetID,
		RequestedAssetID:   e.RequestedAssetID,
		TimeToPay:          e.TimeToPay,
		LoanFee:            e.LoanFee,
		CommissionWallet:   e.CommissionWallet,
		InterestUnits:      e.InterestUnits,
		RequestedUnits:     e.RequestedUnits,
		Lender:             e.Lender,
		InterestAssetID:    e.InterestAssetID,
		Phase:              uint8(e.Phase),
		CreatedAt:          nonNegative(e.CreatedAt),
		BorrowedAt:         nonNegative(e.BorrowedAt),
		LentAt:             nonNegative(e.LentAt),
	}
}

func (s *storedEscrow) toEscrow() *loan.Escrow {
	return &loan.Escrow{
		Address:            s.Address,
		Borrower:           s.Borrower,
		CollateralRegistry: s.CollateralRegistry,
		RequestedRegistry:  s.RequestedRegistry,
		InterestRegistry:   s.InterestRegistry,
		CollateralAssetID:  s.CollateralAssetID,
		RequestedAssetID:   s.RequestedAssetID,
		TimeToPay:          s.TimeToPay,
		LoanFee:            s.LoanFee,
		CommissionWallet:   s.CommissionWallet,
		InterestUnits:      s.InterestUnits,
		RequestedUnits:     s.RequestedUnits,
		Lender:             s.Lender,
		InterestAssetID:    s.InterestAssetID,
		Phase:              loan.Phase(s.Phase),
		CreatedAt:          int64(s.CreatedAt),
		BorrowedAt:         int64(s.BorrowedAt),
		LentAt:             int64(s.LentAt),
	}
}

func loanEscrowKey(addr [20]byte) []byte {
	return joinKey(loanEscrowPrefix, addr[:])
}

// LoanPut persists an escrow record and adds it to the escrow index.
func (m *Manager) LoanPut(e *loan.Escrow) error {
	if e == nil {
		return fmt.Errorf("escrow must not be nil")
	}
	sanitized, err := loan.Sanitize(e)
	if err != nil {
		return err
	}
	if err := m.KVPut(loanEscrowKey(sanitized.Address), newStoredEscrow(sanitized)); err != nil {
		return err
	}
	return m.KVAppend(loanIndexKey, sanitized.Address[:])
}

// LoanGet loads the escrow stored at addr.
func (m *Manager) LoanGet(addr [20]byte) (*loan.Escrow, bool, error) {
	var stored storedEscrow
	ok, err := m.KVGet(loanEscrowKey(addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toEscrow(), true, nil
}

// LoanList returns the address of every escrow in creation order.
func (m *Manager) LoanList() ([][20]byte, error) {
	list, err := m.KVGetList(loanIndexKey)
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, len(list))
	for i, raw := range list {
		copy(out[i][:], raw)
	}
	return out, nil
}
