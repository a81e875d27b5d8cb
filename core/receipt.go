package core

import (
	"encoding/hex"

	"loanft/core/types"
	"loanft/crypto"
	"loanft/native/loan"
)

const (
	ReceiptStatusSuccess = "success"
	ReceiptStatusFailed  = "failed"
)

// Receipt summarises a transaction the node accepted. Failed transactions
// still produce a receipt because their nonce was consumed.
type Receipt struct {
	TxHash    string         `json:"txHash"`
	Type      string         `json:"type"`
	Sender    string         `json:"sender"`
	Nonce     uint64         `json:"nonce"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"errorKind,omitempty"`
	Escrow    string         `json:"escrow,omitempty"`
	Events    []*types.Event `json:"events"`
	Timestamp int64          `json:"timestamp"`
}

// Succeeded reports whether the transaction's effects were committed.
func (r *Receipt) Succeeded() bool { return r != nil && r.Status == ReceiptStatusSuccess }

func newReceipt(tx *types.Transaction, hash [32]byte, sender, escrow [20]byte, timestamp int64, applyErr error) *Receipt {
	r := &Receipt{
		TxHash:    "0x" + hex.EncodeToString(hash[:]),
		Type:      tx.Type.String(),
		Sender:    crypto.FromRaw(sender).String(),
		Nonce:     tx.Nonce,
		Status:    ReceiptStatusSuccess,
		Events:    []*types.Event{},
		Timestamp: timestamp,
	}
	if escrow != ([20]byte{}) {
		r.Escrow = crypto.FromRaw(escrow).String()
	}
	if applyErr != nil {
		r.Status = ReceiptStatusFailed
		r.Error = applyErr.Error()
		r.ErrorKind = loan.KindLabel(applyErr)
	}
	return r
}
