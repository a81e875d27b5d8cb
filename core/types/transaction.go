package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

type TxType byte

const (
	TxTypeTransfer             TxType = 0x01 // Native currency transfer
	TxTypeApprove              TxType = 0x02 // Grant or revoke a registry operator
	TxTypeMintCollateral       TxType = 0x03 // Minter issues a unique collateral token
	TxTypeMintUnits            TxType = 0x04 // Minter issues fungible units
	TxTypeTransferCollateral   TxType = 0x05 // Owner moves a collateral token
	TxTypeTransferUnits        TxType = 0x06 // Holder moves fungible units
	TxTypeCreateLoan           TxType = 0x10 // Deploy a new loan escrow
	TxTypeCommitCollateral     TxType = 0x11 // Borrower stakes collateral and interest
	TxTypeCommitRequestedAsset TxType = 0x12 // Lender supplies the requested asset
)

var errMissingSignature = errors.New("transaction: missing signature")

// String returns a stable label used in logs and metrics.
func (t TxType) String() string {
	switch t {
	case TxTypeTransfer:
		return "transfer"
	case TxTypeApprove:
		return "approve"
	case TxTypeMintCollateral:
		return "mint_collateral"
	case TxTypeMintUnits:
		return "mint_units"
	case TxTypeTransferCollateral:
		return "transfer_collateral"
	case TxTypeTransferUnits:
		return "transfer_units"
	case TxTypeCreateLoan:
		return "loan_create"
	case TxTypeCommitCollateral:
		return "loan_commit_collateral"
	case TxTypeCommitRequestedAsset:
		return "loan_commit_requested_asset"
	default:
		return fmt.Sprintf("unknown_0x%02x", byte(t))
	}
}

// Transaction is the signed envelope every state change arrives in. Value is
// the native-currency payment attached to the call; for loan transitions it
// must equal the escrow's loan fee.
type Transaction struct {
	ChainID uint64   `json:"chainId"`
	Type    TxType   `json:"type"`
	Nonce   uint64   `json:"nonce"`
	To      []byte   `json:"to,omitempty"`
	Value   *big.Int `json:"value"`
	Data    []byte   `json:"data,omitempty"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type txSigningPayload struct {
	ChainID uint64
	Type    uint8
	Nonce   uint64
	To      []byte
	Value   *big.Int
	Data    []byte
}

// Hash returns the keccak256 digest of the RLP-encoded unsigned fields.
func (tx *Transaction) Hash() ([]byte, error) {
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("transaction: negative value")
	}
	encoded, err := rlp.EncodeToBytes(txSigningPayload{
		ChainID: tx.ChainID,
		Type:    uint8(tx.Type),
		Nonce:   tx.Nonce,
		To:      tx.To,
		Value:   value,
		Data:    tx.Data,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the sender identity from the signature. The result is cached.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errMissingSignature
	}
	if tx.R.BitLen() > 256 || tx.S.BitLen() > 256 || !tx.V.IsUint64() || tx.V.Uint64() < 27 || tx.V.Uint64() > 28 {
		return nil, fmt.Errorf("transaction: malformed signature")
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// Sender is From narrowed to a fixed-size identity.
func (tx *Transaction) Sender() ([20]byte, error) {
	var out [20]byte
	from, err := tx.From()
	if err != nil {
		return out, err
	}
	copy(out[:], from)
	return out, nil
}

// Recipient returns To as a fixed-size identity.
func (tx *Transaction) Recipient() ([20]byte, error) {
	var out [20]byte
	if len(tx.To) != len(out) {
		return out, fmt.Errorf("transaction: recipient must be 20 bytes, got %d", len(tx.To))
	}
	copy(out[:], tx.To)
	return out, nil
}

// Payment returns a copy of the attached value, never nil.
func (tx *Transaction) Payment() *big.Int {
	if tx.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(tx.Value)
}
