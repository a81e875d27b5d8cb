package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Transaction Data payloads. Identities are bech32 strings so that payloads
// stay readable when inspected over RPC.

// ApprovePayload grants (or revokes) Operator the right to move every asset the
// sender holds in the registry named by the transaction's To field.
type ApprovePayload struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// MintCollateralPayload issues collateral token AssetID to Recipient.
type MintCollateralPayload struct {
	Recipient string `json:"recipient"`
	AssetID   uint64 `json:"assetId"`
}

// MintUnitsPayload issues Amount units of AssetID to Recipient.
type MintUnitsPayload struct {
	Recipient string   `json:"recipient"`
	AssetID   uint64   `json:"assetId"`
	Amount    *big.Int `json:"amount"`
}

// TransferCollateralPayload moves collateral token AssetID from the sender.
type TransferCollateralPayload struct {
	Recipient string `json:"recipient"`
	AssetID   uint64 `json:"assetId"`
}

// TransferUnitsPayload moves Amount units of AssetID from the sender.
type TransferUnitsPayload struct {
	Recipient string   `json:"recipient"`
	AssetID   uint64   `json:"assetId"`
	Amount    *big.Int `json:"amount"`
}

// CreateLoanPayload carries the construction parameters of a loan escrow in
// their canonical order. InterestUnits and RequestedUnits are optional and
// default to one unit.
type CreateLoanPayload struct {
	Borrower           string   `json:"borrower"`
	CollateralRegistry string   `json:"collateralRegistry"`
	RequestedRegistry  string   `json:"requestedRegistry"`
	InterestRegistry   string   `json:"interestRegistry"`
	CollateralAssetID  uint64   `json:"collateralAssetId"`
	RequestedAssetID   uint64   `json:"requestedAssetId"`
	TimeToPay          uint64   `json:"timeToPay"`
	LoanFee            *big.Int `json:"loanFee"`
	CommissionWallet   string   `json:"commissionWallet"`
	InterestUnits      *big.Int `json:"interestUnits,omitempty"`
	RequestedUnits     *big.Int `json:"requestedUnits,omitempty"`
}

// CommitCollateralPayload names the collateral and interest assets staked by
// the borrower.
type CommitCollateralPayload struct {
	CollateralAssetID uint64 `json:"collateralAssetId"`
	InterestAssetID   uint64 `json:"interestAssetId"`
}

// EncodePayload marshals a payload into transaction Data.
func EncodePayload(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload unmarshals transaction Data into out.
func DecodePayload(data []byte, out interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("decode payload: empty data")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
