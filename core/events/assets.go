package events

import (
	"math/big"

	"loanft/core/types"
)

const (
	// TypeAssetTransfer is emitted when a registry moves a token or units.
	TypeAssetTransfer = "asset.transfer"
	// TypeAssetApproval is emitted when an owner grants or revokes an operator.
	TypeAssetApproval = "asset.approval"
)

// AssetTransfer records a registry-level movement. Amount is nil for unique
// tokens; a zero From marks a mint.
type AssetTransfer struct {
	Registry [20]byte
	Operator [20]byte
	From     [20]byte
	To       [20]byte
	AssetID  uint64
	Amount   *big.Int
}

// EventType satisfies the events.Event interface.
func (AssetTransfer) EventType() string { return TypeAssetTransfer }

// Event converts the structured payload into a broadcastable event.
func (e AssetTransfer) Event() *types.Event {
	attrs := map[string]string{
		"registry": FormatAddress(e.Registry),
		"operator": FormatAddress(e.Operator),
		"to":       FormatAddress(e.To),
		"assetId":  FormatUint(e.AssetID),
	}
	if !zeroBytes(e.From[:]) {
		attrs["from"] = FormatAddress(e.From)
	}
	if e.Amount != nil {
		attrs["amount"] = formatAmount(e.Amount)
	}
	return &types.Event{Type: TypeAssetTransfer, Attributes: attrs}
}

// AssetApproval records an operator approval change.
type AssetApproval struct {
	Registry [20]byte
	Owner    [20]byte
	Operator [20]byte
	Approved bool
}

// EventType satisfies the events.Event interface.
func (AssetApproval) EventType() string { return TypeAssetApproval }

// Event converts the structured payload into a broadcastable event.
func (e AssetApproval) Event() *types.Event {
	approved := "false"
	if e.Approved {
		approved = "true"
	}
	return &types.Event{Type: TypeAssetApproval, Attributes: map[string]string{
		"registry": FormatAddress(e.Registry),
		"owner":    FormatAddress(e.Owner),
		"operator": FormatAddress(e.Operator),
		"approved": approved,
	}}
}
