package events

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func TestBufferCollectsAndFlattens(t *testing.T) {
	var buf Buffer
	buf.Emit(Transfer{From: [20]byte{1}, To: [20]byte{2}, Amount: big.NewInt(5)})
	buf.Emit(bareEvent{})
	buf.Emit(nil)
	require.Equal(t, 2, buf.Len())

	flat := Flatten(buf.Events())
	require.Len(t, flat, 1)
	require.Equal(t, TypeTransfer, flat[0].Type)
	require.Equal(t, "5", flat[0].Attributes["amount"])
	require.Equal(t, FormatAddress([20]byte{2}), flat[0].Attributes["to"])

	buf.Reset()
	require.Zero(t, buf.Len())
}

func TestTransferOmitsZeroSender(t *testing.T) {
	flat := Transfer{To: [20]byte{9}, Amount: nil}.Event()
	_, ok := flat.Attributes["from"]
	require.False(t, ok)
	require.Equal(t, "0", flat.Attributes["amount"])
}

func TestAssetEventsFlatten(t *testing.T) {
	mint := AssetTransfer{Registry: [20]byte{1}, Operator: [20]byte{2}, To: [20]byte{3}, AssetID: 7}.Event()
	require.Equal(t, TypeAssetTransfer, mint.Type)
	require.Equal(t, "7", mint.Attributes["assetId"])
	_, hasFrom := mint.Attributes["from"]
	require.False(t, hasFrom)
	_, hasAmount := mint.Attributes["amount"]
	require.False(t, hasAmount)

	units := AssetTransfer{Registry: [20]byte{1}, From: [20]byte{4}, To: [20]byte{3}, AssetID: 1, Amount: big.NewInt(2)}.Event()
	require.Equal(t, "2", units.Attributes["amount"])
	require.Equal(t, FormatAddress([20]byte{4}), units.Attributes["from"])

	approval := AssetApproval{Registry: [20]byte{1}, Owner: [20]byte{2}, Operator: [20]byte{3}, Approved: true}.Event()
	require.Equal(t, "true", approval.Attributes["approved"])
}
