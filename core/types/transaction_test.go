package types

import (
	"bytes"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestTransactionSignRecoversSender(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{
		ChainID: 7,
		Type:    TxTypeCommitRequestedAsset,
		Nonce:   3,
		To:      bytes.Repeat([]byte{0x11}, 20),
		Value:   big.NewInt(1),
	}
	require.NoError(t, tx.Sign(key))

	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey).Bytes(), from)

	to, err := tx.Recipient()
	require.NoError(t, err)
	require.Equal(t, byte(0x11), to[0])
}

func TestTransactionTamperingChangesSender(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{ChainID: 1, Type: TxTypeTransfer, Value: big.NewInt(10)}
	require.NoError(t, tx.Sign(key))
	signer, err := tx.Sender()
	require.NoError(t, err)

	tampered := &Transaction{ChainID: 1, Type: TxTypeTransfer, Value: big.NewInt(11), R: tx.R, S: tx.S, V: tx.V}
	recovered, err := tampered.Sender()
	if err == nil {
		require.NotEqual(t, signer, recovered)
	}
}

func TestTransactionRequiresSignature(t *testing.T) {
	tx := &Transaction{ChainID: 1, Type: TxTypeTransfer}
	_, err := tx.From()
	require.Error(t, err)

	_, err = (&Transaction{To: []byte{1, 2}}).Recipient()
	require.Error(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	data, err := EncodePayload(CommitCollateralPayload{CollateralAssetID: 1, InterestAssetID: 2})
	require.NoError(t, err)

	var out CommitCollateralPayload
	require.NoError(t, DecodePayload(data, &out))
	require.Equal(t, uint64(1), out.CollateralAssetID)
	require.Equal(t, uint64(2), out.InterestAssetID)

	require.Error(t, DecodePayload(nil, &out))
}
