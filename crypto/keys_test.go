package crypto

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := [20]byte{}
	copy(raw[:], bytes.Repeat([]byte{0x42}, 20))

	encoded := FromRaw(raw).String()
	require.Regexp(t, "^loan1", encoded)

	parsed, err := ParseAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, parsed)
}

func TestParseAddressRejectsForeignPrefix(t *testing.T) {
	raw := bytes.Repeat([]byte{0x01}, 20)
	foreign := NewAddress(AddressPrefix("nhb"), raw).String()

	_, err := ParseAddress(foreign)
	require.Error(t, err)

	_, err = ParseAddress("   ")
	require.Error(t, err)
}

func TestKeystoreSaveLoad(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "borrower.json")
	require.NoError(t, SaveToKeystore(path, key, "secret"))

	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())

	addr, err := KeystoreAddress(path)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), addr.String())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
