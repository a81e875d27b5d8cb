package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"loanft/cmd/internal/passphrase"
	"loanft/crypto"
)

const (
	envPrivateKey   = "LOAN_PRIVATE_KEY"
	envKeystorePass = "LOAN_KEYSTORE_PASS"
)

// loadSigner returns the signing key. A hex key in LOAN_PRIVATE_KEY wins over
// the keystore file.
func loadSigner(cctx *cli.Context) (*crypto.PrivateKey, error) {
	if value, ok := os.LookupEnv(envPrivateKey); ok && strings.TrimSpace(value) != "" {
		return parsePrivateKeyMaterial(value)
	}
	path := strings.TrimSpace(cctx.String("keystore"))
	if path == "" {
		return nil, fmt.Errorf("no signing key: pass --keystore or set %s", envPrivateKey)
	}
	pass, err := passphrase.NewSource(envKeystorePass, "Enter keystore passphrase").Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt keystore %s: %w", path, err)
	}
	return key, nil
}

// signerAddress resolves the caller identity without decrypting the keystore
// when possible.
func signerAddress(cctx *cli.Context) (crypto.Address, error) {
	if value, ok := os.LookupEnv(envPrivateKey); ok && strings.TrimSpace(value) != "" {
		key, err := parsePrivateKeyMaterial(value)
		if err != nil {
			return crypto.Address{}, err
		}
		return key.PubKey().Address(), nil
	}
	path := strings.TrimSpace(cctx.String("keystore"))
	if path == "" {
		return crypto.Address{}, fmt.Errorf("no identity: pass --keystore or set %s", envPrivateKey)
	}
	return crypto.KeystoreAddress(path)
}

func parsePrivateKeyMaterial(material string) (*crypto.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(material), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty private key material")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex private key: %w", err)
	}
	return crypto.PrivateKeyFromBytes(raw)
}

func saveKeystore(path string, key *crypto.PrivateKey) error {
	pass, err := passphrase.NewSource(envKeystorePass, "Choose keystore passphrase").Get()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		return fmt.Errorf("failed to write keystore %s: %w", path, err)
	}
	return nil
}
