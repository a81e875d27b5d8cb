package events

import (
	"math/big"
	"strconv"

	"loanft/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FormatAddress renders a raw identity in bech32 form.
func FormatAddress(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

// FormatUint renders an asset id or counter.
func FormatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func zeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
