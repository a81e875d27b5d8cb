package state

import "encoding/binary"

var (
	accountPrefix        = []byte("account/")
	assetRegistryPrefix  = []byte("asset/registry/")
	assetRegistryListKey = []byte("asset/registry-list")
	assetOwnerPrefix     = []byte("asset/owner/")
	assetHoldingsPrefix  = []byte("asset/holdings/")
	assetApprovalPrefix  = []byte("asset/approval/")
	assetUnitsPrefix     = []byte("asset/units/")
	loanEscrowPrefix     = []byte("loan/escrow/")
	loanIndexKey         = []byte("loan/index")
	pausePrefix          = []byte("params/paused/")
	eventSeqKey          = []byte("events/seq")
	eventRecordPrefix    = []byte("events/record/")
	eventEscrowPrefix    = []byte("events/escrow/")
)

func joinKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

func uint64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}
