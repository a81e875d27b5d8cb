package state

import "strings"

func pauseKey(module string) []byte {
	return joinKey(pausePrefix, []byte(strings.ToLower(strings.TrimSpace(module))))
}

// SetPaused toggles the pause switch of a module.
func (m *Manager) SetPaused(module string, paused bool) error {
	if !paused {
		return m.KVDelete(pauseKey(module))
	}
	return m.KVPut(pauseKey(module), true)
}

// IsPaused reports whether module is paused. Read errors are treated as not
// paused.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	if _, err := m.KVGet(pauseKey(module), &paused); err != nil {
		return false
	}
	return paused
}

var genesisKey = []byte("chain/genesis")

// GenesisInfo records that genesis has been applied to a database.
type GenesisInfo struct {
	ChainID   uint64
	Timestamp uint64
}

// SetGenesisInfo stores the genesis marker.
func (m *Manager) SetGenesisInfo(info GenesisInfo) error {
	return m.KVPut(genesisKey, info)
}

// GenesisInfo returns the genesis marker, if genesis was applied.
func (m *Manager) GenesisInfo() (GenesisInfo, bool, error) {
	var info GenesisInfo
	ok, err := m.KVGet(genesisKey, &info)
	return info, ok, err
}
