package state

import (
	"fmt"
	"math/big"

	"loanft/native/assets"
)

type storedRegistry struct {
	Address [20]byte
	Kind    uint8
	Minter  [20]byte
	Name    string
}

func assetRegistryKey(addr [20]byte) []byte {
	return joinKey(assetRegistryPrefix, addr[:])
}

// AssetRegistryGet loads registry metadata.
func (m *Manager) AssetRegistryGet(addr [20]byte) (*assets.Registry, bool, error) {
	var stored storedRegistry
	ok, err := m.KVGet(assetRegistryKey(addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &assets.Registry{
		Address: stored.Address,
		Kind:    assets.Kind(stored.Kind),
		Minter:  stored.Minter,
		Name:    stored.Name,
	}, true, nil
}

// AssetRegistryPut stores registry metadata and indexes its address.
func (m *Manager) AssetRegistryPut(reg *assets.Registry) error {
	if reg == nil {
		return fmt.Errorf("registry must not be nil")
	}
	stored := storedRegistry{Address: reg.Address, Kind: uint8(reg.Kind), Minter: reg.Minter, Name: reg.Name}
	if err := m.KVPut(assetRegistryKey(reg.Address), stored); err != nil {
		return err
	}
	return m.KVAppend(assetRegistryListKey, reg.Address[:])
}

// AssetRegistries lists every registered registry in registration order.
func (m *Manager) AssetRegistries() ([]*assets.Registry, error) {
	list, err := m.KVGetList(assetRegistryListKey)
	if err != nil {
		return nil, err
	}
	out := make([]*assets.Registry, 0, len(list))
	for _, raw := range list {
		var addr [20]byte
		copy(addr[:], raw)
		reg, ok, err := m.AssetRegistryGet(addr)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

// AssetOwner returns the owner of a unique token.
func (m *Manager) AssetOwner(registry [20]byte, id uint64) ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := m.KVGet(joinKey(assetOwnerPrefix, registry[:], uint64Bytes(id)), &owner)
	return owner, ok, err
}

// AssetSetOwner records the owner of a unique token.
func (m *Manager) AssetSetOwner(registry [20]byte, id uint64, owner [20]byte) error {
	return m.KVPut(joinKey(assetOwnerPrefix, registry[:], uint64Bytes(id)), owner)
}

// AssetHoldings returns the number of unique tokens held by holder.
func (m *Manager) AssetHoldings(registry, holder [20]byte) (uint64, error) {
	var count uint64
	_, err := m.KVGet(joinKey(assetHoldingsPrefix, registry[:], holder[:]), &count)
	return count, err
}

// AssetSetHoldings stores the unique token count of holder.
func (m *Manager) AssetSetHoldings(registry, holder [20]byte, count uint64) error {
	key := joinKey(assetHoldingsPrefix, registry[:], holder[:])
	if count == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, count)
}

// AssetApproval reports whether operator may move owner's assets.
func (m *Manager) AssetApproval(registry, owner, operator [20]byte) (bool, error) {
	var approved bool
	_, err := m.KVGet(joinKey(assetApprovalPrefix, registry[:], owner[:], operator[:]), &approved)
	return approved, err
}

// AssetSetApproval grants or revokes an operator approval.
func (m *Manager) AssetSetApproval(registry, owner, operator [20]byte, approved bool) error {
	key := joinKey(assetApprovalPrefix, registry[:], owner[:], operator[:])
	if !approved {
		return m.KVDelete(key)
	}
	return m.KVPut(key, true)
}

// AssetUnits returns the fungible balance of holder for asset id.
func (m *Manager) AssetUnits(registry, holder [20]byte, id uint64) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(joinKey(assetUnitsPrefix, registry[:], uint64Bytes(id), holder[:]), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// AssetSetUnits stores the fungible balance of holder for asset id.
func (m *Manager) AssetSetUnits(registry, holder [20]byte, id uint64, amount *big.Int) error {
	key := joinKey(assetUnitsPrefix, registry[:], uint64Bytes(id), holder[:])
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("asset units must not be negative")
	}
	return m.KVPut(key, amount)
}
