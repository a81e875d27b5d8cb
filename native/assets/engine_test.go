package assets

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"loanft/core/events"
)

type holdingKey struct {
	registry [20]byte
	holder   [20]byte
}

type approvalKey struct {
	registry [20]byte
	owner    [20]byte
	operator [20]byte
}

type ownerKey struct {
	registry [20]byte
	id       uint64
}

type unitKey struct {
	registry [20]byte
	holder   [20]byte
	id       uint64
}

type mockState struct {
	registries map[[20]byte]*Registry
	owners     map[ownerKey][20]byte
	holdings   map[holdingKey]uint64
	approvals  map[approvalKey]bool
	units      map[unitKey]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		registries: make(map[[20]byte]*Registry),
		owners:     make(map[ownerKey][20]byte),
		holdings:   make(map[holdingKey]uint64),
		approvals:  make(map[approvalKey]bool),
		units:      make(map[unitKey]*big.Int),
	}
}

func (m *mockState) AssetRegistryGet(addr [20]byte) (*Registry, bool, error) {
	reg, ok := m.registries[addr]
	return reg.Clone(), ok, nil
}

func (m *mockState) AssetRegistryPut(reg *Registry) error {
	m.registries[reg.Address] = reg.Clone()
	return nil
}

func (m *mockState) AssetOwner(registry [20]byte, id uint64) ([20]byte, bool, error) {
	owner, ok := m.owners[ownerKey{registry, id}]
	return owner, ok, nil
}

func (m *mockState) AssetSetOwner(registry [20]byte, id uint64, owner [20]byte) error {
	m.owners[ownerKey{registry, id}] = owner
	return nil
}

func (m *mockState) AssetHoldings(registry, holder [20]byte) (uint64, error) {
	return m.holdings[holdingKey{registry, holder}], nil
}

func (m *mockState) AssetSetHoldings(registry, holder [20]byte, count uint64) error {
	m.holdings[holdingKey{registry, holder}] = count
	return nil
}

func (m *mockState) AssetApproval(registry, owner, operator [20]byte) (bool, error) {
	return m.approvals[approvalKey{registry, owner, operator}], nil
}

func (m *mockState) AssetSetApproval(registry, owner, operator [20]byte, approved bool) error {
	m.approvals[approvalKey{registry, owner, operator}] = approved
	return nil
}

func (m *mockState) AssetUnits(registry, holder [20]byte, id uint64) (*big.Int, error) {
	if v, ok := m.units[unitKey{registry, holder, id}]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) AssetSetUnits(registry, holder [20]byte, id uint64, amount *big.Int) error {
	m.units[unitKey{registry, holder, id}] = new(big.Int).Set(amount)
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	uniqueAddr   = newTestAddress(0xC1)
	fungibleAddr = newTestAddress(0xF1)
	minter       = newTestAddress(0x01)
	alice        = newTestAddress(0x0A)
	bob          = newTestAddress(0x0B)
	operator     = newTestAddress(0x0E)
)

func newTestEngine(t *testing.T) (*Engine, *captureEmitter) {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockState())
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)
	require.NoError(t, engine.Register(&Registry{Address: uniqueAddr, Kind: KindUnique, Minter: minter, Name: "collateral"}))
	require.NoError(t, engine.Register(&Registry{Address: fungibleAddr, Kind: KindFungible, Minter: minter, Name: "multi"}))
	return engine, emitter
}

func TestRegisterRejectsDuplicatesAndUnknownKinds(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.ErrorIs(t, engine.Register(&Registry{Address: uniqueAddr, Kind: KindUnique}), ErrRegistryExists)
	require.Error(t, engine.Register(&Registry{Address: newTestAddress(0x99), Kind: Kind(9)}))
	require.Error(t, engine.Register(&Registry{Kind: KindUnique}))

	kind, err := ParseKind("ERC721")
	require.NoError(t, err)
	require.Equal(t, KindUnique, kind)
	_, err = ParseKind("erc20")
	require.Error(t, err)
}

func TestMintUniqueRequiresMinterAndFreshID(t *testing.T) {
	engine, emitter := newTestEngine(t)

	require.ErrorIs(t, engine.MintUnique(uniqueAddr, alice, alice, 1), ErrNotMinter)
	require.NoError(t, engine.MintUnique(uniqueAddr, minter, alice, 1))
	require.ErrorIs(t, engine.MintUnique(uniqueAddr, minter, bob, 1), ErrTokenExists)

	owner, err := engine.OwnerOf(uniqueAddr, 1)
	require.NoError(t, err)
	require.Equal(t, alice, owner)
	count, err := engine.TokenCount(uniqueAddr, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
	require.Len(t, emitter.events, 1)

	_, err = engine.OwnerOf(uniqueAddr, 2)
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = engine.OwnerOf(fungibleAddr, 1)
	require.ErrorIs(t, err, ErrWrongKind)
}

func TestTransferOwnershipApprovalSemantics(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.MintUnique(uniqueAddr, minter, alice, 1))

	require.ErrorIs(t, engine.TransferOwnership(uniqueAddr, operator, alice, bob, 1), ErrNotApproved)
	require.ErrorIs(t, engine.TransferOwnership(uniqueAddr, bob, bob, alice, 1), ErrNotOwner)

	require.NoError(t, engine.SetApprovalForAll(uniqueAddr, alice, operator, true))
	approved, err := engine.IsApprovedForAll(uniqueAddr, alice, operator)
	require.NoError(t, err)
	require.True(t, approved)

	require.NoError(t, engine.TransferOwnership(uniqueAddr, operator, alice, bob, 1))
	owner, err := engine.OwnerOf(uniqueAddr, 1)
	require.NoError(t, err)
	require.Equal(t, bob, owner)

	aliceCount, _ := engine.TokenCount(uniqueAddr, alice)
	bobCount, _ := engine.TokenCount(uniqueAddr, bob)
	require.Zero(t, aliceCount)
	require.Equal(t, uint64(1), bobCount)

	// Approval is per owner: operator cannot move bob's token.
	require.ErrorIs(t, engine.TransferOwnership(uniqueAddr, operator, bob, alice, 1), ErrNotApproved)

	require.NoError(t, engine.SetApprovalForAll(uniqueAddr, alice, operator, false))
	approved, err = engine.IsApprovedForAll(uniqueAddr, alice, operator)
	require.NoError(t, err)
	require.False(t, approved)

	require.ErrorIs(t, engine.SetApprovalForAll(uniqueAddr, alice, alice, true), ErrSelfApproval)
}

func TestFungibleTransfersCheckBalanceAndApproval(t *testing.T) {
	engine, emitter := newTestEngine(t)

	require.ErrorIs(t, engine.MintUnits(fungibleAddr, alice, alice, 1, big.NewInt(5)), ErrNotMinter)
	require.ErrorIs(t, engine.MintUnits(fungibleAddr, minter, alice, 1, big.NewInt(0)), ErrInvalidAmount)
	require.NoError(t, engine.MintUnits(fungibleAddr, minter, alice, 1, big.NewInt(5)))

	require.ErrorIs(t, engine.TransferUnits(fungibleAddr, operator, alice, bob, 1, big.NewInt(1)), ErrNotApproved)
	require.NoError(t, engine.SetApprovalForAll(fungibleAddr, alice, operator, true))
	require.ErrorIs(t, engine.TransferUnits(fungibleAddr, operator, alice, bob, 1, big.NewInt(6)), ErrInsufficient)
	require.NoError(t, engine.TransferUnits(fungibleAddr, operator, alice, bob, 1, big.NewInt(2)))

	aliceBalance, err := engine.BalanceOf(fungibleAddr, alice, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), aliceBalance.Int64())
	bobBalance, err := engine.BalanceOf(fungibleAddr, bob, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), bobBalance.Int64())

	other, err := engine.BalanceOf(fungibleAddr, alice, 2)
	require.NoError(t, err)
	require.Zero(t, other.Sign())

	_, err = engine.BalanceOf(newTestAddress(0x77), alice, 1)
	require.ErrorIs(t, err, ErrRegistryNotFound)

	flat := events.Flatten(emitter.events)
	require.Equal(t, events.TypeAssetTransfer, flat[len(flat)-1].Type)
	require.Equal(t, "2", flat[len(flat)-1].Attributes["amount"])
}
