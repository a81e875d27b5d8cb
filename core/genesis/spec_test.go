package genesis

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"loanft/core/events"
	"loanft/core/state"
	"loanft/crypto"
	"loanft/native/assets"
	"loanft/storage"
)

func testAddr(fill byte) string {
	var raw [20]byte
	copy(raw[:], bytes.Repeat([]byte{fill}, 20))
	return crypto.FromRaw(raw).String()
}

func sampleSpec() GenesisSpec {
	return GenesisSpec{
		GenesisTime: "2024-01-01T00:00:00Z",
		ChainID:     7,
		Alloc: map[string]string{
			testAddr(0xB0): "10",
			testAddr(0x1E): "10",
		},
		Registries: []RegistrySpec{
			{Address: testAddr(0xC1), Kind: "unique", Minter: testAddr(0x01), Name: "collateral"},
			{Address: testAddr(0xE1), Kind: "fungible", Minter: testAddr(0x01), Name: "interest"},
		},
		Collateral: []CollateralSpec{{Registry: testAddr(0xC1), Owner: testAddr(0xB0), AssetID: 1}},
		Units:      []UnitsSpec{{Registry: testAddr(0xE1), Holder: testAddr(0xB0), AssetID: 2, Amount: "2"}},
		Approvals:  []ApprovalSpec{{Registry: testAddr(0xE1), Owner: testAddr(0xB0), Operator: testAddr(0x0E)}},
		Paused:     []string{"loan"},
	}
}

func writeSpec(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadGenesisSpecJSONAndApply(t *testing.T) {
	raw, err := json.Marshal(sampleSpec())
	require.NoError(t, err)
	spec, err := LoadGenesisSpec(writeSpec(t, "genesis.json", raw))
	require.NoError(t, err)
	require.Equal(t, int64(1704067200), spec.GenesisTimestamp().Unix())

	manager := state.NewManager(storage.NewMemDB())
	buf := &events.Buffer{}
	require.NoError(t, Apply(spec, manager, buf))
	require.NotZero(t, buf.Len())

	borrower, err := crypto.ParseAddress(testAddr(0xB0))
	require.NoError(t, err)
	acc, err := manager.GetAccount(borrower[:])
	require.NoError(t, err)
	require.Equal(t, int64(10), acc.Balance.Int64())

	registries := assets.NewEngine()
	registries.SetState(manager)
	collateral, _ := crypto.ParseAddress(testAddr(0xC1))
	owner, err := registries.OwnerOf(collateral, 1)
	require.NoError(t, err)
	require.Equal(t, borrower, owner)

	interest, _ := crypto.ParseAddress(testAddr(0xE1))
	units, err := registries.BalanceOf(interest, borrower, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), units.Int64())
	operator, _ := crypto.ParseAddress(testAddr(0x0E))
	approved, err := registries.IsApprovedForAll(interest, borrower, operator)
	require.NoError(t, err)
	require.True(t, approved)
	require.True(t, manager.IsPaused("loan"))

	info, ok, err := manager.GenesisInfo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), info.ChainID)

	require.Error(t, Apply(spec, manager, nil), "genesis must not apply twice")
}

func TestLoadGenesisSpecYAML(t *testing.T) {
	raw, err := yaml.Marshal(sampleSpec())
	require.NoError(t, err)
	spec, err := LoadGenesisSpec(writeSpec(t, "genesis.yaml", raw))
	require.NoError(t, err)
	require.Len(t, spec.Registries, 2)
	require.Equal(t, uint64(7), spec.ChainID)
}

func TestLoadGenesisSpecValidation(t *testing.T) {
	cases := map[string]func(*GenesisSpec){
		"missing time":        func(s *GenesisSpec) { s.GenesisTime = "" },
		"zero chain id":       func(s *GenesisSpec) { s.ChainID = 0 },
		"bad alloc amount":    func(s *GenesisSpec) { s.Alloc[testAddr(0xB0)] = "-1" },
		"unknown kind":        func(s *GenesisSpec) { s.Registries[0].Kind = "erc20" },
		"duplicate registry":  func(s *GenesisSpec) { s.Registries[1].Address = s.Registries[0].Address },
		"collateral fungible": func(s *GenesisSpec) { s.Collateral[0].Registry = testAddr(0xE1) },
		"units unknown":       func(s *GenesisSpec) { s.Units[0].Registry = testAddr(0x99) },
		"zero units":          func(s *GenesisSpec) { s.Units[0].Amount = "0" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := sampleSpec()
			mutate(&spec)
			raw, err := json.Marshal(spec)
			require.NoError(t, err)
			_, err = LoadGenesisSpec(writeSpec(t, "genesis.json", raw))
			require.Error(t, err)
		})
	}

	_, err := LoadGenesisSpec(writeSpec(t, "genesis.json", []byte(`{"unknown": true}`)))
	require.Error(t, err)
}
