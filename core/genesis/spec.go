package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"loanft/crypto"
	"loanft/native/assets"
)

// GenesisSpec describes the initial ledger: native allocations, the registries
// escrows talk to and the assets minted into them.
type GenesisSpec struct {
	GenesisTime string            `json:"genesisTime" yaml:"genesisTime"`
	ChainID     uint64            `json:"chainId" yaml:"chainId"`
	Alloc       map[string]string `json:"alloc" yaml:"alloc"` // addr -> native amount
	Registries  []RegistrySpec    `json:"registries" yaml:"registries"`
	Collateral  []CollateralSpec  `json:"collateral,omitempty" yaml:"collateral,omitempty"`
	Units       []UnitsSpec       `json:"units,omitempty" yaml:"units,omitempty"`
	Approvals   []ApprovalSpec    `json:"approvals,omitempty" yaml:"approvals,omitempty"`
	Paused      []string          `json:"paused,omitempty" yaml:"paused,omitempty"`

	genesisTimestamp time.Time
}

type RegistrySpec struct {
	Address string `json:"address" yaml:"address"`
	Kind    string `json:"kind" yaml:"kind"`
	Minter  string `json:"minter" yaml:"minter"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

type CollateralSpec struct {
	Registry string `json:"registry" yaml:"registry"`
	Owner    string `json:"owner" yaml:"owner"`
	AssetID  uint64 `json:"assetId" yaml:"assetId"`
}

type UnitsSpec struct {
	Registry string `json:"registry" yaml:"registry"`
	Holder   string `json:"holder" yaml:"holder"`
	AssetID  uint64 `json:"assetId" yaml:"assetId"`
	Amount   string `json:"amount" yaml:"amount"`
}

type ApprovalSpec struct {
	Registry string `json:"registry" yaml:"registry"`
	Owner    string `json:"owner" yaml:"owner"`
	Operator string `json:"operator" yaml:"operator"`
}

// LoadGenesisSpec reads a JSON or YAML genesis document. The format is chosen
// by file extension; anything other than .yaml/.yml is parsed as JSON.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Validate checks a spec built in code rather than loaded from disk.
func (s *GenesisSpec) Validate() error { return s.validate() }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime
	if s.ChainID == 0 {
		return fmt.Errorf("chainId must be greater than zero")
	}

	for addr, amount := range s.Alloc {
		if _, err := crypto.ParseAddress(addr); err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
		if _, err := parseAmountString(amount); err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
	}

	kinds := make(map[string]assets.Kind, len(s.Registries))
	for i := range s.Registries {
		r := &s.Registries[i]
		addr, err := crypto.ParseAddress(r.Address)
		if err != nil {
			return fmt.Errorf("registry[%d]: address: %w", i, err)
		}
		if _, err := crypto.ParseAddress(r.Minter); err != nil {
			return fmt.Errorf("registry[%d]: minter: %w", i, err)
		}
		kind, err := assets.ParseKind(r.Kind)
		if err != nil {
			return fmt.Errorf("registry[%d]: %w", i, err)
		}
		key := string(addr[:])
		if _, exists := kinds[key]; exists {
			return fmt.Errorf("registry[%d]: duplicate address %q", i, r.Address)
		}
		kinds[key] = kind
	}

	registryKind := func(addr string) (assets.Kind, error) {
		parsed, err := crypto.ParseAddress(addr)
		if err != nil {
			return 0, err
		}
		kind, ok := kinds[string(parsed[:])]
		if !ok {
			return 0, fmt.Errorf("unknown registry %q", addr)
		}
		return kind, nil
	}

	for i, c := range s.Collateral {
		kind, err := registryKind(c.Registry)
		if err != nil {
			return fmt.Errorf("collateral[%d]: %w", i, err)
		}
		if kind != assets.KindUnique {
			return fmt.Errorf("collateral[%d]: registry %q is not unique", i, c.Registry)
		}
		if _, err := crypto.ParseAddress(c.Owner); err != nil {
			return fmt.Errorf("collateral[%d]: owner: %w", i, err)
		}
	}
	for i, u := range s.Units {
		kind, err := registryKind(u.Registry)
		if err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
		if kind != assets.KindFungible {
			return fmt.Errorf("units[%d]: registry %q is not fungible", i, u.Registry)
		}
		if _, err := crypto.ParseAddress(u.Holder); err != nil {
			return fmt.Errorf("units[%d]: holder: %w", i, err)
		}
		amount, err := parseAmountString(u.Amount)
		if err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
		if amount.Sign() == 0 {
			return fmt.Errorf("units[%d]: amount must be positive", i)
		}
	}
	for i, a := range s.Approvals {
		if _, err := registryKind(a.Registry); err != nil {
			return fmt.Errorf("approvals[%d]: %w", i, err)
		}
		if _, err := crypto.ParseAddress(a.Owner); err != nil {
			return fmt.Errorf("approvals[%d]: owner: %w", i, err)
		}
		if _, err := crypto.ParseAddress(a.Operator); err != nil {
			return fmt.Errorf("approvals[%d]: operator: %w", i, err)
		}
	}
	return nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must be provided")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
