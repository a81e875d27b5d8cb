package genesis

import (
	"fmt"
	"sort"

	"loanft/core/events"
	"loanft/core/state"
	"loanft/crypto"
	"loanft/native/assets"
	"loanft/native/bank"
)

// Apply writes spec into the manager's pending state. Steps run in a fixed
// order with sorted inputs so every node derives the same state. The caller
// commits the manager.
func Apply(spec *GenesisSpec, manager *state.Manager, emitter events.Emitter) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	if _, applied, err := manager.GenesisInfo(); err != nil {
		return err
	} else if applied {
		return fmt.Errorf("genesis already applied")
	}
	ts := spec.GenesisTimestamp()
	if ts.IsZero() {
		parsed, err := parseGenesisTime(spec.GenesisTime)
		if err != nil {
			return err
		}
		ts = parsed
	}

	ledger := bank.NewLedger(manager)
	ledger.SetEmitter(emitter)
	registries := assets.NewEngine()
	registries.SetState(manager)
	registries.SetEmitter(emitter)

	// 1) Native allocations, sorted by address.
	addrs := make([]string, 0, len(spec.Alloc))
	for addr := range spec.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		parsed, err := crypto.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
		amount, err := parseAmountString(spec.Alloc[addr])
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
		if err := ledger.Credit(parsed, amount); err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
	}

	// 2) Registries in declaration order.
	for i, r := range spec.Registries {
		addr, _ := crypto.ParseAddress(r.Address)
		minter, _ := crypto.ParseAddress(r.Minter)
		kind, err := assets.ParseKind(r.Kind)
		if err != nil {
			return fmt.Errorf("registry[%d]: %w", i, err)
		}
		if err := registries.Register(&assets.Registry{Address: addr, Kind: kind, Minter: minter, Name: r.Name}); err != nil {
			return fmt.Errorf("registry[%d]: %w", i, err)
		}
	}

	// 3) Mints are issued by each registry's minter.
	for i, c := range spec.Collateral {
		registry, _ := crypto.ParseAddress(c.Registry)
		owner, _ := crypto.ParseAddress(c.Owner)
		reg, err := registries.Registry(registry)
		if err != nil {
			return fmt.Errorf("collateral[%d]: %w", i, err)
		}
		if err := registries.MintUnique(registry, reg.Minter, owner, c.AssetID); err != nil {
			return fmt.Errorf("collateral[%d]: %w", i, err)
		}
	}
	for i, u := range spec.Units {
		registry, _ := crypto.ParseAddress(u.Registry)
		holder, _ := crypto.ParseAddress(u.Holder)
		amount, err := parseAmountString(u.Amount)
		if err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
		reg, err := registries.Registry(registry)
		if err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
		if err := registries.MintUnits(registry, reg.Minter, holder, u.AssetID, amount); err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
	}

	// 4) Operator approvals.
	for i, a := range spec.Approvals {
		registry, _ := crypto.ParseAddress(a.Registry)
		owner, _ := crypto.ParseAddress(a.Owner)
		operator, _ := crypto.ParseAddress(a.Operator)
		if err := registries.SetApprovalForAll(registry, owner, operator, true); err != nil {
			return fmt.Errorf("approvals[%d]: %w", i, err)
		}
	}

	for _, module := range spec.Paused {
		if err := manager.SetPaused(module, true); err != nil {
			return fmt.Errorf("paused[%q]: %w", module, err)
		}
	}

	return manager.SetGenesisInfo(state.GenesisInfo{ChainID: spec.ChainID, Timestamp: uint64(ts.Unix())})
}
