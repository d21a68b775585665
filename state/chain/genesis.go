package chain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"govledger/state/protocol"
)

type GenesisAccount struct {
	Name           string `json:"name"`
	LifetimeMember bool   `json:"lifetime_member"`
}

type GenesisBalance struct {
	Owner  string `json:"owner"`
	Amount int64  `json:"amount"`
}

// Genesis describes the state before the first block. The special accounts
// are always created first, in protocol order, so their ids are fixed.
type Genesis struct {
	InitialTimestamp    time.Time                 `json:"initial_timestamp"`
	InitialParameters   *protocol.ChainParameters `json:"initial_parameters,omitempty"`
	InitialAccounts     []GenesisAccount          `json:"initial_accounts"`
	InitialBalances     []GenesisBalance          `json:"initial_balances"`
	ConstructionCapital int64                     `json:"construction_capital"`
}

func ParseGenesis(data []byte) (Genesis, error) {
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}
	return g, g.validate()
}

func (g Genesis) validate() error {
	names := make(map[string]struct{})
	for _, n := range protocol.SpecialAccountNames {
		names[n] = struct{}{}
	}
	for _, a := range g.InitialAccounts {
		if a.Name == "" {
			return fmt.Errorf("genesis account with empty name")
		}
		if _, dup := names[a.Name]; dup {
			return fmt.Errorf("genesis account %q declared twice", a.Name)
		}
		names[a.Name] = struct{}{}
	}
	if g.ConstructionCapital < 0 {
		return fmt.Errorf("construction capital is negative")
	}
	supply := g.ConstructionCapital
	for _, b := range g.InitialBalances {
		if _, ok := names[b.Owner]; !ok {
			return fmt.Errorf("genesis balance for unknown account %q", b.Owner)
		}
		if b.Amount < 0 {
			return fmt.Errorf("genesis balance for %q is negative", b.Owner)
		}
		if supply > math.MaxInt64-b.Amount {
			return fmt.Errorf("genesis supply overflows at the balance for %q", b.Owner)
		}
		supply += b.Amount
	}
	return nil
}

func (g Genesis) parameters() protocol.ChainParameters {
	if g.InitialParameters != nil {
		return *g.InitialParameters
	}
	return protocol.DefaultChainParameters()
}
