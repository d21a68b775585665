package chain

import (
	"fmt"
	"time"

	"govledger/engine/library"
	"govledger/state/accounts"
	"govledger/state/balances"
	"govledger/state/committee"
	"govledger/state/globals"
	"govledger/state/objectstore"
	"govledger/state/protocol"
	"govledger/state/replay"
)

// Database bundles the store with the typed views evaluators work through.
// There is exactly one per chain and it is passed explicitly.
type Database struct {
	Store     *objectstore.Store
	Globals   *globals.Registry
	Accounts  *accounts.Registry
	Balances  *balances.Ledger
	Committee *committee.Registry
	Replay    *replay.Guard

	// ConstructionCapitalAccount funds committee_member_issue_construction_capital.
	ConstructionCapitalAccount protocol.ObjectID
}

func newStore() (*objectstore.Store, error) {
	store := objectstore.New()
	for _, register := range []func(*objectstore.Store) error{
		globals.Register,
		accounts.Register,
		balances.Register,
		committee.Register,
		replay.Register,
	} {
		if err := register(store); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func attach(store *objectstore.Store, reserve protocol.ObjectID) *Database {
	return &Database{
		Store:                      store,
		Globals:                    globals.Attach(store),
		Accounts:                   accounts.New(store),
		Balances:                   balances.New(store),
		Committee:                  committee.New(store),
		Replay:                     replay.New(store),
		ConstructionCapitalAccount: reserve,
	}
}

// New builds the initial state from genesis. reserve names the account that
// holds construction capital; the zero ObjectID selects the protocol default.
func New(g Genesis, reserve protocol.ObjectID) (*Database, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	if reserve == (protocol.ObjectID{}) {
		reserve = protocol.ConstructionCapitalAccount
	}
	store, err := newStore()
	if err != nil {
		return nil, err
	}
	if _, err := globals.Init(store, g.parameters(), g.InitialTimestamp); err != nil {
		return nil, err
	}
	d := attach(store, reserve)
	for _, name := range protocol.SpecialAccountNames {
		if _, err := d.Accounts.Create(name, true); err != nil {
			return nil, err
		}
	}
	for _, a := range g.InitialAccounts {
		if _, err := d.Accounts.Create(a.Name, a.LifetimeMember); err != nil {
			return nil, err
		}
	}
	if _, err := d.Accounts.Get(reserve); err != nil {
		return nil, fmt.Errorf("construction capital account: %w", err)
	}
	for _, b := range g.InitialBalances {
		owner, _ := d.Accounts.ByName(b.Owner)
		if err := d.Balances.Adjust(owner, protocol.BaseAmount(b.Amount)); err != nil {
			return nil, err
		}
	}
	if err := d.Balances.Adjust(reserve, protocol.BaseAmount(g.ConstructionCapital)); err != nil {
		return nil, err
	}
	library.LogCLI(fmt.Sprintf("genesis state built with %d accounts", len(d.Accounts.GetMap())), 4)
	return d, nil
}

// Restore rebuilds a database from a Snapshot.
func Restore(data []byte, reserve protocol.ObjectID) (*Database, error) {
	if reserve == (protocol.ObjectID{}) {
		reserve = protocol.ConstructionCapitalAccount
	}
	store, err := newStore()
	if err != nil {
		return nil, err
	}
	d := attach(store, reserve)
	if err := store.Restore(data); err != nil {
		return nil, err
	}
	if _, err := d.Globals.Global(); err != nil {
		return nil, fmt.Errorf("snapshot has no global properties: %w", err)
	}
	return d, nil
}

func (d *Database) Snapshot() ([]byte, error) {
	return d.Store.Snapshot()
}

// Digest is the sha256 of the canonical snapshot. Two databases with the same
// digest hold the same objects and will allocate the same next ids.
func (d *Database) Digest() (library.Sha256, error) {
	b, err := d.Store.Snapshot()
	if err != nil {
		return "", err
	}
	return library.Sha256Sum(b), nil
}

func (d *Database) HeadBlockTime() (time.Time, error) {
	return d.Globals.HeadBlockTime()
}
