package globals

import (
	"errors"
	"fmt"
	"time"

	"govledger/state/objectstore"
	"govledger/state/protocol"
)

var ErrHeadNotAdvancing = errors.New("block does not advance the head")

// Registry is the typed view over the two global singletons.
type Registry struct {
	store *objectstore.Store
}

func Register(store *objectstore.Store) error {
	if err := store.Register(GlobalPropertyKind, func() objectstore.Object { return &GlobalProperty{} }); err != nil {
		return err
	}
	return store.Register(DynamicGlobalPropertyKind, func() objectstore.Object { return &DynamicGlobalProperty{} })
}

// Init creates both singletons. It must run once, on an empty store, before
// any other object is created.
func Init(store *objectstore.Store, params protocol.ChainParameters, genesisTime time.Time) (*Registry, error) {
	if _, err := store.Create(GlobalPropertyKind, func(o objectstore.Object) {
		o.(*GlobalProperty).Parameters = params
	}); err != nil {
		return nil, err
	}
	if _, err := store.Create(DynamicGlobalPropertyKind, func(o objectstore.Object) {
		o.(*DynamicGlobalProperty).Time = genesisTime.UTC()
	}); err != nil {
		return nil, err
	}
	return Attach(store), nil
}

// Attach wraps a store whose singletons already exist, such as one restored
// from a snapshot.
func Attach(store *objectstore.Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) Global() (*GlobalProperty, error) {
	o, err := r.store.Get(GlobalPropertyID)
	if err != nil {
		return nil, err
	}
	return o.(*GlobalProperty), nil
}

func (r *Registry) Dynamic() (*DynamicGlobalProperty, error) {
	o, err := r.store.Get(DynamicGlobalPropertyID)
	if err != nil {
		return nil, err
	}
	return o.(*DynamicGlobalProperty), nil
}

// HeadBlockTime is the ledger time every time-dependent rule compares against.
func (r *Registry) HeadBlockTime() (time.Time, error) {
	d, err := r.Dynamic()
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

// AllocateVoteID reserves a vote id inside a store modification of the
// global property and returns it.
func (r *Registry) AllocateVoteID(category protocol.VoteCategory) (protocol.VoteID, error) {
	if category >= protocol.VoteCategoryCount {
		return protocol.VoteID{}, fmt.Errorf("vote category %d out of range", category)
	}
	var id protocol.VoteID
	err := r.store.Modify(GlobalPropertyID, func(o objectstore.Object) {
		id = NextVoteID(o.(*GlobalProperty), category)
	})
	return id, err
}

// StageParameters overwrites whatever is pending; the last staged set wins.
func (r *Registry) StageParameters(params protocol.ChainParameters) error {
	return r.store.Modify(GlobalPropertyID, func(o objectstore.Object) {
		p := params
		o.(*GlobalProperty).PendingParameters = &p
	})
}

// Enact moves pending parameters into force. It reports whether anything was
// pending.
func (r *Registry) Enact() (bool, error) {
	gp, err := r.Global()
	if err != nil {
		return false, err
	}
	if gp.PendingParameters == nil {
		return false, nil
	}
	err = r.store.Modify(GlobalPropertyID, func(o objectstore.Object) {
		g := o.(*GlobalProperty)
		g.Parameters = *g.PendingParameters
		g.PendingParameters = nil
	})
	return err == nil, err
}

// AdvanceHead records a new head block. Heights must strictly increase and
// time must not go backwards.
func (r *Registry) AdvanceHead(number uint64, id string, at time.Time) error {
	d, err := r.Dynamic()
	if err != nil {
		return err
	}
	if number <= d.HeadBlockNumber {
		return fmt.Errorf("%w: height %d, head is %d", ErrHeadNotAdvancing, number, d.HeadBlockNumber)
	}
	if at.Before(d.Time) {
		return fmt.Errorf("%w: time %s is before head time %s", ErrHeadNotAdvancing, at.UTC().Format(time.RFC3339), d.Time.Format(time.RFC3339))
	}
	return r.store.Modify(DynamicGlobalPropertyID, func(o objectstore.Object) {
		dyn := o.(*DynamicGlobalProperty)
		dyn.HeadBlockNumber = number
		dyn.HeadBlockID = id
		dyn.Time = at.UTC()
	})
}
