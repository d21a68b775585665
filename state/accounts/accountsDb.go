package accounts

import (
	"errors"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
	"govledger/engine/library"
	"govledger/state/objectstore"
	"govledger/state/protocol"
)

var ErrNameTaken = errors.New("account name already registered")

// Registry reads and writes accounts through the store and keeps a name index
// that follows every store change, including undo.
type Registry struct {
	store  *objectstore.Store
	byName map[string]protocol.ObjectID
	mutex  *deadlock.Mutex
}

func Register(store *objectstore.Store) error {
	return store.Register(protocol.AccountKind, func() objectstore.Object { return &Account{} })
}

func New(store *objectstore.Store) *Registry {
	r := &Registry{
		store:  store,
		byName: make(map[string]protocol.ObjectID),
		mutex:  &deadlock.Mutex{},
	}
	store.Each(protocol.AccountKind, func(o objectstore.Object) bool {
		a := o.(*Account)
		r.byName[a.Name] = a.ID
		return true
	})
	store.Subscribe(r.onChange)
	return r
}

func (r *Registry) onChange(kind objectstore.ChangeKind, before, after objectstore.Object) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if before != nil {
		if a, ok := before.(*Account); ok {
			delete(r.byName, a.Name)
		}
	}
	if after != nil {
		if a, ok := after.(*Account); ok {
			r.byName[a.Name] = a.ID
		}
	}
}

// Create registers a new account. Names are unique.
func (r *Registry) Create(name string, lifetimeMember bool) (*Account, error) {
	if _, exists := r.ByName(name); exists {
		return nil, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	o, err := r.store.Create(protocol.AccountKind, func(o objectstore.Object) {
		a := o.(*Account)
		a.Name = name
		a.LifetimeMember = lifetimeMember
		a.InstantPaybackExpiration = protocol.MinTimestamp
	})
	if err != nil {
		return nil, err
	}
	library.LogCLI(fmt.Sprintf("account %s (%s) created", o.ObjectID(), name), 4)
	return o.(*Account), nil
}

func (r *Registry) Get(id protocol.ObjectID) (*Account, error) {
	if !id.Is(protocol.AccountKind) {
		return nil, fmt.Errorf("%w: %s is not an account id", objectstore.ErrObjectNotFound, id)
	}
	o, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	return o.(*Account), nil
}

func (r *Registry) Find(id protocol.ObjectID) (*Account, bool) {
	if !id.Is(protocol.AccountKind) {
		return nil, false
	}
	o, ok := r.store.Find(id)
	if !ok {
		return nil, false
	}
	return o.(*Account), true
}

func (r *Registry) ByName(name string) (protocol.ObjectID, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	id, ok := r.byName[name]
	return id, ok
}

func (r *Registry) GetMap() Mapped {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	m := make(Mapped, len(r.byName))
	for name, id := range r.byName {
		m[name] = id
	}
	return m
}

// SetInstantPayback sets the payback expiration. Pass protocol.MinTimestamp
// to revoke.
func (r *Registry) SetInstantPayback(id protocol.ObjectID, expiration time.Time) error {
	return r.store.Modify(id, func(o objectstore.Object) {
		o.(*Account).InstantPaybackExpiration = expiration.UTC()
	})
}

func (r *Registry) UpgradeToLifetime(id protocol.ObjectID) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	return r.store.Modify(id, func(o objectstore.Object) {
		o.(*Account).LifetimeMember = true
	})
}
