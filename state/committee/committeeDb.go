package committee

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/slices"
	"govledger/engine/library"
	"govledger/state/objectstore"
	"govledger/state/protocol"
)

// Registry keeps committee members in the store and indexes them by owning
// account. One account may own several members.
type Registry struct {
	store     *objectstore.Store
	byAccount map[protocol.ObjectID][]protocol.ObjectID
	mutex     *deadlock.Mutex
}

func Register(store *objectstore.Store) error {
	return store.Register(protocol.CommitteeMemberKind, func() objectstore.Object { return &Member{} })
}

func New(store *objectstore.Store) *Registry {
	r := &Registry{
		store:     store,
		byAccount: make(map[protocol.ObjectID][]protocol.ObjectID),
		mutex:     &deadlock.Mutex{},
	}
	store.Each(protocol.CommitteeMemberKind, func(o objectstore.Object) bool {
		r.index(o.(*Member))
		return true
	})
	store.Subscribe(r.onChange)
	return r
}

func (r *Registry) onChange(kind objectstore.ChangeKind, before, after objectstore.Object) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if m, ok := before.(*Member); ok {
		r.unindex(m)
	}
	if m, ok := after.(*Member); ok {
		r.index(m)
	}
}

func (r *Registry) index(m *Member) {
	ids := r.byAccount[m.CommitteeMemberAccount]
	if slices.Contains(ids, m.ID) {
		return
	}
	ids = append(ids, m.ID)
	slices.SortFunc(ids, func(a, b protocol.ObjectID) bool {
		return a.Less(b)
	})
	r.byAccount[m.CommitteeMemberAccount] = ids
}

func (r *Registry) unindex(m *Member) {
	ids := r.byAccount[m.CommitteeMemberAccount]
	if i := slices.Index(ids, m.ID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(r.byAccount, m.CommitteeMemberAccount)
		return
	}
	r.byAccount[m.CommitteeMemberAccount] = ids
}

// Create persists a new member with an already allocated vote id.
func (r *Registry) Create(account protocol.ObjectID, voteID protocol.VoteID, url string) (*Member, error) {
	o, err := r.store.Create(protocol.CommitteeMemberKind, func(o objectstore.Object) {
		m := o.(*Member)
		m.CommitteeMemberAccount = account
		m.VoteID = voteID
		m.URL = url
	})
	if err != nil {
		return nil, err
	}
	library.LogCLI(fmt.Sprintf("committee member %s created for %s with vote id %s", o.ObjectID(), account, voteID), 4)
	return o.(*Member), nil
}

func (r *Registry) Get(id protocol.ObjectID) (*Member, error) {
	if !id.Is(protocol.CommitteeMemberKind) {
		return nil, fmt.Errorf("%w: %s is not a committee member id", objectstore.ErrObjectNotFound, id)
	}
	o, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	return o.(*Member), nil
}

func (r *Registry) SetURL(id protocol.ObjectID, url string) error {
	return r.store.Modify(id, func(o objectstore.Object) {
		o.(*Member).URL = url
	})
}

// ByAccount lists the members owned by account in id order.
func (r *Registry) ByAccount(account protocol.ObjectID) []protocol.ObjectID {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return slices.Clone(r.byAccount[account])
}

// All returns every member in id order.
func (r *Registry) All() []*Member {
	var members []*Member
	r.store.Each(protocol.CommitteeMemberKind, func(o objectstore.Object) bool {
		members = append(members, o.(*Member))
		return true
	})
	return members
}
