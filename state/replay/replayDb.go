package replay

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"govledger/engine/library"
	"govledger/state/objectstore"
)

var ErrDuplicateTransaction = errors.New("transaction already applied")

// Guard refuses a transaction id it has already seen. Entries are store
// objects, so a rolled back transaction is forgotten with everything else.
type Guard struct {
	store *objectstore.Store
	seen  map[library.Sha256]uint64
	mutex *deadlock.Mutex
}

func Register(store *objectstore.Store) error {
	return store.Register(AppliedTransactionKind, func() objectstore.Object { return &AppliedTransaction{} })
}

func New(store *objectstore.Store) *Guard {
	g := &Guard{
		store: store,
		seen:  make(map[library.Sha256]uint64),
		mutex: &deadlock.Mutex{},
	}
	store.Each(AppliedTransactionKind, func(o objectstore.Object) bool {
		a := o.(*AppliedTransaction)
		g.seen[a.TransactionID] = a.BlockNumber
		return true
	})
	store.Subscribe(g.onChange)
	return g
}

func (g *Guard) onChange(kind objectstore.ChangeKind, before, after objectstore.Object) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if a, ok := before.(*AppliedTransaction); ok {
		delete(g.seen, a.TransactionID)
	}
	if a, ok := after.(*AppliedTransaction); ok {
		g.seen[a.TransactionID] = a.BlockNumber
	}
}

func (g *Guard) Seen(id library.Sha256) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	_, ok := g.seen[id]
	return ok
}

// Record marks id as applied in block.
func (g *Guard) Record(id library.Sha256, block uint64) error {
	if g.Seen(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, id)
	}
	_, err := g.store.Create(AppliedTransactionKind, func(o objectstore.Object) {
		a := o.(*AppliedTransaction)
		a.TransactionID = id
		a.BlockNumber = block
	})
	return err
}

func (g *Guard) GetMap() Mapped {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	m := make(Mapped, len(g.seen))
	for id, block := range g.seen {
		m[id] = block
	}
	return m
}

// GetStateHash hashes the applied ids in sorted order.
func (g *Guard) GetStateHash() library.Sha256 {
	m := g.GetMap()
	ids := maps.Keys(m)
	slices.Sort(ids)
	b := bytes.Buffer{}
	for _, id := range ids {
		b.WriteString(id)
	}
	return library.Sha256Sum(b.Bytes())
}
