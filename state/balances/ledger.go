package balances

import (
	"errors"
	"fmt"
	"math"

	"github.com/sasha-s/go-deadlock"
	"govledger/state/objectstore"
	"govledger/state/protocol"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Ledger stores balances as store objects so that every adjustment is covered
// by the enclosing undo session.
type Ledger struct {
	store *objectstore.Store
	index map[holding]protocol.ObjectID
	mutex *deadlock.Mutex
}

func Register(store *objectstore.Store) error {
	return store.Register(BalanceKind, func() objectstore.Object { return &Balance{} })
}

func New(store *objectstore.Store) *Ledger {
	l := &Ledger{
		store: store,
		index: make(map[holding]protocol.ObjectID),
		mutex: &deadlock.Mutex{},
	}
	store.Each(BalanceKind, func(o objectstore.Object) bool {
		b := o.(*Balance)
		l.index[holding{b.Owner, b.AssetType}] = b.ID
		return true
	})
	store.Subscribe(l.onChange)
	return l
}

func (l *Ledger) onChange(kind objectstore.ChangeKind, before, after objectstore.Object) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	switch kind {
	case objectstore.Created:
		if b, ok := after.(*Balance); ok {
			l.index[holding{b.Owner, b.AssetType}] = b.ID
		}
	case objectstore.Removed:
		if b, ok := before.(*Balance); ok {
			delete(l.index, holding{b.Owner, b.AssetType})
		}
	}
}

func (l *Ledger) lookup(owner, asset protocol.ObjectID) (protocol.ObjectID, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	id, ok := l.index[holding{owner, asset}]
	return id, ok
}

// Get returns the amount of asset held by owner; zero when nothing is held.
func (l *Ledger) Get(owner, asset protocol.ObjectID) int64 {
	id, ok := l.lookup(owner, asset)
	if !ok {
		return 0
	}
	o, ok := l.store.Find(id)
	if !ok {
		return 0
	}
	return o.(*Balance).Amount
}

// Adjust adds delta (which may be negative) to owner's holding. A result below
// zero is refused with ErrInsufficientBalance and nothing changes.
func (l *Ledger) Adjust(owner protocol.ObjectID, delta protocol.Asset) error {
	if delta.Amount == 0 {
		return nil
	}
	current := l.Get(owner, delta.AssetID)
	if err := checkAdjust(owner, current, delta); err != nil {
		return err
	}
	if id, ok := l.lookup(owner, delta.AssetID); ok {
		return l.store.Modify(id, func(o objectstore.Object) {
			o.(*Balance).Amount += delta.Amount
		})
	}
	_, err := l.store.Create(BalanceKind, func(o objectstore.Object) {
		b := o.(*Balance)
		b.Owner = owner
		b.AssetType = delta.AssetID
		b.Amount = delta.Amount
	})
	return err
}

func checkAdjust(owner protocol.ObjectID, current int64, delta protocol.Asset) error {
	if delta.Amount > 0 && current > math.MaxInt64-delta.Amount {
		return fmt.Errorf("%w: %s holds %d %s, adjustment %d", ErrBalanceOverflow, owner, current, delta.AssetID, delta.Amount)
	}
	if current+delta.Amount < 0 {
		return fmt.Errorf("%w: %s holds %d %s, adjustment %d", ErrInsufficientBalance, owner, current, delta.AssetID, delta.Amount)
	}
	return nil
}

// Transfer moves amount from one owner to another. Both sides are checked
// before anything is written.
func (l *Ledger) Transfer(from, to protocol.ObjectID, amount protocol.Asset) error {
	if amount.Amount < 0 {
		return fmt.Errorf("transfer of negative amount %s", amount)
	}
	if from != to {
		if err := checkAdjust(to, l.Get(to, amount.AssetID), amount); err != nil {
			return err
		}
	}
	if err := l.Adjust(from, amount.Negate()); err != nil {
		return err
	}
	return l.Adjust(to, amount)
}

// Total sums every holding of asset.
func (l *Ledger) Total(asset protocol.ObjectID) int64 {
	var total int64
	l.store.Each(BalanceKind, func(o objectstore.Object) bool {
		if b := o.(*Balance); b.AssetType == asset {
			total += b.Amount
		}
		return true
	})
	return total
}

func (l *Ledger) GetMap() Mapped {
	m := make(Mapped)
	l.store.Each(BalanceKind, func(o objectstore.Object) bool {
		b := o.(*Balance)
		if _, ok := m[b.Owner]; !ok {
			m[b.Owner] = make(map[protocol.ObjectID]int64)
		}
		m[b.Owner][b.AssetType] = b.Amount
		return true
	})
	return m
}
