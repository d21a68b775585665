package objectstore

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrUnknownKind     = errors.New("unknown object kind")
	ErrKindRegistered  = errors.New("object kind already registered")
	ErrReadOnly        = errors.New("store is read only")
	ErrNoTransaction   = errors.New("no open transaction")
	ErrStaleCheckpoint = errors.New("checkpoint is no longer open")
)

type table struct {
	kind    Kind
	factory Factory
	next    uint64
	rows    map[uint64]Object
}

// Store holds every ledger object, grouped by kind. Callers only ever see
// clones; the stored version is replaced wholesale on Modify, which is what
// lets the undo log keep the previous version by reference.
type Store struct {
	mu       *deadlock.Mutex
	tables   map[Kind]*table
	hooks    []Hook
	log      []change
	marks    []int
	readOnly bool
}

func New() *Store {
	return &Store{
		mu:     &deadlock.Mutex{},
		tables: make(map[Kind]*table),
	}
}

// Register makes a kind available to Create. The factory must return a fresh
// zero value of the concrete object type.
func (s *Store) Register(kind Kind, factory Factory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindRegistered, kind)
	}
	s.tables[kind] = &table{
		kind:    kind,
		factory: factory,
		rows:    make(map[uint64]Object),
	}
	return nil
}

func (s *Store) Subscribe(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// SetReadOnly toggles rejection of Create and Modify and returns the previous
// setting.
func (s *Store) SetReadOnly(ro bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.readOnly
	s.readOnly = ro
	return prev
}

// Create allocates the next instance of kind, lets init populate the new
// object and persists it.
func (s *Store) Create(kind Kind, init func(Object)) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return nil, fmt.Errorf("%w: create %s", ErrReadOnly, kind)
	}
	t, ok := s.tables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	obj := t.factory()
	if init != nil {
		init(obj)
	}
	id := kind.ID(t.next)
	obj.SetObjectID(id)
	s.record(change{kind: Created, id: id, prevNext: t.next})
	t.rows[id.Instance] = obj
	t.next++
	s.notify(Created, nil, obj)
	return obj.Clone(), nil
}

// Get returns a copy of the object or ErrObjectNotFound.
func (s *Store) Get(id ObjectID) (Object, error) {
	obj, ok := s.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return obj, nil
}

// Find returns a copy of the object if it exists.
func (s *Store) Find(id ObjectID) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.find(id)
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

func (s *Store) find(id ObjectID) (Object, bool) {
	t, ok := s.tables[id.Kind()]
	if !ok {
		return nil, false
	}
	obj, ok := t.rows[id.Instance]
	return obj, ok
}

// Modify hands mutator a copy of the current object and commits the copy.
// The id cannot be changed by the mutator.
func (s *Store) Modify(id ObjectID, mutator func(Object)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return fmt.Errorf("%w: modify %s", ErrReadOnly, id)
	}
	current, ok := s.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	next := current.Clone()
	mutator(next)
	next.SetObjectID(id)
	s.record(change{kind: Modified, id: id, before: current})
	s.tables[id.Kind()].rows[id.Instance] = next
	s.notify(Modified, current, next)
	return nil
}

// NextInstance reports the instance the next Create of kind will receive.
func (s *Store) NextInstance(kind Kind) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return t.next, nil
}

// Kinds lists registered kinds in (space, type) order.
func (s *Store) Kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kinds()
}

func (s *Store) kinds() []Kind {
	kinds := maps.Keys(s.tables)
	slices.SortFunc(kinds, func(a, b Kind) bool {
		return a.less(b)
	})
	return kinds
}

// Each visits copies of every object of kind in instance order until fn
// returns false.
func (s *Store) Each(kind Kind, fn func(Object) bool) {
	s.mu.Lock()
	t, ok := s.tables[kind]
	if !ok {
		s.mu.Unlock()
		return
	}
	instances := maps.Keys(t.rows)
	slices.Sort(instances)
	objs := make([]Object, 0, len(instances))
	for _, i := range instances {
		objs = append(objs, t.rows[i].Clone())
	}
	s.mu.Unlock()
	for _, obj := range objs {
		if !fn(obj) {
			return
		}
	}
}

func (s *Store) notify(kind ChangeKind, before, after Object) {
	for _, h := range s.hooks {
		h(kind, before, after)
	}
}
