package objectstore

import (
	"fmt"
	"strconv"
	"strings"
)

type Space uint8

const (
	ProtocolSpace       Space = 1
	ImplementationSpace Space = 2
)

type TypeID uint8

// Kind is the (space, type) tag that scopes instance numbering.
type Kind struct {
	Space Space
	Type  TypeID
}

func (k Kind) ID(instance uint64) ObjectID {
	return ObjectID{Space: k.Space, Type: k.Type, Instance: instance}
}

func (k Kind) String() string {
	return fmt.Sprintf("%d.%d", k.Space, k.Type)
}

func (k Kind) less(o Kind) bool {
	if k.Space != o.Space {
		return k.Space < o.Space
	}
	return k.Type < o.Type
}

// ObjectID identifies a ledger object and is rendered as space.type.instance.
type ObjectID struct {
	Space    Space
	Type     TypeID
	Instance uint64
}

func (id ObjectID) Kind() Kind {
	return Kind{Space: id.Space, Type: id.Type}
}

func (id ObjectID) Is(k Kind) bool {
	return id.Kind() == k
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Space, id.Type, id.Instance)
}

func (id ObjectID) Less(o ObjectID) bool {
	if id.Kind() != o.Kind() {
		return id.Kind().less(o.Kind())
	}
	return id.Instance < o.Instance
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseObjectID(s string) (ObjectID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return ObjectID{}, fmt.Errorf("invalid object id %q: want space.type.instance", s)
	}
	space, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	typ, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	instance, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return ObjectID{Space: Space(space), Type: TypeID(typ), Instance: instance}, nil
}

// MustParseObjectID is for constants and tests.
func MustParseObjectID(s string) ObjectID {
	id, err := ParseObjectID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Object is anything the store can persist. Clone must return a deep copy so
// that stored versions are never reachable from callers.
type Object interface {
	ObjectID() ObjectID
	SetObjectID(ObjectID)
	Clone() Object
}

// Base is embedded by every concrete object to carry its id.
type Base struct {
	ID ObjectID `json:"id"`
}

func (b Base) ObjectID() ObjectID {
	return b.ID
}

func (b *Base) SetObjectID(id ObjectID) {
	b.ID = id
}

type Factory func() Object

type ChangeKind int

const (
	Created ChangeKind = iota
	Modified
	Removed
)

func (c ChangeKind) String() string {
	switch c {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Hook observes every committed change, including the inverse changes made
// while undoing. before is nil for Created, after is nil for Removed.
// Hooks run with the store locked and must not call back into it.
type Hook func(kind ChangeKind, before, after Object)
