package evaluator

import (
	"fmt"

	"govledger/state/chain"
	"govledger/state/protocol"
)

// TransactionState is what the enclosing transaction tells an evaluator.
// IsProposed is set only when the operations run as the payload of an
// approved proposal.
type TransactionState struct {
	IsProposed  bool
	BlockNumber uint64
}

type Context struct {
	DB  *chain.Database
	Trx *TransactionState
}

// Result is returned by Apply. NewObject is set by operations that create an
// object.
type Result struct {
	NewObject *protocol.ObjectID `json:"new_object,omitempty"`
}

func NewObject(id protocol.ObjectID) Result {
	return Result{NewObject: &id}
}

// Evaluator handles one operation type. Evaluate must not write; Apply may
// assume Evaluate succeeded against the same state.
type Evaluator interface {
	Type() protocol.OpType
	Evaluate(ctx *Context, op protocol.Operation) error
	Apply(ctx *Context, op protocol.Operation) (Result, error)
}

// Typed is the strongly typed form evaluators are written in.
type Typed[T protocol.Operation] interface {
	Evaluate(ctx *Context, op T) error
	Apply(ctx *Context, op T) (Result, error)
}

// Wrap adapts a Typed evaluator for registration.
func Wrap[T protocol.Operation](impl Typed[T]) Evaluator {
	var zero T
	return typed[T]{opType: zero.Type(), impl: impl}
}

type typed[T protocol.Operation] struct {
	opType protocol.OpType
	impl   Typed[T]
}

func (t typed[T]) Type() protocol.OpType {
	return t.opType
}

func (t typed[T]) cast(op protocol.Operation) (T, error) {
	o, ok := op.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %T routed to %s evaluator", ErrUnknownOperation, op, t.opType)
	}
	return o, nil
}

func (t typed[T]) Evaluate(ctx *Context, op protocol.Operation) error {
	o, err := t.cast(op)
	if err != nil {
		return err
	}
	return t.impl.Evaluate(ctx, o)
}

func (t typed[T]) Apply(ctx *Context, op protocol.Operation) (Result, error) {
	o, err := t.cast(op)
	if err != nil {
		return Result{}, err
	}
	return t.impl.Apply(ctx, o)
}

// RequireProposal rejects op unless it runs inside an approved proposal.
func RequireProposal(ctx *Context, op protocol.Operation) error {
	if ctx.Trx == nil || !ctx.Trx.IsProposed {
		return Fail(ErrNotAuthorizedDirectly, op, "may only be executed as part of an approved proposal")
	}
	return nil
}
