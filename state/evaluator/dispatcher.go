package evaluator

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"govledger/engine/library"
	"govledger/state/protocol"
)

// Dispatcher routes operations to their evaluator and runs the two phases.
type Dispatcher struct {
	evaluators map[protocol.OpType]Evaluator
	mutex      *deadlock.Mutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		evaluators: make(map[protocol.OpType]Evaluator),
		mutex:      &deadlock.Mutex{},
	}
}

func (d *Dispatcher) Register(e Evaluator) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, exists := d.evaluators[e.Type()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEvaluator, e.Type())
	}
	d.evaluators[e.Type()] = e
	return nil
}

func (d *Dispatcher) lookup(op protocol.Operation) (Evaluator, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	e, ok := d.evaluators[op.Type()]
	if !ok {
		return nil, Fail(ErrUnknownOperation, op, "no evaluator registered for type %d", uint16(op.Type()))
	}
	return e, nil
}

// Validate runs the evaluate phase, then the stateless checks of op. The
// store is read only during evaluation, so an evaluator that tries to write
// fails. Authorization failures from the evaluator win over malformed input.
func (d *Dispatcher) Validate(ctx *Context, op protocol.Operation) error {
	e, err := d.lookup(op)
	if err != nil {
		return err
	}
	prev := ctx.DB.Store.SetReadOnly(true)
	err = e.Evaluate(ctx, op)
	ctx.DB.Store.SetReadOnly(prev)
	if err != nil {
		return wrap(op, err)
	}
	return wrap(op, op.Validate())
}

// Dispatch evaluates op and, if that succeeds, applies it. A failed apply may
// leave partial writes behind; the caller owns the undo session that discards
// them.
func (d *Dispatcher) Dispatch(ctx *Context, op protocol.Operation) (Result, error) {
	if err := d.Validate(ctx, op); err != nil {
		library.LogCLI(err.Error(), 3)
		return Result{}, err
	}
	e, err := d.lookup(op)
	if err != nil {
		return Result{}, err
	}
	res, err := e.Apply(ctx, op)
	if err != nil {
		library.LogCLI(err.Error(), 2)
		return Result{}, wrap(op, err)
	}
	return res, nil
}
