package evaluator

import (
	"errors"
	"fmt"

	"govledger/state/objectstore"
	"govledger/state/protocol"
)

// Error kinds. Every evaluation failure unwraps to exactly one of these.
var (
	ErrPrerequisiteNotMet    = errors.New("prerequisite not met")
	ErrAuthorizationFailed   = errors.New("authorization failed")
	ErrNotAuthorizedDirectly = errors.New("not authorized directly")
	ErrIssuanceWindowClosed  = errors.New("issuance window closed")
	ErrInsufficientReserve   = errors.New("insufficient reserve")
	ErrObjectNotFound        = objectstore.ErrObjectNotFound
	ErrFeeExceedsAmount      = errors.New("fee exceeds amount")
	ErrInvalidOperation      = protocol.ErrInvalidOperation
	ErrUnknownOperation      = errors.New("unknown operation")
	ErrDuplicateEvaluator    = errors.New("evaluator already registered")
)

// Error reports a rejected operation together with the operation itself.
type Error struct {
	Kind      error
	Operation protocol.Operation
	Message   string
}

func (e *Error) Error() string {
	name := "operation"
	if e.Operation != nil {
		name = e.Operation.Type().String()
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", name, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", name, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Fail builds an *Error of the given kind with a formatted message.
func Fail(kind error, op protocol.Operation, format string, args ...interface{}) error {
	return &Error{Kind: kind, Operation: op, Message: fmt.Sprintf(format, args...)}
}

func wrap(op protocol.Operation, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: err, Operation: op}
}
