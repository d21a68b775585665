package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"govledger/engine/library"
)

// Transaction is an ordered list of operations applied atomically.
type Transaction struct {
	Expiration time.Time   `json:"expiration"`
	Operations []Operation `json:"-"`
}

type wireTransaction struct {
	Expiration time.Time         `json:"expiration"`
	Operations []json.RawMessage `json:"operations"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	w := wireTransaction{Expiration: t.Expiration.UTC(), Operations: []json.RawMessage{}}
	for i, op := range t.Operations {
		b, err := MarshalOperation(op)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		w.Operations = append(w.Operations, b)
	}
	return json.Marshal(w)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w wireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Expiration = w.Expiration.UTC()
	t.Operations = make([]Operation, 0, len(w.Operations))
	for i, raw := range w.Operations {
		op, err := UnmarshalOperation(raw)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		t.Operations = append(t.Operations, op)
	}
	return nil
}

// ID is the sha256 of the canonical JSON encoding.
func (t Transaction) ID() (library.Sha256, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return library.Sha256Sum(b), nil
}

// MarshalOperation encodes op as a [type, body] pair.
func MarshalOperation(op Operation) ([]byte, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]json.RawMessage{
		json.RawMessage(fmt.Sprintf("%d", uint16(op.Type()))),
		body,
	})
}

func UnmarshalOperation(data []byte) (Operation, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, err
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("%w: want [type, body], got %d elements", ErrInvalidOperation, len(pair))
	}
	var t OpType
	if err := json.Unmarshal(pair[0], &t); err != nil {
		return nil, fmt.Errorf("%w: bad type: %s", ErrInvalidOperation, err.Error())
	}
	switch t {
	case CommitteeMemberCreateOpType:
		var op CommitteeMemberCreateOperation
		err := decodeBody(pair[1], &op)
		return op, err
	case CommitteeMemberUpdateOpType:
		var op CommitteeMemberUpdateOperation
		err := decodeBody(pair[1], &op)
		return op, err
	case CommitteeMemberUpdateGlobalParametersOpType:
		var op CommitteeMemberUpdateGlobalParametersOperation
		err := decodeBody(pair[1], &op)
		return op, err
	case CommitteeMemberIssueConstructionCapitalOpType:
		var op CommitteeMemberIssueConstructionCapitalOperation
		err := decodeBody(pair[1], &op)
		return op, err
	case CommitteeMemberGrantInstantPaybackOpType:
		var op CommitteeMemberGrantInstantPaybackOperation
		err := decodeBody(pair[1], &op)
		return op, err
	}
	return nil, fmt.Errorf("%w: unknown type %d", ErrInvalidOperation, uint16(t))
}

func decodeBody(raw json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOperation, err.Error())
	}
	return nil
}
