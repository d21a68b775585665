package conductor

import (
	"fmt"
	"time"

	"govledger/engine/library"
	"govledger/state/evaluator"
	"govledger/state/protocol"
)

// Envelope is a transaction as it appears in a block. Proposed is set by the
// proposal machinery for transactions that carry an approved proposal's
// payload; users cannot set it. ProposalID names that proposal.
type Envelope struct {
	Transaction protocol.Transaction `json:"transaction"`
	Proposed    bool                 `json:"proposed,omitempty"`
	ProposalID  library.Sha256       `json:"proposal_id,omitempty"`
}

// ID is the replay key of env. Direct transactions are keyed by their
// content, which includes a mandatory expiration. Proposed payloads carry no
// expiration, so the proposal id is folded in and the same payload may pass
// again under a later proposal.
func (env Envelope) ID() (library.Sha256, error) {
	id, err := env.Transaction.ID()
	if err != nil {
		return "", err
	}
	if !env.Proposed {
		if env.Transaction.Expiration.IsZero() {
			return "", fmt.Errorf("%w: %s", ErrMissingExpiration, id)
		}
		return id, nil
	}
	if env.ProposalID == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingProposalID, id)
	}
	return library.Sha256Sum(id + ":" + env.ProposalID), nil
}

type Block struct {
	Number       uint64         `json:"number"`
	ID           library.Sha256 `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Transactions []Envelope     `json:"transactions"`
}

type Receipt struct {
	TransactionID library.Sha256     `json:"trx_id"`
	Results       []evaluator.Result `json:"results,omitempty"`
	Error         string             `json:"error,omitempty"`
}

func (r Receipt) Applied() bool {
	return r.Error == ""
}

type BlockReceipt struct {
	Number   uint64         `json:"number"`
	Receipts []Receipt      `json:"receipts"`
	Digest   library.Sha256 `json:"digest"`
}

// TransactionError names the operation that sank a transaction.
type TransactionError struct {
	TransactionID library.Sha256
	Index         int
	Err           error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s operation %d: %s", e.TransactionID, e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
