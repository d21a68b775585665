package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
	"govledger/engine/library"
	"govledger/messaging/blocks"
	"govledger/messaging/conductor"
	"govledger/state/protocol"
)

const (
	KindTransaction         = 640800
	KindProposedTransaction = 640801
)

var (
	ErrUnsupportedKind   = errors.New("unsupported event kind")
	ErrBadSignature      = errors.New("invalid event signature")
	ErrUntrustedProposer = errors.New("proposal results must come from a trusted proposer")
	ErrOpTagMismatch     = errors.New("op tags do not match the transaction")
)

// Decoder turns signed nostr events into transaction envelopes. Only the
// listed proposer pubkeys may publish proposed transactions.
type Decoder struct {
	proposers map[library.Account]struct{}
}

func NewDecoder(proposers ...library.Account) *Decoder {
	d := &Decoder{proposers: make(map[library.Account]struct{})}
	for _, p := range proposers {
		d.proposers[p] = struct{}{}
	}
	return d
}

func (d *Decoder) Decode(event nostr.Event) (conductor.Envelope, error) {
	if event.Kind != KindTransaction && event.Kind != KindProposedTransaction {
		return conductor.Envelope{}, fmt.Errorf("%w: %d", ErrUnsupportedKind, event.Kind)
	}
	if ok, err := event.CheckSignature(); err != nil || !ok {
		return conductor.Envelope{}, fmt.Errorf("%w: %s", ErrBadSignature, event.ID)
	}
	proposed := event.Kind == KindProposedTransaction
	if proposed {
		if _, ok := d.proposers[event.PubKey]; !ok {
			return conductor.Envelope{}, fmt.Errorf("%w: %s", ErrUntrustedProposer, event.PubKey)
		}
	}
	var tx protocol.Transaction
	if err := json.Unmarshal([]byte(event.Content), &tx); err != nil {
		return conductor.Envelope{}, fmt.Errorf("event %s: %w", event.ID, err)
	}
	opTags := library.GetAllTags(event, "op")
	if len(opTags) != len(tx.Operations) {
		return conductor.Envelope{}, fmt.Errorf("%w: %d tags, %d operations", ErrOpTagMismatch, len(opTags), len(tx.Operations))
	}
	for i, op := range tx.Operations {
		if opTags[i] != strconv.Itoa(int(op.Type())) {
			return conductor.Envelope{}, fmt.Errorf("%w: operation %d is %s", ErrOpTagMismatch, i, op.Type())
		}
	}
	env := conductor.Envelope{Transaction: tx, Proposed: proposed}
	if proposed {
		env.ProposalID = event.ID
	}
	return env, nil
}

// Encode builds the unsigned event carrying tx. Every operation type is also
// listed in an "op" tag so relays can filter on it.
func Encode(tx protocol.Transaction, proposed bool) (nostr.Event, error) {
	b, err := json.Marshal(tx)
	if err != nil {
		return nostr.Event{}, err
	}
	kind := KindTransaction
	if proposed {
		kind = KindProposedTransaction
	}
	tags := nostr.Tags{}
	for _, op := range tx.Operations {
		tags = append(tags, nostr.Tag{"op", strconv.Itoa(int(op.Type())), op.Type().String()})
	}
	return nostr.Event{
		Kind:    kind,
		Tags:    tags,
		Content: string(b),
	}, nil
}

// Assemble orders the transaction events of a block by creation time, then
// id, and decodes them. Events that fail to decode are skipped and reported.
func (d *Decoder) Assemble(header blocks.Header, events []nostr.Event) (conductor.Block, []error) {
	sorted := slices.Clone(events)
	slices.SortFunc(sorted, func(a, b nostr.Event) bool {
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
	block := conductor.Block{
		Number:       header.Height,
		ID:           header.Hash,
		Timestamp:    header.Time,
		Transactions: []conductor.Envelope{},
	}
	var errs []error
	for _, e := range sorted {
		env, err := d.Decode(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		block.Transactions = append(block.Transactions, env)
	}
	return block, errs
}
