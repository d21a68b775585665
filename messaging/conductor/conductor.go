package conductor

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"govledger/engine/library"
	"govledger/messaging/blocks"
	"govledger/state/chain"
	"govledger/state/evaluator"
	"govledger/state/replay"
)

var (
	ErrTransactionExpired = errors.New("transaction expired")
	ErrEmptyTransaction   = errors.New("transaction has no operations")
	ErrMissingExpiration  = errors.New("direct transactions must set an expiration")
	ErrMissingProposalID  = errors.New("proposed transactions must name their proposal")
)

// Conductor applies blocks to the database one at a time. Each block runs in
// its own undo session and each transaction in a session nested inside it, so
// a failed transaction leaves no trace while its block carries on.
type Conductor struct {
	db         *chain.Database
	dispatcher *evaluator.Dispatcher
	tracker    *blocks.Tracker
	pending    *library.Queue[Block]
	mu         *deadlock.Mutex

	// OnCommit, when set, is called after every committed block.
	OnCommit func(BlockReceipt)
}

func New(db *chain.Database, dispatcher *evaluator.Dispatcher, tracker *blocks.Tracker) *Conductor {
	if tracker == nil {
		tracker = blocks.NewTracker()
	}
	return &Conductor{
		db:         db,
		dispatcher: dispatcher,
		tracker:    tracker,
		pending:    library.NewQueue[Block](8),
		mu:         &deadlock.Mutex{},
	}
}

func (c *Conductor) Database() *chain.Database {
	return c.db
}

// Submit queues a block for ProcessPending.
func (c *Conductor) Submit(b Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.Push(b)
}

// ProcessPending applies queued blocks in arrival order. It stops at the first
// block that cannot be applied; that block is dropped.
func (c *Conductor) ProcessPending() ([]BlockReceipt, error) {
	var receipts []BlockReceipt
	for {
		c.mu.Lock()
		b, ok := c.pending.Pop()
		c.mu.Unlock()
		if !ok {
			return receipts, nil
		}
		r, err := c.ApplyBlock(b)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, r)
	}
}

// ApplyBlock advances ledger time to the block's timestamp and applies its
// transactions in order. Only a bad header fails the block.
func (c *Conductor) ApplyBlock(b Block) (BlockReceipt, error) {
	done := library.ValidateSaneExecutionTime()
	defer done()

	header := blocks.Header{Height: b.Number, Hash: b.ID, Time: b.Timestamp}
	if err := c.tracker.Check(header); err != nil {
		return BlockReceipt{}, fmt.Errorf("block %d: %w", b.Number, err)
	}
	store := c.db.Store
	cp := store.BeginTransaction()
	if err := c.db.Globals.AdvanceHead(b.Number, b.ID, b.Timestamp); err != nil {
		if undoErr := store.UndoTo(cp); undoErr != nil {
			library.LogCLI(undoErr.Error(), 0)
		}
		return BlockReceipt{}, fmt.Errorf("block %d: %w", b.Number, err)
	}
	receipt := BlockReceipt{Number: b.Number}
	for _, env := range b.Transactions {
		r := c.applyTransaction(env, b.Number)
		if r.Applied() {
			library.LogCLI(fmt.Sprintf("transaction %s applied in block %d", r.TransactionID, b.Number), 3)
		} else {
			library.LogCLI(fmt.Sprintf("transaction %s rejected in block %d: %s", r.TransactionID, b.Number, r.Error), 2)
		}
		receipt.Receipts = append(receipt.Receipts, r)
	}
	if err := store.CommitTransaction(); err != nil {
		return BlockReceipt{}, err
	}
	if err := c.tracker.Accept(header); err != nil {
		library.LogCLI(err.Error(), 1)
	}
	digest, err := c.db.Digest()
	if err != nil {
		return BlockReceipt{}, err
	}
	receipt.Digest = digest
	library.LogCLI(fmt.Sprintf("block %d committed with %d transactions, state %s", b.Number, len(b.Transactions), digest), 4)
	if c.OnCommit != nil {
		c.OnCommit(receipt)
	}
	return receipt, nil
}

func (c *Conductor) applyTransaction(env Envelope, block uint64) Receipt {
	id, err := env.ID()
	if err != nil {
		return Receipt{Error: err.Error()}
	}
	results, err := c.ApplyTransaction(env, block)
	if err != nil {
		return Receipt{TransactionID: id, Error: err.Error()}
	}
	return Receipt{TransactionID: id, Results: results}
}

// admit runs the checks that need no evaluator and returns the replay id.
func (c *Conductor) admit(env Envelope) (library.Sha256, error) {
	tx := env.Transaction
	id, err := env.ID()
	if err != nil {
		return "", err
	}
	if len(tx.Operations) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyTransaction, id)
	}
	if c.db.Replay.Seen(id) {
		return "", fmt.Errorf("%w: %s", replay.ErrDuplicateTransaction, id)
	}
	now, err := c.db.HeadBlockTime()
	if err != nil {
		return "", err
	}
	if !tx.Expiration.IsZero() && now.After(tx.Expiration) {
		return "", fmt.Errorf("%w: %s expired at %s", ErrTransactionExpired, id, tx.Expiration)
	}
	return id, nil
}

// dispatchAll runs the operations of env in order inside the caller's undo
// session and stops at the first failure.
func (c *Conductor) dispatchAll(env Envelope, id library.Sha256, block uint64) ([]evaluator.Result, error) {
	ctx := &evaluator.Context{
		DB:  c.db,
		Trx: &evaluator.TransactionState{IsProposed: env.Proposed, BlockNumber: block},
	}
	results := make([]evaluator.Result, 0, len(env.Transaction.Operations))
	for i, op := range env.Transaction.Operations {
		res, err := c.dispatcher.Dispatch(ctx, op)
		if err != nil {
			return nil, &TransactionError{TransactionID: id, Index: i, Err: err}
		}
		results = append(results, res)
	}
	return results, nil
}

// ApplyTransaction runs every operation of env in order. Either all of them
// take effect or, on the first failure, none do.
func (c *Conductor) ApplyTransaction(env Envelope, block uint64) ([]evaluator.Result, error) {
	id, err := c.admit(env)
	if err != nil {
		return nil, err
	}
	store := c.db.Store
	cp := store.BeginTransaction()
	results, err := c.dispatchAll(env, id, block)
	if err == nil {
		err = c.db.Replay.Record(id, block)
	}
	if err != nil {
		if undoErr := store.UndoTo(cp); undoErr != nil {
			library.LogCLI(undoErr.Error(), 0)
		}
		return nil, err
	}
	if err := store.CommitTransaction(); err != nil {
		return nil, err
	}
	return results, nil
}

// Validate applies env against current state the way ApplyTransaction would
// and then undoes it, so later operations see the effects of earlier ones.
func (c *Conductor) Validate(env Envelope) error {
	id, err := c.admit(env)
	if err != nil {
		return err
	}
	dyn, err := c.db.Globals.Dynamic()
	if err != nil {
		return err
	}
	store := c.db.Store
	cp := store.BeginTransaction()
	_, err = c.dispatchAll(env, id, dyn.HeadBlockNumber+1)
	if undoErr := store.UndoTo(cp); undoErr != nil {
		library.LogCLI(undoErr.Error(), 0)
		if err == nil {
			err = undoErr
		}
	}
	return err
}

// Run applies blocks from in until terminate is closed.
func (c *Conductor) Run(in <-chan Block, terminate <-chan struct{}) {
	for {
		select {
		case b, ok := <-in:
			if !ok {
				return
			}
			c.Submit(b)
			if _, err := c.ProcessPending(); err != nil {
				library.LogCLI(err.Error(), 1)
			}
		case <-terminate:
			return
		}
	}
}
