package ingest

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"govledger/engine/library"
	"govledger/messaging/blocks"
	"govledger/messaging/conductor"
)

// Collector buffers transaction events until a block header arrives, then
// emits the assembled block.
type Collector struct {
	decoder *Decoder
	tracker *blocks.Tracker
	pending map[library.Sha256]nostr.Event
	mu      *deadlock.Mutex
}

func NewCollector(decoder *Decoder, tracker *blocks.Tracker) *Collector {
	return &Collector{
		decoder: decoder,
		tracker: tracker,
		pending: make(map[library.Sha256]nostr.Event),
		mu:      &deadlock.Mutex{},
	}
}

// HandleEvent returns a block when event is a header the tracker accepts.
func (c *Collector) HandleEvent(event nostr.Event) (conductor.Block, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch event.Kind {
	case KindTransaction, KindProposedTransaction:
		c.pending[event.ID] = event
		return conductor.Block{}, false, nil
	case blocks.KindBlockHeader:
		h, err := blocks.HeaderFromEvent(event)
		if err != nil {
			return conductor.Block{}, false, err
		}
		if err := c.tracker.Check(h); err != nil {
			return conductor.Block{}, false, err
		}
		var events []nostr.Event
		for _, e := range c.pending {
			if e.CreatedAt.Time().After(h.Time) {
				continue
			}
			events = append(events, e)
			delete(c.pending, e.ID)
		}
		block, errs := c.decoder.Assemble(h, events)
		for _, err := range errs {
			library.LogCLI(err.Error(), 2)
		}
		return block, true, nil
	}
	return conductor.Block{}, false, fmt.Errorf("%w: %d", ErrUnsupportedKind, event.Kind)
}

func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Run feeds events from in through HandleEvent and sends completed blocks to
// out until terminate is closed.
func (c *Collector) Run(in <-chan nostr.Event, out chan<- conductor.Block, terminate <-chan struct{}) {
	for {
		select {
		case e := <-in:
			b, ok, err := c.HandleEvent(e)
			if err != nil {
				library.LogCLI(err.Error(), 3)
				continue
			}
			if ok {
				select {
				case out <- b:
				case <-terminate:
					return
				}
			}
		case <-terminate:
			return
		}
	}
}
