package blocks

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"govledger/engine/library"
)

// HeaderFromEvent reads a header announcement. The event must carry height,
// hash and time tags and a valid signature.
func HeaderFromEvent(event nostr.Event) (Header, error) {
	if event.Kind != KindBlockHeader {
		return Header{}, fmt.Errorf("invalid kind %d", event.Kind)
	}
	if ok, err := event.CheckSignature(); err != nil || !ok {
		return Header{}, fmt.Errorf("invalid signature on %s", event.ID)
	}
	hash, ok := library.GetFirstTag(event, "hash")
	if !ok {
		return Header{}, fmt.Errorf("failed to get block hash from event")
	}
	height, ok := library.GetFirstTag(event, "height")
	if !ok {
		return Header{}, fmt.Errorf("failed to get block height from event")
	}
	heightInt, err := strconv.ParseUint(height, 10, 64)
	if err != nil {
		return Header{}, err
	}
	blockTime, ok := library.GetFirstTag(event, "time")
	if !ok {
		return Header{}, fmt.Errorf("failed to get block time from event")
	}
	blockTimeInt, err := strconv.ParseInt(blockTime, 10, 64)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Height:   heightInt,
		Hash:     hash,
		Time:     time.Unix(blockTimeInt, 0).UTC(),
		Producer: event.PubKey,
	}, nil
}

// HandleEvent parses and accepts a header event.
func (t *Tracker) HandleEvent(event nostr.Event) (Header, error) {
	h, err := HeaderFromEvent(event)
	if err != nil {
		return Header{}, err
	}
	if err := t.Accept(h); err != nil {
		return Header{}, err
	}
	return h, nil
}

// HeaderEvent builds the unsigned announcement for h.
func HeaderEvent(h Header) nostr.Event {
	return nostr.Event{
		CreatedAt: nostr.Timestamp(h.Time.Unix()),
		Kind:      KindBlockHeader,
		Tags: nostr.Tags{
			nostr.Tag{"height", strconv.FormatUint(h.Height, 10)},
			nostr.Tag{"hash", h.Hash},
			nostr.Tag{"time", strconv.FormatInt(h.Time.Unix(), 10)},
		},
	}
}
