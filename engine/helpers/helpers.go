package helpers

import (
	"time"

	"github.com/nbd-wtf/go-nostr"
	"govledger/engine/actors"
	"govledger/engine/library"
)

// SignAsNode stamps e with the current time and signs it with the node wallet.
func SignAsNode(e nostr.Event) (nostr.Event, error) {
	e.CreatedAt = nostr.Timestamp(time.Now().Unix())
	err := library.SignEvent(&e, actors.MyWallet())
	return e, err
}
