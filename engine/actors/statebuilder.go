package actors

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"govledger/engine/library"
)

// KindStateDigest announces the state digest a node reached after a block.
const KindStateDigest = 640820

type StateDigest struct {
	Height uint64         `json:"height"`
	Digest library.Sha256 `json:"digest"`
}

// StateDigestEvent builds and signs the announcement for one committed block.
func StateDigestEvent(d StateDigest, w library.Wallet) (nostr.Event, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nostr.Event{}, err
	}
	e := nostr.Event{
		PubKey:    w.Account,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      KindStateDigest,
		Tags: nostr.Tags{
			nostr.Tag{"height", strconv.FormatUint(d.Height, 10)},
			nostr.Tag{"digest", d.Digest},
		},
		Content: string(b),
	}
	return e, library.SignEvent(&e, w)
}
