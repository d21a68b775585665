package blocks

import (
	"time"

	"govledger/engine/library"
)

// KindBlockHeader is the nostr kind a block producer announces headers with.
const KindBlockHeader = 640810

type Header struct {
	Height   uint64          `json:"height"`
	Hash     library.Sha256  `json:"hash"`
	Time     time.Time       `json:"time"`
	Producer library.Account `json:"producer,omitempty"`
}

type Mapped map[uint64]Header
