package library

import (
	"crypto/sha256"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

func Sha256Sum(data interface{}) Sha256 {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	default:
		LogCLI("attempted to hash non-string or non-[]byte", 0)
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// SignEvent sets the pubkey and id of e and signs it with w.
func SignEvent(e *nostr.Event, w Wallet) error {
	e.PubKey = w.Account
	e.ID = e.GetID()
	return e.Sign(w.PrivateKey)
}
