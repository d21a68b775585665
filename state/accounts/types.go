package accounts

import (
	"time"

	"govledger/state/objectstore"
	"govledger/state/protocol"
)

// Account is a ledger participant. InstantPaybackExpiration is
// protocol.MinTimestamp when the privilege was never granted or was revoked.
type Account struct {
	objectstore.Base
	Name                     string    `json:"name"`
	LifetimeMember           bool      `json:"lifetime_member"`
	InstantPaybackExpiration time.Time `json:"instant_payback_expiration"`
}

func (a *Account) Clone() objectstore.Object {
	c := *a
	return &c
}

// HasInstantPayback reports whether the privilege is still live at now.
func (a *Account) HasInstantPayback(now time.Time) bool {
	return a.InstantPaybackExpiration.After(now)
}

type Mapped map[string]protocol.ObjectID
