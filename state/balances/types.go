package balances

import (
	"govledger/state/objectstore"
	"govledger/state/protocol"
)

var BalanceKind = objectstore.Kind{Space: objectstore.ImplementationSpace, Type: 5}

// Balance is the holding of one asset by one account.
type Balance struct {
	objectstore.Base
	Owner     protocol.ObjectID `json:"owner"`
	AssetType protocol.ObjectID `json:"asset_type"`
	Amount    int64             `json:"amount"`
}

func (b *Balance) Clone() objectstore.Object {
	c := *b
	return &c
}

type holding struct {
	owner protocol.ObjectID
	asset protocol.ObjectID
}

// Mapped is owner -> asset -> amount.
type Mapped map[protocol.ObjectID]map[protocol.ObjectID]int64
