package replay

import (
	"govledger/engine/library"
	"govledger/state/objectstore"
)

var AppliedTransactionKind = objectstore.Kind{Space: objectstore.ImplementationSpace, Type: 7}

// AppliedTransaction marks a transaction id as spent.
type AppliedTransaction struct {
	objectstore.Base
	TransactionID library.Sha256 `json:"trx_id"`
	BlockNumber   uint64         `json:"block_num"`
}

func (a *AppliedTransaction) Clone() objectstore.Object {
	c := *a
	return &c
}

type Mapped map[library.Sha256]uint64
