package globals

import (
	"time"

	"govledger/state/objectstore"
	"govledger/state/protocol"
)

var (
	GlobalPropertyKind        = objectstore.Kind{Space: objectstore.ImplementationSpace, Type: 0}
	DynamicGlobalPropertyKind = objectstore.Kind{Space: objectstore.ImplementationSpace, Type: 1}
)

// GlobalPropertyID and DynamicGlobalPropertyID are the singleton ids; both are
// created by Init before anything else touches the store.
var (
	GlobalPropertyID        = GlobalPropertyKind.ID(0)
	DynamicGlobalPropertyID = DynamicGlobalPropertyKind.ID(0)
)

// GlobalProperty holds the chain parameters in force, any parameters staged
// for the next maintenance, and the next free vote id per category.
type GlobalProperty struct {
	objectstore.Base
	Parameters          protocol.ChainParameters           `json:"parameters"`
	PendingParameters   *protocol.ChainParameters          `json:"pending_parameters,omitempty"`
	NextAvailableVoteID [protocol.VoteCategoryCount]uint32 `json:"next_available_vote_id"`
}

func (g *GlobalProperty) Clone() objectstore.Object {
	c := *g
	if g.PendingParameters != nil {
		p := *g.PendingParameters
		c.PendingParameters = &p
	}
	return &c
}

// DynamicGlobalProperty tracks the head block, which is where ledger time
// comes from.
type DynamicGlobalProperty struct {
	objectstore.Base
	HeadBlockNumber uint64    `json:"head_block_number"`
	HeadBlockID     string    `json:"head_block_id"`
	Time            time.Time `json:"time"`
}

func (d *DynamicGlobalProperty) Clone() objectstore.Object {
	c := *d
	return &c
}

// NextVoteID hands out the next vote id of the category and advances the
// counter. Only call it on the copy handed to a store mutator.
func NextVoteID(gp *GlobalProperty, category protocol.VoteCategory) protocol.VoteID {
	id := protocol.VoteID{Category: category, Instance: gp.NextAvailableVoteID[category]}
	gp.NextAvailableVoteID[category]++
	return id
}
