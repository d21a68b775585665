package committee

import (
	"govledger/state/objectstore"
	"govledger/state/protocol"
)

type Member struct {
	objectstore.Base
	CommitteeMemberAccount protocol.ObjectID `json:"committee_member_account"`
	VoteID                 protocol.VoteID   `json:"vote_id"`
	URL                    string            `json:"url"`
}

func (m *Member) Clone() objectstore.Object {
	c := *m
	return &c
}
