package conductor

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govledger/state/chain"
	"govledger/state/evaluator"
	"govledger/state/governance"
	"govledger/state/protocol"
	"govledger/state/replay"
)

var (
	init0   = protocol.AccountID(7)
	bob     = protocol.AccountID(8)
	genesis = time.Date(2018, 6, 30, 0, 0, 0, 0, time.UTC)
)

func newConductor(t *testing.T) *Conductor {
	t.Helper()
	db, err := chain.New(chain.Genesis{
		InitialTimestamp: genesis,
		InitialAccounts: []chain.GenesisAccount{
			{Name: "init0", LifetimeMember: true},
			{Name: "bob"},
		},
		ConstructionCapital: 1000000,
	}, protocol.ObjectID{})
	require.NoError(t, err)
	d, err := governance.NewDispatcher()
	require.NoError(t, err)
	return New(db, d, nil)
}

func digest(t *testing.T, c *Conductor) string {
	t.Helper()
	d, err := c.Database().Digest()
	require.NoError(t, err)
	return d
}

func tx(ops ...protocol.Operation) protocol.Transaction {
	return protocol.Transaction{Expiration: genesis.Add(48 * time.Hour), Operations: ops}
}

func proposal(id string, ops ...protocol.Operation) Envelope {
	return Envelope{Transaction: protocol.Transaction{Operations: ops}, Proposed: true, ProposalID: id}
}

func TestTransactionIsAtomic(t *testing.T) {
	c := newConductor(t)
	before := digest(t, c)

	env := Envelope{Transaction: tx(
		protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0, URL: "u"},
		protocol.CommitteeMemberUpdateOperation{CommitteeMember: protocol.CommitteeMemberID(0), CommitteeMemberAccount: bob},
	)}
	_, err := c.ApplyTransaction(env, 1)
	require.Error(t, err)
	var te *TransactionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Index)
	assert.True(t, errors.Is(err, evaluator.ErrAuthorizationFailed))

	assert.Equal(t, before, digest(t, c))
	assert.Empty(t, c.Database().Committee.All())
	gp, err := c.Database().Globals.Global()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), gp.NextAvailableVoteID[protocol.VoteCommittee])
}

func TestTransactionAppliesInOrder(t *testing.T) {
	c := newConductor(t)
	env := Envelope{Transaction: tx(
		protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0, URL: "first"},
		protocol.CommitteeMemberUpdateOperation{
			CommitteeMember:        protocol.CommitteeMemberID(0),
			CommitteeMemberAccount: init0,
			NewURL:                 func() *string { s := "second"; return &s }(),
		},
	)}
	results, err := c.ApplyTransaction(env, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].NewObject)
	assert.Nil(t, results[1].NewObject)

	m, err := c.Database().Committee.Get(*results[0].NewObject)
	require.NoError(t, err)
	assert.Equal(t, "second", m.URL)
}

func TestReplayAndExpiry(t *testing.T) {
	c := newConductor(t)
	env := Envelope{Transaction: tx(protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0})}
	_, err := c.ApplyTransaction(env, 1)
	require.NoError(t, err)
	_, err = c.ApplyTransaction(env, 2)
	assert.True(t, errors.Is(err, replay.ErrDuplicateTransaction))

	expired := Envelope{Transaction: protocol.Transaction{
		Expiration: genesis.Add(-time.Second),
		Operations: []protocol.Operation{protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0, URL: "x"}},
	}}
	_, err = c.ApplyTransaction(expired, 1)
	assert.True(t, errors.Is(err, ErrTransactionExpired))

	_, err = c.ApplyTransaction(Envelope{Transaction: tx()}, 1)
	assert.True(t, errors.Is(err, ErrEmptyTransaction))

	unbounded := Envelope{Transaction: protocol.Transaction{
		Operations: []protocol.Operation{protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0}},
	}}
	_, err = c.ApplyTransaction(unbounded, 1)
	assert.True(t, errors.Is(err, ErrMissingExpiration))

	anonymous := proposal("", protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: true})
	_, err = c.ApplyTransaction(anonymous, 1)
	assert.True(t, errors.Is(err, ErrMissingProposalID))
}

func TestRepeatedProposalsAreNotReplays(t *testing.T) {
	c := newConductor(t)
	grant := protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: true}
	revoke := protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: false}

	_, err := c.ApplyTransaction(proposal("p1", grant), 1)
	require.NoError(t, err)
	_, err = c.ApplyTransaction(proposal("p2", revoke), 1)
	require.NoError(t, err)
	_, err = c.ApplyTransaction(proposal("p3", grant), 1)
	require.NoError(t, err)
	a, err := c.Database().Accounts.Get(bob)
	require.NoError(t, err)
	assert.True(t, a.InstantPaybackExpiration.After(genesis))

	_, err = c.ApplyTransaction(proposal("p1", grant), 2)
	assert.True(t, errors.Is(err, replay.ErrDuplicateTransaction))
}

func TestApplyBlock(t *testing.T) {
	c := newConductor(t)
	var committed []BlockReceipt
	c.OnCommit = func(r BlockReceipt) {
		committed = append(committed, r)
	}

	issue := protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: bob, Amount: 500}
	b := Block{
		Number:    1,
		ID:        "b1",
		Timestamp: time.Date(2018, 6, 30, 23, 59, 59, 0, time.UTC),
		Transactions: []Envelope{
			{Transaction: tx(issue)},
			proposal("p-issue", issue),
			proposal("p-grant", protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: true}),
		},
	}
	r, err := c.ApplyBlock(b)
	require.NoError(t, err)
	require.Len(t, r.Receipts, 3)
	assert.False(t, r.Receipts[0].Applied())
	assert.Contains(t, r.Receipts[0].Error, "not authorized directly")
	assert.True(t, r.Receipts[1].Applied())
	assert.True(t, r.Receipts[2].Applied())
	assert.Equal(t, digest(t, c), r.Digest)
	require.Len(t, committed, 1)

	db := c.Database()
	assert.Equal(t, int64(500), db.Balances.Get(bob, protocol.BaseAsset))
	a, err := db.Accounts.Get(bob)
	require.NoError(t, err)
	assert.Equal(t, b.Timestamp.Add(365*24*time.Hour), a.InstantPaybackExpiration)

	now, err := db.HeadBlockTime()
	require.NoError(t, err)
	assert.Equal(t, b.Timestamp, now)
}

func TestIssuanceClosesWithLedgerTime(t *testing.T) {
	c := newConductor(t)
	issue := proposal("p-late", protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: bob, Amount: 500})
	r, err := c.ApplyBlock(Block{
		Number:       1,
		Timestamp:    time.Date(2018, 7, 1, 0, 0, 1, 0, time.UTC),
		Transactions: []Envelope{issue},
	})
	require.NoError(t, err)
	assert.Contains(t, r.Receipts[0].Error, "issuance window closed")
	assert.Equal(t, int64(0), c.Database().Balances.Get(bob, protocol.BaseAsset))
	assert.Equal(t, int64(1000000), c.Database().Balances.Get(protocol.ConstructionCapitalAccount, protocol.BaseAsset))
}

func TestBadHeaderLeavesStateUntouched(t *testing.T) {
	c := newConductor(t)
	_, err := c.ApplyBlock(Block{Number: 1, Timestamp: genesis.Add(time.Minute)})
	require.NoError(t, err)
	before := digest(t, c)

	_, err = c.ApplyBlock(Block{Number: 1, Timestamp: genesis.Add(2 * time.Minute)})
	assert.Error(t, err)
	_, err = c.ApplyBlock(Block{Number: 2, Timestamp: genesis})
	assert.Error(t, err)
	assert.Equal(t, before, digest(t, c))
	assert.Equal(t, 0, c.Database().Store.Depth())
}

func TestProcessPending(t *testing.T) {
	c := newConductor(t)
	for i := uint64(1); i <= 3; i++ {
		c.Submit(Block{Number: i, Timestamp: genesis.Add(time.Duration(i) * time.Second)})
	}
	receipts, err := c.ProcessPending()
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	assert.Equal(t, uint64(3), receipts[2].Number)

	receipts, err = c.ProcessPending()
	require.NoError(t, err)
	assert.Empty(t, receipts)
}

func TestValidateDoesNotApply(t *testing.T) {
	c := newConductor(t)
	before := digest(t, c)
	env := Envelope{Transaction: tx(protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0})}
	require.NoError(t, c.Validate(env))
	assert.Equal(t, before, digest(t, c))

	bad := Envelope{Transaction: tx(protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: bob})}
	assert.True(t, errors.Is(c.Validate(bad), evaluator.ErrPrerequisiteNotMet))
	assert.Equal(t, before, digest(t, c))
	assert.Equal(t, 0, c.Database().Store.Depth())
}

func TestValidateAgreesWithApply(t *testing.T) {
	c := newConductor(t)
	dependent := Envelope{Transaction: tx(
		protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0, URL: "first"},
		protocol.CommitteeMemberUpdateOperation{
			CommitteeMember:        protocol.CommitteeMemberID(0),
			CommitteeMemberAccount: init0,
			NewURL:                 func() *string { s := "second"; return &s }(),
		},
	)}
	before := digest(t, c)
	require.NoError(t, c.Validate(dependent))
	assert.Equal(t, before, digest(t, c))
	assert.Empty(t, c.Database().Committee.All())

	_, err := c.ApplyTransaction(dependent, 1)
	require.NoError(t, err)
	assert.True(t, errors.Is(c.Validate(dependent), replay.ErrDuplicateTransaction))
}

func TestBlockJSON(t *testing.T) {
	raw := `{
		"number":    1,
		"id":        "b1",
		"timestamp": "2018-06-30T12:00:00Z",
		"transactions": [
			{"transaction": {"expiration": "2018-07-02T00:00:00Z", "operations": [
				[29, {"fee": {"amount": 0, "asset_id": "1.3.0"}, "committee_member_account": "1.2.7", "url": "https://init0"}]
			]}},
			{"proposed": true, "proposal_id": "p1", "transaction": {"expiration": "0001-01-01T00:00:00Z", "operations": [
				[45, {"fee": {"amount": 0, "asset_id": "1.3.0"}, "account_id": "1.2.8", "grant": true}]
			]}}
		]
	}`
	var b Block
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	require.Len(t, b.Transactions, 2)
	assert.True(t, b.Transactions[1].Proposed)

	c := newConductor(t)
	r, err := c.ApplyBlock(b)
	require.NoError(t, err)
	for _, rc := range r.Receipts {
		assert.True(t, rc.Applied(), rc.Error)
	}
	ids := c.Database().Committee.ByAccount(init0)
	assert.Len(t, ids, 1)
}
