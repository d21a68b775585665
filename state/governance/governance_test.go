package governance

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govledger/state/chain"
	"govledger/state/evaluator"
	"govledger/state/protocol"
)

var (
	init0 = protocol.AccountID(7)
	bob   = protocol.AccountID(8)
)

const reserveFunds = 1000000

type fixture struct {
	db         *chain.Database
	dispatcher *evaluator.Dispatcher
}

func newFixture(t *testing.T, at time.Time) *fixture {
	t.Helper()
	db, err := chain.New(chain.Genesis{
		InitialTimestamp: at,
		InitialAccounts: []chain.GenesisAccount{
			{Name: "init0", LifetimeMember: true},
			{Name: "bob"},
		},
		ConstructionCapital: reserveFunds,
	}, protocol.ObjectID{})
	require.NoError(t, err)
	d, err := NewDispatcher()
	require.NoError(t, err)
	return &fixture{db: db, dispatcher: d}
}

// run dispatches op inside its own undo session, the way a transaction would.
func (f *fixture) run(t *testing.T, proposed bool, op protocol.Operation) (evaluator.Result, error) {
	t.Helper()
	ctx := &evaluator.Context{DB: f.db, Trx: &evaluator.TransactionState{IsProposed: proposed}}
	cp := f.db.Store.BeginTransaction()
	res, err := f.dispatcher.Dispatch(ctx, op)
	if err != nil {
		require.NoError(t, f.db.Store.UndoTo(cp))
		return res, err
	}
	require.NoError(t, f.db.Store.CommitTransaction())
	return res, nil
}

func (f *fixture) digest(t *testing.T) string {
	t.Helper()
	d, err := f.db.Digest()
	require.NoError(t, err)
	return d
}

func strptr(s string) *string {
	return &s
}

var june = time.Date(2018, 6, 15, 0, 0, 0, 0, time.UTC)

func TestRegisterTwiceFails(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)
	assert.True(t, errors.Is(Register(d), evaluator.ErrDuplicateEvaluator))
}

func TestCommitteeMemberCreate(t *testing.T) {
	f := newFixture(t, june)

	res, err := f.run(t, false, protocol.CommitteeMemberCreateOperation{
		Fee:                    protocol.BaseAmount(10),
		CommitteeMemberAccount: init0,
		URL:                    "https://init0.example",
	})
	require.NoError(t, err)
	require.NotNil(t, res.NewObject)
	assert.Equal(t, protocol.CommitteeMemberID(0), *res.NewObject)

	m, err := f.db.Committee.Get(*res.NewObject)
	require.NoError(t, err)
	assert.Equal(t, init0, m.CommitteeMemberAccount)
	assert.Equal(t, "https://init0.example", m.URL)
	assert.Equal(t, protocol.VoteID{Category: protocol.VoteCommittee, Instance: 0}, m.VoteID)
	assert.Equal(t, []protocol.ObjectID{m.ID}, f.db.Committee.ByAccount(init0))
}

func TestCommitteeMemberCreateRequiresLifetimeMember(t *testing.T) {
	f := newFixture(t, june)
	before := f.digest(t)

	_, err := f.run(t, false, protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: bob})
	require.Error(t, err)
	assert.True(t, errors.Is(err, evaluator.ErrPrerequisiteNotMet))
	var e *evaluator.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: bob}, e.Operation)
	assert.Equal(t, before, f.digest(t))

	_, err = f.run(t, false, protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: protocol.AccountID(99)})
	assert.True(t, errors.Is(err, evaluator.ErrObjectNotFound))

	require.NoError(t, f.db.Accounts.UpgradeToLifetime(bob))
	_, err = f.run(t, false, protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: bob})
	assert.NoError(t, err)
}

func TestVoteIDsStrictlyIncrease(t *testing.T) {
	f := newFixture(t, june)
	var last *protocol.VoteID
	for i := 0; i < 5; i++ {
		res, err := f.run(t, false, protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0})
		require.NoError(t, err)
		m, err := f.db.Committee.Get(*res.NewObject)
		require.NoError(t, err)
		if last != nil {
			assert.Greater(t, m.VoteID.Instance, last.Instance)
		}
		v := m.VoteID
		last = &v
	}
	gp, err := f.db.Globals.Global()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), gp.NextAvailableVoteID[protocol.VoteCommittee])
}

func TestCommitteeMemberUpdate(t *testing.T) {
	f := newFixture(t, june)
	res, err := f.run(t, false, protocol.CommitteeMemberCreateOperation{CommitteeMemberAccount: init0, URL: "old"})
	require.NoError(t, err)
	member := *res.NewObject

	t.Run("wrong owner fails regardless of url", func(t *testing.T) {
		long := strings.Repeat("x", protocol.MaxURLLength+1)
		for _, url := range []*string{nil, strptr("evil"), &long} {
			before := f.digest(t)
			_, err := f.run(t, false, protocol.CommitteeMemberUpdateOperation{
				CommitteeMember:        member,
				CommitteeMemberAccount: bob,
				NewURL:                 url,
			})
			assert.True(t, errors.Is(err, evaluator.ErrAuthorizationFailed), "got %v", err)
			assert.Equal(t, before, f.digest(t))
		}
	})

	t.Run("absent url is a no-op", func(t *testing.T) {
		before := f.digest(t)
		_, err := f.run(t, false, protocol.CommitteeMemberUpdateOperation{
			CommitteeMember:        member,
			CommitteeMemberAccount: init0,
		})
		require.NoError(t, err)
		assert.Equal(t, before, f.digest(t))
	})

	t.Run("url replaced", func(t *testing.T) {
		_, err := f.run(t, false, protocol.CommitteeMemberUpdateOperation{
			CommitteeMember:        member,
			CommitteeMemberAccount: init0,
			NewURL:                 strptr("new"),
		})
		require.NoError(t, err)
		m, err := f.db.Committee.Get(member)
		require.NoError(t, err)
		assert.Equal(t, "new", m.URL)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := f.run(t, false, protocol.CommitteeMemberUpdateOperation{
			CommitteeMember:        protocol.CommitteeMemberID(42),
			CommitteeMemberAccount: init0,
		})
		assert.True(t, errors.Is(err, evaluator.ErrObjectNotFound))
	})

	t.Run("overlong url rejected", func(t *testing.T) {
		long := string(make([]byte, protocol.MaxURLLength+1))
		_, err := f.run(t, false, protocol.CommitteeMemberUpdateOperation{
			CommitteeMember:        member,
			CommitteeMemberAccount: init0,
			NewURL:                 &long,
		})
		assert.True(t, errors.Is(err, evaluator.ErrInvalidOperation))
	})
}

func TestProposalOnlyOperations(t *testing.T) {
	f := newFixture(t, june)
	params := protocol.DefaultChainParameters()
	params.MaximumCommitteeCount = 15
	ops := []protocol.Operation{
		protocol.CommitteeMemberUpdateGlobalParametersOperation{NewParameters: params},
		protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: bob, Amount: 100},
		protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: true},
	}
	for _, op := range ops {
		t.Run(op.Type().String(), func(t *testing.T) {
			before := f.digest(t)
			_, err := f.run(t, false, op)
			assert.True(t, errors.Is(err, evaluator.ErrNotAuthorizedDirectly))
			assert.Equal(t, before, f.digest(t))

			_, err = f.run(t, true, op)
			assert.NoError(t, err)
		})
	}
}

func TestProposalGuardWinsOverMalformedInput(t *testing.T) {
	f := newFixture(t, time.Date(2018, 7, 2, 0, 0, 0, 0, time.UTC))
	negative := protocol.BaseAmount(-1)
	ops := []protocol.Operation{
		protocol.CommitteeMemberUpdateGlobalParametersOperation{Fee: negative, NewParameters: protocol.DefaultChainParameters()},
		protocol.CommitteeMemberIssueConstructionCapitalOperation{Fee: negative, Receiver: protocol.AccountID(500), Amount: -5},
		protocol.CommitteeMemberGrantInstantPaybackOperation{Fee: negative, AccountID: protocol.AccountID(500), Grant: true},
	}
	for _, op := range ops {
		t.Run(op.Type().String(), func(t *testing.T) {
			before := f.digest(t)
			_, err := f.run(t, false, op)
			assert.True(t, errors.Is(err, evaluator.ErrNotAuthorizedDirectly), "got %v", err)
			assert.Equal(t, before, f.digest(t))
		})
	}
}

func TestUpdateGlobalParametersStagesPending(t *testing.T) {
	f := newFixture(t, june)
	first := protocol.DefaultChainParameters()
	first.BlockInterval = 3
	second := protocol.DefaultChainParameters()
	second.BlockInterval = 4

	for _, p := range []protocol.ChainParameters{first, second} {
		_, err := f.run(t, true, protocol.CommitteeMemberUpdateGlobalParametersOperation{NewParameters: p})
		require.NoError(t, err)
	}
	gp, err := f.db.Globals.Global()
	require.NoError(t, err)
	require.NotNil(t, gp.PendingParameters)
	assert.Equal(t, second, *gp.PendingParameters)
	assert.Equal(t, protocol.DefaultChainParameters(), gp.Parameters)
}

func TestIssueConstructionCapitalBeforeDeadline(t *testing.T) {
	f := newFixture(t, time.Date(2018, 6, 30, 23, 59, 59, 0, time.UTC))
	total := f.db.Balances.Total(protocol.BaseAsset)

	_, err := f.run(t, true, protocol.CommitteeMemberIssueConstructionCapitalOperation{
		Fee:      protocol.BaseAmount(10),
		Receiver: bob,
		Amount:   1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.db.Balances.Get(bob, protocol.BaseAsset))
	assert.Equal(t, int64(reserveFunds-1000), f.db.Balances.Get(protocol.ConstructionCapitalAccount, protocol.BaseAsset))
	assert.Equal(t, total, f.db.Balances.Total(protocol.BaseAsset))
}

func TestIssueConstructionCapitalAtDeadline(t *testing.T) {
	f := newFixture(t, IssuanceDeadline)
	_, err := f.run(t, true, protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: bob, Amount: 1})
	assert.NoError(t, err)
}

func TestIssueConstructionCapitalAfterDeadline(t *testing.T) {
	f := newFixture(t, time.Date(2018, 7, 1, 0, 0, 1, 0, time.UTC))
	before := f.digest(t)

	_, err := f.run(t, true, protocol.CommitteeMemberIssueConstructionCapitalOperation{
		Fee:      protocol.BaseAmount(10),
		Receiver: bob,
		Amount:   1000,
	})
	assert.True(t, errors.Is(err, evaluator.ErrIssuanceWindowClosed))
	assert.Equal(t, int64(0), f.db.Balances.Get(bob, protocol.BaseAsset))
	assert.Equal(t, int64(reserveFunds), f.db.Balances.Get(protocol.ConstructionCapitalAccount, protocol.BaseAsset))
	assert.Equal(t, before, f.digest(t))
}

func TestIssueConstructionCapitalChecks(t *testing.T) {
	f := newFixture(t, june)
	cases := []struct {
		name string
		op   protocol.CommitteeMemberIssueConstructionCapitalOperation
		kind error
	}{
		{
			name: "more than the reserve",
			op:   protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: bob, Amount: reserveFunds + 1},
			kind: evaluator.ErrInsufficientReserve,
		},
		{
			name: "unknown receiver",
			op:   protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: protocol.AccountID(500), Amount: 5},
			kind: evaluator.ErrObjectNotFound,
		},
		{
			name: "amount equal to fee",
			op:   protocol.CommitteeMemberIssueConstructionCapitalOperation{Fee: protocol.BaseAmount(10), Receiver: bob, Amount: 10},
			kind: evaluator.ErrFeeExceedsAmount,
		},
		{
			name: "negative fee",
			op:   protocol.CommitteeMemberIssueConstructionCapitalOperation{Fee: protocol.BaseAmount(-1), Receiver: bob, Amount: 10},
			kind: evaluator.ErrInvalidOperation,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			before := f.digest(t)
			_, err := f.run(t, true, c.op)
			assert.True(t, errors.Is(err, c.kind), "got %v", err)
			assert.Equal(t, before, f.digest(t))
		})
	}

	_, err := f.run(t, true, protocol.CommitteeMemberIssueConstructionCapitalOperation{Receiver: bob, Amount: reserveFunds})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.db.Balances.Get(protocol.ConstructionCapitalAccount, protocol.BaseAsset))
}

func TestGrantInstantPayback(t *testing.T) {
	f := newFixture(t, june)

	_, err := f.run(t, true, protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: true})
	require.NoError(t, err)
	a, err := f.db.Accounts.Get(bob)
	require.NoError(t, err)
	assert.Equal(t, june.Add(365*24*time.Hour), a.InstantPaybackExpiration)
	assert.True(t, a.HasInstantPayback(june))

	_, err = f.run(t, true, protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: bob, Grant: false})
	require.NoError(t, err)
	a, err = f.db.Accounts.Get(bob)
	require.NoError(t, err)
	assert.Equal(t, protocol.MinTimestamp, a.InstantPaybackExpiration)

	_, err = f.run(t, true, protocol.CommitteeMemberGrantInstantPaybackOperation{AccountID: protocol.AccountID(77), Grant: true})
	assert.True(t, errors.Is(err, evaluator.ErrObjectNotFound))
}
