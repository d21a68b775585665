package globals

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govledger/state/objectstore"
	"govledger/state/protocol"
)

var genesisTime = time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T) (*objectstore.Store, *Registry) {
	t.Helper()
	store := objectstore.New()
	require.NoError(t, Register(store))
	r, err := Init(store, protocol.DefaultChainParameters(), genesisTime)
	require.NoError(t, err)
	return store, r
}

func TestInitCreatesSingletons(t *testing.T) {
	_, r := newRegistry(t)
	gp, err := r.Global()
	require.NoError(t, err)
	assert.Equal(t, GlobalPropertyID, gp.ID)
	assert.Equal(t, protocol.DefaultChainParameters(), gp.Parameters)
	assert.Nil(t, gp.PendingParameters)

	now, err := r.HeadBlockTime()
	require.NoError(t, err)
	assert.Equal(t, genesisTime, now)
}

func TestAllocateVoteIDIsMonotonic(t *testing.T) {
	_, r := newRegistry(t)
	seen := map[protocol.VoteID]bool{}
	var last uint32
	for i := 0; i < 10; i++ {
		id, err := r.AllocateVoteID(protocol.VoteCommittee)
		require.NoError(t, err)
		assert.Equal(t, protocol.VoteCommittee, id.Category)
		assert.False(t, seen[id], "duplicate vote id %s", id)
		if i > 0 {
			assert.Greater(t, id.Instance, last)
		}
		seen[id] = true
		last = id.Instance
	}

	w, err := r.AllocateVoteID(protocol.VoteWitness)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), w.Instance, "categories count independently")

	gp, err := r.Global()
	require.NoError(t, err)
	assert.Equal(t, uint32(10), gp.NextAvailableVoteID[protocol.VoteCommittee])
}

func TestAllocateVoteIDRolledBackWithSession(t *testing.T) {
	store, r := newRegistry(t)
	cp := store.BeginTransaction()
	_, err := r.AllocateVoteID(protocol.VoteCommittee)
	require.NoError(t, err)
	require.NoError(t, store.UndoTo(cp))

	id, err := r.AllocateVoteID(protocol.VoteCommittee)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id.Instance)
}

func TestAllocateVoteIDRejectsUnknownCategory(t *testing.T) {
	_, r := newRegistry(t)
	_, err := r.AllocateVoteID(protocol.VoteCategoryCount)
	assert.Error(t, err)
}

func TestStageAndEnactParameters(t *testing.T) {
	_, r := newRegistry(t)

	enacted, err := r.Enact()
	require.NoError(t, err)
	assert.False(t, enacted)

	first := protocol.DefaultChainParameters()
	first.MaximumCommitteeCount = 11
	second := protocol.DefaultChainParameters()
	second.MaximumCommitteeCount = 21
	require.NoError(t, r.StageParameters(first))
	require.NoError(t, r.StageParameters(second))

	gp, err := r.Global()
	require.NoError(t, err)
	require.NotNil(t, gp.PendingParameters)
	assert.Equal(t, uint16(21), gp.PendingParameters.MaximumCommitteeCount)
	assert.Equal(t, uint16(1001), gp.Parameters.MaximumCommitteeCount)

	enacted, err = r.Enact()
	require.NoError(t, err)
	assert.True(t, enacted)
	gp, err = r.Global()
	require.NoError(t, err)
	assert.Nil(t, gp.PendingParameters)
	assert.Equal(t, uint16(21), gp.Parameters.MaximumCommitteeCount)
}

func TestCloneDoesNotSharePendingParameters(t *testing.T) {
	p := protocol.DefaultChainParameters()
	gp := &GlobalProperty{PendingParameters: &p}
	c := gp.Clone().(*GlobalProperty)
	c.PendingParameters.BlockInterval = 99
	assert.Equal(t, uint8(5), gp.PendingParameters.BlockInterval)
}

func TestAdvanceHead(t *testing.T) {
	_, r := newRegistry(t)
	at := genesisTime.Add(5 * time.Second)
	require.NoError(t, r.AdvanceHead(1, "b1", at))

	d, err := r.Dynamic()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.HeadBlockNumber)
	assert.Equal(t, "b1", d.HeadBlockID)
	assert.Equal(t, at, d.Time)

	err = r.AdvanceHead(1, "again", at.Add(time.Second))
	assert.True(t, errors.Is(err, ErrHeadNotAdvancing))
	err = r.AdvanceHead(2, "past", at.Add(-time.Second))
	assert.True(t, errors.Is(err, ErrHeadNotAdvancing))
	require.NoError(t, r.AdvanceHead(2, "same-second", at))
}
