package replay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govledger/engine/library"
	"govledger/state/objectstore"
)

func newGuard(t *testing.T) (*objectstore.Store, *Guard) {
	t.Helper()
	store := objectstore.New()
	require.NoError(t, Register(store))
	return store, New(store)
}

func TestRecordRejectsDuplicates(t *testing.T) {
	_, g := newGuard(t)
	id := library.Sha256Sum("trx-1")
	assert.False(t, g.Seen(id))
	require.NoError(t, g.Record(id, 3))
	assert.True(t, g.Seen(id))
	assert.True(t, errors.Is(g.Record(id, 4), ErrDuplicateTransaction))
	assert.Equal(t, Mapped{id: 3}, g.GetMap())
}

func TestUndoForgetsTransaction(t *testing.T) {
	store, g := newGuard(t)
	id := library.Sha256Sum("trx-2")
	cp := store.BeginTransaction()
	require.NoError(t, g.Record(id, 1))
	require.NoError(t, store.UndoTo(cp))
	assert.False(t, g.Seen(id))
	require.NoError(t, g.Record(id, 2))
}

func TestStateHashIsOrderIndependent(t *testing.T) {
	_, a := newGuard(t)
	_, b := newGuard(t)
	x, y := library.Sha256Sum("x"), library.Sha256Sum("y")
	require.NoError(t, a.Record(x, 1))
	require.NoError(t, a.Record(y, 1))
	require.NoError(t, b.Record(y, 1))
	require.NoError(t, b.Record(x, 1))
	assert.Equal(t, a.GetStateHash(), b.GetStateHash())
}
