package state

import (
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKV(t *testing.T) {
	parent := NewMemStore()
	require.NoError(t, parent.Set([]byte("a"), []byte("1")))

	cache := NewCacheKV(parent)
	require.NoError(t, cache.Set([]byte("b"), []byte("2")))
	require.NoError(t, cache.Set([]byte("a"), []byte("3")))
	assert.ErrorIs(t, cache.Set([]byte("c"), nil), ErrNilValue)

	val, err := cache.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)
	val, err = parent.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)
	val, err = parent.Get([]byte("b"))
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.Equal(t, 2, cache.Dirty())

	require.NoError(t, cache.Write())
	assert.Zero(t, cache.Dirty())
	val, err = parent.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)
	assert.Equal(t, 2, parent.Len())

	require.NoError(t, cache.Set([]byte("d"), []byte("4")))
	cache.Discard()
	val, err = cache.Get([]byte("d"))
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.Equal(t, 2, parent.Len())
}

func TestCacheKVCopiesValues(t *testing.T) {
	cache := NewCacheKV(NewMemStore())
	buf := []byte("x")
	require.NoError(t, cache.Set([]byte("k"), buf))
	buf[0] = 'y'
	val, err := cache.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), val)
}

func TestStateDBCommittedView(t *testing.T) {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()

	committed := db.Committed()
	val, err := committed.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.ErrorIs(t, committed.Set([]byte("k"), []byte("v")), ErrReadOnly)

	require.NoError(t, db.Set([]byte("k"), []byte("v1")))
	working := db.WorkingHash()
	hash, version, err := db.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, working, hash)
	assert.Equal(t, hash, db.Hash())

	require.NoError(t, db.Set([]byte("k"), []byte("v2")))
	val, err = db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), val)
	val, err = db.Committed().Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	db.Rollback()
	val, err = db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	assert.Equal(t, int64(1), db.Version())
}

func TestNonce(t *testing.T) {
	store := NewMemStore()
	addr := common.HexToAddress("0x01")

	n, err := Nonce(store, addr)
	require.NoError(t, err)
	assert.Zero(t, n)
	for want := uint64(1); want <= 3; want++ {
		next, err := IncrementNonce(store, addr)
		require.NoError(t, err)
		assert.Equal(t, want, next)
	}
	n, err = Nonce(store, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}
