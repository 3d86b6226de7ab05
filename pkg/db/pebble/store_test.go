package pebble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *KVStore {
	t.Helper()
	store, err := NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func Test_PutGetDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put([]byte("key"), []byte("value")))

	got, err := store.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)

	require.NoError(t, store.Delete([]byte("key")))
	_, err = store.Get([]byte("key"))
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_GetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get([]byte("nope"))
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_GetCopiesValue(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put([]byte("key"), []byte("value")))

	got, err := store.Get([]byte("key"))
	require.NoError(t, err)
	got[0] = 'x'

	again, err := store.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), again)
}

func Test_DoubleClose(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
