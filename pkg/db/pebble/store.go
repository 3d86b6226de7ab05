package pebble

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

var (
	ErrClosed   = errors.New("kv store is closed")
	ErrNotFound = errors.New("key not found")
)

// KVStore implements db.KVStore on top of a pebble database.
type KVStore struct {
	db *pebble.DB
}

// NewKVStore opens an in-memory pebble instance. Used for tests and for
// ephemeral state that does not need to survive a restart.
func NewKVStore() (*KVStore, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &KVStore{db: db}, nil
}

// Open opens (creating if necessary) an on-disk pebble database at path.
func Open(path string) (*KVStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &KVStore{db: db}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// The returned slice is only valid until the closer is closed.
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *KVStore) Close() error {
	if err := p.db.Close(); err != nil && !errors.Is(err, pebble.ErrClosed) {
		return err
	}
	return nil
}
