package db

// KVStore is the flat key-value contract the engine persists through. Keys are
// namespaced by the caller with a one-byte prefix per component; the store
// itself knows nothing about transactions, atomicity of multi-key updates is
// provided by batches.
type KVStore interface {
	Writer
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	NewBatch() Batch
	NewIterator(start, end []byte) (Iterator, error)
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Batch is an atomic group of writes. All operations in a batch become
// visible together on Commit, or not at all.
type Batch interface {
	Writer
	Delete(key []byte) error
	Commit() error
	Close() error
}

// Iterator walks a key range in ascending key order.
// Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}
