// Package store persists the chain and its post-execution states in a
// key-value store. Keys are a one-byte kind prefix followed by a hash or a
// big-endian height.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/pkg/db"
	"github.com/loxadim/substrate/pkg/db/pebble"
)

var (
	ErrBlockNotFound  = errors.New("block not found")
	ErrHeaderNotFound = errors.New("header not found")
	ErrStateNotFound  = errors.New("state not found")
	ErrNoHead         = errors.New("chain has no head")
	ErrChainClosed    = errors.New("chain store is closed")
)

const (
	prefixHeader byte = iota + 1
	prefixBlock
	prefixState
	prefixHeight
	prefixHead
)

// Chain stores blocks, headers and serialized post-states, plus a
// height-to-hash index and the current head hash.
type Chain struct {
	db     db.KVStore
	closed atomic.Bool
}

// NewChain creates a chain store on top of kv.
func NewChain(kv db.KVStore) *Chain {
	return &Chain{db: kv}
}

// PutBlock stores a block, its header, its height index entry and the
// serialized post-execution state in one atomic batch, and moves the head
// to it.
func (c *Chain) PutBlock(b block.Block, postState []byte) error {
	if c.closed.Load() {
		return ErrChainClosed
	}

	headerHash, err := b.Header.Hash()
	if err != nil {
		return fmt.Errorf("hash header: %w", err)
	}
	headerBytes, err := b.Header.Bytes()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	blockBytes, err := b.Bytes()
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}

	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.Put(makeKey(prefixHeader, headerHash[:]), headerBytes); err != nil {
		return fmt.Errorf("store header: %w", err)
	}
	if err := batch.Put(makeKey(prefixBlock, headerHash[:]), blockBytes); err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	if err := batch.Put(makeKey(prefixState, headerHash[:]), postState); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	if err := batch.Put(heightKey(b.Header.Height), headerHash[:]); err != nil {
		return fmt.Errorf("store height index: %w", err)
	}
	if err := batch.Put([]byte{prefixHead}, headerHash[:]); err != nil {
		return fmt.Errorf("store head: %w", err)
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// GetBlock retrieves a block by its header hash.
func (c *Chain) GetBlock(hash crypto.Hash) (block.Block, error) {
	if c.closed.Load() {
		return block.Block{}, ErrChainClosed
	}

	blockBytes, err := c.db.Get(makeKey(prefixBlock, hash[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return block.Block{}, ErrBlockNotFound
		}
		return block.Block{}, fmt.Errorf("get block: %w", err)
	}
	return block.BlockFromBytes(blockBytes)
}

// GetHeader retrieves a header by its hash without loading the body.
func (c *Chain) GetHeader(hash crypto.Hash) (block.Header, error) {
	if c.closed.Load() {
		return block.Header{}, ErrChainClosed
	}

	headerBytes, err := c.db.Get(makeKey(prefixHeader, hash[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return block.Header{}, ErrHeaderNotFound
		}
		return block.Header{}, fmt.Errorf("get header: %w", err)
	}
	return block.HeaderFromBytes(headerBytes)
}

// GetState retrieves the serialized post-state of the block with the given
// header hash.
func (c *Chain) GetState(hash crypto.Hash) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrChainClosed
	}

	stateBytes, err := c.db.Get(makeKey(prefixState, hash[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("get state: %w", err)
	}
	return stateBytes, nil
}

// GetBlockByHeight resolves a height through the index to its block.
func (c *Chain) GetBlockByHeight(height uint64) (block.Block, error) {
	if c.closed.Load() {
		return block.Block{}, ErrChainClosed
	}

	hashBytes, err := c.db.Get(heightKey(height))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return block.Block{}, ErrBlockNotFound
		}
		return block.Block{}, fmt.Errorf("get height index: %w", err)
	}
	var hash crypto.Hash
	copy(hash[:], hashBytes)
	return c.GetBlock(hash)
}

// Head returns the header hash of the latest stored block.
func (c *Chain) Head() (crypto.Hash, error) {
	if c.closed.Load() {
		return crypto.Hash{}, ErrChainClosed
	}

	hashBytes, err := c.db.Get([]byte{prefixHead})
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return crypto.Hash{}, ErrNoHead
		}
		return crypto.Hash{}, fmt.Errorf("get head: %w", err)
	}
	var hash crypto.Hash
	copy(hash[:], hashBytes)
	return hash, nil
}

// SetHead moves the head pointer, for genesis bootstrap and reorgs.
func (c *Chain) SetHead(hash crypto.Hash) error {
	if c.closed.Load() {
		return ErrChainClosed
	}
	return c.db.Put([]byte{prefixHead}, hash[:])
}

// PutGenesis stores a genesis state keyed by its pseudo header hash and
// points the head at it. Genesis has no block body.
func (c *Chain) PutGenesis(hash crypto.Hash, header block.Header, genesisState []byte) error {
	if c.closed.Load() {
		return ErrChainClosed
	}

	headerBytes, err := header.Bytes()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.Put(makeKey(prefixHeader, hash[:]), headerBytes); err != nil {
		return fmt.Errorf("store header: %w", err)
	}
	if err := batch.Put(makeKey(prefixState, hash[:]), genesisState); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	if err := batch.Put(heightKey(header.Height), hash[:]); err != nil {
		return fmt.Errorf("store height index: %w", err)
	}
	if err := batch.Put([]byte{prefixHead}, hash[:]); err != nil {
		return fmt.Errorf("store head: %w", err)
	}
	return batch.Commit()
}

// FindChildren returns all stored blocks whose parent is the given hash.
func (c *Chain) FindChildren(parentHash crypto.Hash) ([]block.Block, error) {
	if c.closed.Load() {
		return nil, ErrChainClosed
	}

	iter, err := c.db.NewIterator([]byte{prefixBlock}, []byte{prefixBlock + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var children []block.Block
	for iter.Next() {
		blockBytes, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read iterator value: %w", err)
		}
		b, err := block.BlockFromBytes(blockBytes)
		if err != nil {
			return nil, fmt.Errorf("parse block: %w", err)
		}
		if b.Header.ParentHash == parentHash {
			children = append(children, b)
		}
	}
	return children, nil
}

// Ancestry returns the block with the given hash and up to maxBlocks-1 of
// its ancestors, newest first.
func (c *Chain) Ancestry(startHash crypto.Hash, maxBlocks uint32) ([]block.Block, error) {
	if c.closed.Load() {
		return nil, ErrChainClosed
	}

	var blocks []block.Block
	currentHash := startHash
	for uint32(len(blocks)) < maxBlocks {
		b, err := c.GetBlock(currentHash)
		if err != nil {
			if errors.Is(err, ErrBlockNotFound) {
				break
			}
			return nil, err
		}
		blocks = append(blocks, b)
		currentHash = b.Header.ParentHash
	}
	return blocks, nil
}

// Close closes the chain store and its underlying database.
func (c *Chain) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.db.Close()
}

func makeKey(prefix byte, hash []byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = prefix
	copy(key[1:], hash)
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixHeight
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}
