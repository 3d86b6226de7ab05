// Package chain ties the executive to persistent storage: it bootstraps a
// chain from a genesis configuration, imports blocks on top of the current
// head and keeps the head state in memory.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/executive"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/internal/store"
	"github.com/loxadim/substrate/pkg/db"
	"github.com/loxadim/substrate/pkg/log"
)

var (
	// ErrNotInitialized means the store holds no chain yet; Bootstrap first.
	ErrNotInitialized = errors.New("chain not initialized")
	// ErrNotChild rejects a block whose parent is not the current head.
	ErrNotChild = errors.New("block does not extend the head")
)

// Service executes and persists blocks. Imports are serialized; the head
// state is the post-state of the latest imported block.
type Service struct {
	mu    sync.RWMutex
	exec  *executive.Executive
	store *store.Chain

	head      crypto.Hash
	headState *state.State
}

// NewService opens a service over kv, resuming from the stored head when
// one exists.
func NewService(kv db.KVStore, exec *executive.Executive) (*Service, error) {
	svc := &Service{
		exec:  exec,
		store: store.NewChain(kv),
	}
	if err := svc.resume(); err != nil && !errors.Is(err, ErrNotInitialized) {
		return nil, err
	}
	return svc, nil
}

func (svc *Service) resume() error {
	head, err := svc.store.Head()
	if err != nil {
		if errors.Is(err, store.ErrNoHead) {
			return ErrNotInitialized
		}
		return err
	}
	stateBytes, err := svc.store.GetState(head)
	if err != nil {
		return fmt.Errorf("load head state: %w", err)
	}
	s, err := state.FromBytes(stateBytes)
	if err != nil {
		return fmt.Errorf("decode head state: %w", err)
	}

	svc.head = head
	svc.headState = s
	log.Chain.Info().Hex("head", head[:]).Uint64("height", s.Height).Msg("resumed chain")
	return nil
}

// Bootstrap initializes a fresh chain from a genesis configuration. The
// genesis state is stored under a pseudo header with no body and becomes
// the head. Bootstrapping an initialized chain is an error.
func (svc *Service) Bootstrap(cfg state.GenesisConfig) (crypto.Hash, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.headState != nil {
		return crypto.Hash{}, errors.New("chain already initialized")
	}

	s, err := state.BuildState(cfg)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("build genesis state: %w", err)
	}
	root, err := s.Root()
	if err != nil {
		return crypto.Hash{}, err
	}
	header := block.Header{
		Format:    block.FormatVersion,
		Height:    s.Height,
		Timestamp: s.Timestamp.Now,
	}
	hash, err := header.Hash()
	if err != nil {
		return crypto.Hash{}, err
	}
	stateBytes, err := s.Bytes()
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("encode genesis state: %w", err)
	}
	if err := svc.store.PutGenesis(hash, header, stateBytes); err != nil {
		return crypto.Hash{}, fmt.Errorf("store genesis: %w", err)
	}

	svc.head = hash
	svc.headState = s
	log.Chain.Info().Hex("hash", hash[:]).Hex("state_root", root[:]).Msg("chain bootstrapped")
	return hash, nil
}

// ImportBlock executes a block on top of the head state and, on success,
// persists the block together with its post-state and advances the head.
// A failed execution leaves both the store and the head untouched.
func (svc *Service) ImportBlock(b block.Block) (crypto.Hash, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.headState == nil {
		return crypto.Hash{}, ErrNotInitialized
	}
	if b.Header.Format != block.FormatVersion {
		return crypto.Hash{}, fmt.Errorf("%w: %d", block.ErrUnknownFormat, b.Header.Format)
	}
	if b.Header.ParentHash != svc.head {
		return crypto.Hash{}, ErrNotChild
	}

	post, err := svc.exec.ExecuteBlock(svc.headState, b)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("execute block %d: %w", b.Header.Height, err)
	}

	hash, err := b.Header.Hash()
	if err != nil {
		return crypto.Hash{}, err
	}
	postBytes, err := post.Bytes()
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("encode post-state: %w", err)
	}
	if err := svc.store.PutBlock(b, postBytes); err != nil {
		return crypto.Hash{}, fmt.Errorf("store block: %w", err)
	}

	svc.head = hash
	svc.headState = post
	log.Chain.Info().
		Uint64("height", b.Header.Height).
		Int("extrinsics", len(b.Extrinsics)).
		Hex("hash", hash[:]).
		Msg("imported block")
	return hash, nil
}

// Propose builds and executes a candidate block from the given extrinsics
// on top of the current head, without importing it. The returned block can
// be fed straight to ImportBlock.
func (svc *Service) Propose(timestamp uint64, authorIndex uint32, extrinsics []block.Extrinsic) (block.Block, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if svc.headState == nil {
		return block.Block{}, ErrNotInitialized
	}

	priorRoot, err := svc.headState.Root()
	if err != nil {
		return block.Block{}, err
	}
	bodyRoot, err := block.ExtrinsicsRoot(extrinsics)
	if err != nil {
		return block.Block{}, err
	}
	b := block.Block{
		Header: block.Header{
			Format:         block.FormatVersion,
			ParentHash:     svc.head,
			Height:         svc.headState.Height + 1,
			PriorStateRoot: priorRoot,
			ExtrinsicsRoot: bodyRoot,
			Timestamp:      timestamp,
			AuthorIndex:    authorIndex,
		},
		Extrinsics: extrinsics,
	}
	if _, err := svc.exec.ExecuteBlock(svc.headState, b); err != nil {
		return block.Block{}, fmt.Errorf("candidate block invalid: %w", err)
	}
	return b, nil
}

// Head returns the current head hash.
func (svc *Service) Head() (crypto.Hash, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.headState == nil {
		return crypto.Hash{}, ErrNotInitialized
	}
	return svc.head, nil
}

// HeadState returns a deep copy of the head state, safe for the caller to
// mutate.
func (svc *Service) HeadState() (*state.State, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.headState == nil {
		return nil, ErrNotInitialized
	}
	return svc.headState.Copy(), nil
}

// Store exposes the underlying chain store for read paths.
func (svc *Service) Store() *store.Chain {
	return svc.store
}

// Close closes the service and the underlying store.
func (svc *Service) Close() error {
	return svc.store.Close()
}
