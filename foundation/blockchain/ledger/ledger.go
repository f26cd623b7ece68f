// Package ledger maintains the ordered chain of blocks. The storage is the
// authoritative copy of the chain and the chain held here is only a cache
// that is refreshed before every change.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// ErrBlockRejected is returned when a block does not extend the current tail
// of the chain or its hash does not match its own fields.
var ErrBlockRejected = errors.New("block rejected")

// EventHandler defines a function that is called when events
// occur in the processing of the chain.
type EventHandler func(v string, args ...any)

// Ledger manages the chain of blocks backed by storage.
type Ledger struct {
	storage   storage.Storage
	genesis   genesis.Genesis
	evHandler EventHandler

	mu    sync.RWMutex
	chain []block.Block
}

// New constructs a ledger over the specified storage. The chain is not read
// until LoadChain is called.
func New(strg storage.Storage, gen genesis.Genesis, evHandler EventHandler) *Ledger {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Ledger{
		storage:   strg,
		genesis:   gen,
		evHandler: ev,
	}
}

// LoadChain reads the chain from storage ordered by index. When storage holds
// no blocks, the genesis block is written along with the genesis balances.
// Calling LoadChain again on a loaded chain changes nothing.
func (l *Ledger) LoadChain(ctx context.Context) ([]block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(ctx); err != nil {
		return nil, err
	}

	return l.copyChain(), nil
}

// AppendBlock reloads the chain from storage and adds the block to the end
// of the chain if the block extends the tail and its hash is consistent. A
// rejected block leaves storage and the cached chain untouched.
func (l *Ledger) AppendBlock(ctx context.Context, blk block.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(ctx); err != nil {
		return err
	}

	tail := l.chain[len(l.chain)-1]

	if blk.PreviousHash != tail.Hash {
		l.evHandler("ledger: AppendBlock: rejected: blk[%d]: prevHash[%s] tail[%d]: hash[%s]", blk.Index, blk.PreviousHash, tail.Index, tail.Hash)
		return fmt.Errorf("%w: previous hash %s does not match tail hash %s", ErrBlockRejected, blk.PreviousHash, tail.Hash)
	}

	if !blk.IsSelfConsistent() {
		l.evHandler("ledger: AppendBlock: rejected: blk[%d]: hash[%s] does not match contents", blk.Index, blk.Hash)
		return fmt.Errorf("%w: hash %s does not match block contents", ErrBlockRejected, blk.Hash)
	}

	if err := l.storage.WriteBlock(ctx, blk); err != nil {
		return fmt.Errorf("write block %d: %w", blk.Index, err)
	}

	l.chain = append(l.chain, blk)

	l.evHandler("ledger: AppendBlock: blk[%d]: hash[%s]: appended", blk.Index, blk.Hash)

	return nil
}

// Chain returns a copy of the cached chain.
func (l *Ledger) Chain() []block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.copyChain()
}

// LatestBlock returns the tail of the cached chain. The zero block is
// returned when the chain has not been loaded.
func (l *Ledger) LatestBlock() block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return block.Block{}
	}

	return l.chain[len(l.chain)-1]
}

// Genesis returns the genesis settings the ledger was built with.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// =============================================================================

// load refreshes the cached chain from storage. The caller must hold the
// write lock.
func (l *Ledger) load(ctx context.Context) error {
	blocks, err := l.storage.Blocks(ctx)
	if err != nil {
		return fmt.Errorf("read blocks: %w", err)
	}

	if len(blocks) == 0 {
		gen, err := l.writeGenesis(ctx)
		if err != nil {
			return err
		}
		blocks = []block.Block{gen}
	}

	l.chain = blocks

	return nil
}

// writeGenesis persists the genesis block and credits the genesis balances.
func (l *Ledger) writeGenesis(ctx context.Context) (block.Block, error) {
	gen := l.genesis.Block()

	l.evHandler("ledger: writeGenesis: hash[%s]", gen.Hash)

	if err := l.storage.WriteBlock(ctx, gen); err != nil {
		return block.Block{}, fmt.Errorf("write genesis: %w", err)
	}

	for address, balance := range l.genesis.Balances {
		l.evHandler("ledger: writeGenesis: credit[%s]: amount[%d]", address, balance)

		if err := l.storage.IncrementBalance(ctx, address, balance); err != nil {
			return block.Block{}, fmt.Errorf("genesis balance %s: %w", address, err)
		}
	}

	return gen, nil
}

// copyChain makes sure callers can't change the cached chain.
func (l *Ledger) copyChain() []block.Block {
	chain := make([]block.Block, len(l.chain))
	copy(chain, l.chain)

	return chain
}
