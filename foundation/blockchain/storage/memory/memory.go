// Package memory implements the ability to read and write blocks and wallets
// to memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// Memory represents the storage implementation for reading and storing
// blocks and wallets in memory. This implements the storage.Storage
// interface.
type Memory struct {
	mu      sync.RWMutex
	blocks  map[uint64]block.Block
	wallets map[string]storage.Wallet
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		blocks:  make(map[uint64]block.Block),
		wallets: make(map[string]storage.Wallet),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// WriteBlock stores the block keyed by its index.
func (m *Memory) WriteBlock(ctx context.Context, blk block.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[blk.Index] = copyBlock(blk)

	return nil
}

// GetBlock returns the block stored at the specified index.
func (m *Memory) GetBlock(ctx context.Context, index uint64) (block.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blk, exists := m.blocks[index]
	if !exists {
		return block.Block{}, fmt.Errorf("block %d: %w", index, storage.ErrNotFound)
	}

	return copyBlock(blk), nil
}

// Blocks returns every stored block ordered by index.
func (m *Memory) Blocks(ctx context.Context) ([]block.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]block.Block, 0, len(m.blocks))
	for _, blk := range m.blocks {
		blocks = append(blocks, copyBlock(blk))
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})

	return blocks, nil
}

// Wallet returns the wallet stored for the specified address.
func (m *Memory) Wallet(ctx context.Context, address string) (storage.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wallet, exists := m.wallets[address]
	if !exists {
		return storage.Wallet{}, fmt.Errorf("wallet %s: %w", address, storage.ErrNotFound)
	}

	return wallet, nil
}

// WriteWallet stores the wallet keyed by its address.
func (m *Memory) WriteWallet(ctx context.Context, wallet storage.Wallet) error {
	if err := storage.CheckAddress(wallet.Address); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.wallets[wallet.Address] = wallet

	return nil
}

// IncrementBalance adds delta to the balance of the wallet.
func (m *Memory) IncrementBalance(ctx context.Context, address string, delta int64) error {
	if err := storage.CheckAddress(address); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wallet := m.wallets[address]
	wallet.Address = address
	wallet.Balance += delta

	m.wallets[address] = wallet

	return nil
}

// Wallets returns every stored wallet ordered by address.
func (m *Memory) Wallets(ctx context.Context) ([]storage.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wallets := make([]storage.Wallet, 0, len(m.wallets))
	for _, wallet := range m.wallets {
		wallets = append(wallets, wallet)
	}

	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].Address < wallets[j].Address
	})

	return wallets, nil
}

// Reset will clear out the blocks and wallets.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make(map[uint64]block.Block)
	m.wallets = make(map[string]storage.Wallet)
}

// =============================================================================

// copyBlock makes sure the caller can't change the transactions held
// by the store.
func copyBlock(blk block.Block) block.Block {
	data := make([]block.Tx, len(blk.Data))
	copy(data, blk.Data)
	blk.Data = data

	return blk
}
