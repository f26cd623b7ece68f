// Package disk implements the ability to read and write blocks and wallets to
// disk, one JSON file per document.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// Disk represents the storage implementation for reading and storing blocks
// and wallets in their own separate files on disk. This implements the
// storage.Storage interface.
type Disk struct {
	dbPath string
	mu     sync.Mutex
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	for _, dir := range []string{"blocks", "wallets"} {
		if err := os.MkdirAll(filepath.Join(dbPath, dir), 0755); err != nil {
			return nil, err
		}
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each document and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// WriteBlock takes the specified block and stores it on disk in a file
// labeled with the block index.
func (d *Disk) WriteBlock(ctx context.Context, blk block.Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return writeJSON(d.blockPath(blk.Index), blk)
}

// GetBlock searches the blockchain on disk to locate and return the
// contents of the specified block by index.
func (d *Disk) GetBlock(ctx context.Context, index uint64) (block.Block, error) {
	var blk block.Block
	if err := readJSON(d.blockPath(index), &blk); err != nil {
		return block.Block{}, fmt.Errorf("block %d: %w", index, err)
	}

	return blk, nil
}

// Blocks reads every block stored on disk ordered by index. Gaps between
// indexes are skipped over.
func (d *Disk) Blocks(ctx context.Context) ([]block.Block, error) {
	iter, err := d.ForEach()
	if err != nil {
		return nil, err
	}

	var blocks []block.Block
	for blk, err := iter.Next(ctx); !iter.Done(); blk, err = iter.Next(ctx) {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}

	return blocks, nil
}

// Wallet returns the wallet stored for the specified address.
func (d *Disk) Wallet(ctx context.Context, address string) (storage.Wallet, error) {
	path, err := d.walletPath(address)
	if err != nil {
		return storage.Wallet{}, err
	}

	var wallet storage.Wallet
	if err := readJSON(path, &wallet); err != nil {
		return storage.Wallet{}, fmt.Errorf("wallet %s: %w", address, err)
	}

	return wallet, nil
}

// WriteWallet stores the wallet in a file labeled with the address.
func (d *Disk) WriteWallet(ctx context.Context, wallet storage.Wallet) error {
	path, err := d.walletPath(wallet.Address)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return writeJSON(path, wallet)
}

// IncrementBalance adds delta to the balance of the wallet. The read and the
// write happen under the same lock so increments from this process are
// never lost.
func (d *Disk) IncrementBalance(ctx context.Context, address string, delta int64) error {
	path, err := d.walletPath(address)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	wallet := storage.Wallet{Address: address}
	if err := readJSON(path, &wallet); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	wallet.Balance += delta

	return writeJSON(path, wallet)
}

// Wallets returns every wallet stored on disk ordered by address.
func (d *Disk) Wallets(ctx context.Context) ([]storage.Wallet, error) {
	entries, err := os.ReadDir(filepath.Join(d.dbPath, "wallets"))
	if err != nil {
		return nil, err
	}

	var wallets []storage.Wallet
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		var wallet storage.Wallet
		if err := readJSON(filepath.Join(d.dbPath, "wallets", entry.Name()), &wallet); err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}

	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].Address < wallets[j].Address
	})

	return wallets, nil
}

// ForEach returns an iterator to walk through all the blocks found on disk
// in index order.
func (d *Disk) ForEach() (*Iterator, error) {
	indexes, err := d.blockIndexes()
	if err != nil {
		return nil, err
	}

	return &Iterator{disk: d, indexes: indexes}, nil
}

// =============================================================================

// blockPath forms the path to the specified block.
func (d *Disk) blockPath(index uint64) string {
	name := strconv.FormatUint(index, 10)
	return filepath.Join(d.dbPath, "blocks", fmt.Sprintf("%s.json", name))
}

// blockIndexes returns the index of every block file sorted ascending.
// Files that aren't named after an index are ignored.
func (d *Disk) blockIndexes() ([]uint64, error) {
	entries, err := os.ReadDir(filepath.Join(d.dbPath, "blocks"))
	if err != nil {
		return nil, err
	}

	indexes := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}

		index, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		indexes = append(indexes, index)
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i] < indexes[j]
	})

	return indexes, nil
}

// walletPath forms the path to the specified wallet. Addresses come from
// clients so they can't be allowed to walk out of the wallets folder.
func (d *Disk) walletPath(address string) (string, error) {
	if err := storage.CheckAddress(address); err != nil {
		return "", err
	}

	return filepath.Join(d.dbPath, "wallets", fmt.Sprintf("%s.json", address)), nil
}

// writeJSON marshals the value in a more human readable format and writes
// it to the specified file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}

	return nil
}

// readJSON decodes the contents of the specified file.
func readJSON(path string, v any) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(v)
}

// =============================================================================

// Iterator represents the iteration implementation for walking
// through and reading blocks on disk.
type Iterator struct {
	disk    *Disk    // Access to the Disk storage API.
	indexes []uint64 // Indexes of the blocks found when the iterator was made.
	current int      // Position in indexes of the next block to read.
	eoc     bool     // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (it *Iterator) Next(ctx context.Context) (block.Block, error) {
	if it.eoc {
		return block.Block{}, errors.New("end of chain")
	}

	if it.current >= len(it.indexes) {
		it.eoc = true
		return block.Block{}, nil
	}

	blk, err := it.disk.GetBlock(ctx, it.indexes[it.current])
	it.current++

	return blk, err
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}
