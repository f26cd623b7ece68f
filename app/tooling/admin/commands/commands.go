// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/postgres"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// ErrBrokenChain is returned by Verify when the stored chain doesn't link.
var ErrBrokenChain = errors.New("broken chain")

// Chain prints every stored block with its transactions.
func Chain(ctx context.Context, w io.Writer, strg storage.Storage) error {
	blocks, err := strg.Blocks(ctx)
	if err != nil {
		return err
	}

	for _, blk := range blocks {
		fmt.Fprintf(w, "Block: %d  Hash: %s\n", blk.Index, blk.Hash)
		fmt.Fprintf(w, "  Prev: %s  Miner: %s  Nonce: %d  Time: %s\n", blk.PreviousHash, blk.Miner, blk.Nonce, blk.Timestamp)
		for _, tx := range blk.Data {
			fmt.Fprintf(w, "  Tx: %s\n", tx)
		}
	}

	return nil
}

// Wallets prints every stored wallet and its balance.
func Wallets(ctx context.Context, w io.Writer, strg storage.Storage) error {
	wallets, err := strg.Wallets(ctx)
	if err != nil {
		return err
	}

	for _, wlt := range wallets {
		fmt.Fprintf(w, "Address: %s  Balance: %d\n", wlt.Address, wlt.Balance)
	}

	return nil
}

// Verify checks every stored block recomputes to its hash and links to the
// block before it.
func Verify(ctx context.Context, w io.Writer, strg storage.Storage) error {
	blocks, err := strg.Blocks(ctx)
	if err != nil {
		return err
	}

	for i, blk := range blocks {
		if blk.Index != uint64(i) {
			return fmt.Errorf("%w: block %d stored at position %d", ErrBrokenChain, blk.Index, i)
		}

		if !blk.IsSelfConsistent() {
			return fmt.Errorf("%w: block %d: hash doesn't match contents", ErrBrokenChain, blk.Index)
		}

		if i > 0 && blk.PreviousHash != blocks[i-1].Hash {
			return fmt.Errorf("%w: block %d: previous hash doesn't match block %d", ErrBrokenChain, blk.Index, i-1)
		}
	}

	fmt.Fprintf(w, "chain ok: %d blocks\n", len(blocks))
	return nil
}

// Migrate creates the postgres schema used by the postgres storage.
func Migrate(ctx context.Context, cfg postgres.Config) error {
	db, err := postgres.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	fmt.Println("migrations complete")
	return nil
}
