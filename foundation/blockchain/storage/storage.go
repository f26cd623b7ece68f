// Package storage defines the contract for the document store that holds the
// authoritative copy of the blockchain and the wallet balances.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
)

// Set of errors returned by the stores.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidAddress = errors.New("invalid wallet address")
)

// CheckAddress validates the address can be used as a wallet key by every
// store. Addresses end up as file names in the disk store so they can't be
// empty, a dot entry or hold a path separator.
func CheckAddress(address string) error {
	if address == "" || address == "." || address == ".." || strings.ContainsAny(address, `/\`) {
		return fmt.Errorf("%w %q", ErrInvalidAddress, address)
	}

	return nil
}

// Wallet represents what is stored for an individual wallet.
type Wallet struct {
	Address    string `json:"address"`
	PublicKey  string `json:"publicKey,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
	Balance    int64  `json:"balance"`
}

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain and the
// wallet balances. Blocks are keyed by index and wallets by address.
type Storage interface {

	// WriteBlock stores the block keyed by its index, replacing any block
	// already stored at that index.
	WriteBlock(ctx context.Context, blk block.Block) error

	// GetBlock returns the block stored at the specified index.
	GetBlock(ctx context.Context, index uint64) (block.Block, error)

	// Blocks returns every stored block ordered by index ascending.
	Blocks(ctx context.Context) ([]block.Block, error)

	// Wallet returns the wallet stored for the specified address.
	Wallet(ctx context.Context, address string) (Wallet, error)

	// WriteWallet stores the wallet keyed by its address, replacing any
	// wallet already stored for that address.
	WriteWallet(ctx context.Context, wallet Wallet) error

	// IncrementBalance atomically adds delta to the balance of the wallet,
	// creating the wallet with a balance of delta if it does not exist.
	IncrementBalance(ctx context.Context, address string, delta int64) error

	// Wallets returns every stored wallet ordered by address.
	Wallets(ctx context.Context) ([]Wallet, error)

	// Close releases any resources held by the store.
	Close() error
}
