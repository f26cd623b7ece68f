// Package accounts maintains wallet balances by applying the transactions of
// a block and the mining reward to storage.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// EventHandler defines a function that is called when events
// occur in the processing of balances.
type EventHandler func(v string, args ...any)

// Accounts manages the balances of wallets who have transacted on the
// blockchain. Every change is an atomic increment against storage.
type Accounts struct {
	storage      storage.Storage
	miningReward int64
	evHandler    EventHandler
}

// New constructs an Accounts value that pays the specified reward for
// every mined block.
func New(strg storage.Storage, miningReward int64, evHandler EventHandler) *Accounts {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Accounts{
		storage:      strg,
		miningReward: miningReward,
		evHandler:    ev,
	}
}

// Balance returns the live balance for the specified address. An address
// that was never stored has a balance of zero.
func (act *Accounts) Balance(ctx context.Context, address string) (int64, error) {
	w, err := act.storage.Wallet(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return w.Balance, nil
}

// ApplyTransaction moves the amount of the transaction from the sender to
// the receiver. Neither balance is checked, the transaction was validated
// when it was submitted.
func (act *Accounts) ApplyTransaction(ctx context.Context, tx block.Tx) error {
	act.evHandler("accounts: ApplyTransaction: tx[%s]", tx)

	if err := act.storage.IncrementBalance(ctx, tx.From, -tx.Amount); err != nil {
		return fmt.Errorf("debit %s: %w", tx.From, err)
	}

	if err := act.storage.IncrementBalance(ctx, tx.To, tx.Amount); err != nil {
		return fmt.Errorf("credit %s: %w", tx.To, err)
	}

	return nil
}

// ApplyMiningReward gives the specified address the mining reward.
func (act *Accounts) ApplyMiningReward(ctx context.Context, minerAddr string) error {
	act.evHandler("accounts: ApplyMiningReward: miner[%s]: reward[%d]", minerAddr, act.miningReward)

	if err := act.storage.IncrementBalance(ctx, minerAddr, act.miningReward); err != nil {
		return fmt.Errorf("reward %s: %w", minerAddr, err)
	}

	return nil
}

// Settle applies every transaction of the block in order and then pays the
// miner of the block. Every address is checked before any balance changes.
// The first failure stops the settlement.
func (act *Accounts) Settle(ctx context.Context, blk block.Block) error {
	act.evHandler("accounts: Settle: blk[%d]: txs[%d]", blk.Index, len(blk.Data))

	if err := storage.CheckAddress(blk.Miner); err != nil {
		return fmt.Errorf("miner: %w", err)
	}
	for _, tx := range blk.Data {
		for _, address := range []string{tx.From, tx.To} {
			if err := storage.CheckAddress(address); err != nil {
				return fmt.Errorf("tx[%s]: %w", tx, err)
			}
		}
	}

	for _, tx := range blk.Data {
		if err := act.ApplyTransaction(ctx, tx); err != nil {
			return err
		}
	}

	return act.ApplyMiningReward(ctx, blk.Miner)
}
