package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// Set of errors returned when a transaction is submitted.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
)

// SubmitTransaction accepts a transfer into the mempool when the sender's
// stored balance covers the amount. A sender with no wallet has a zero
// balance. Transactions already pending from the sender are not considered.
func (s *State) SubmitTransaction(ctx context.Context, from string, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	for _, address := range []string{from, to} {
		if err := storage.CheckAddress(address); err != nil {
			return err
		}
	}

	balance, err := s.accounts.Balance(ctx, from)
	if err != nil {
		return err
	}

	if balance < amount {
		s.evHandler("state: SubmitTransaction: from[%s]: balance[%d]: amount[%d]: rejected", from, balance, amount)
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, balance, amount)
	}

	tx := block.NewTx(from, to, amount)
	n := s.mempool.Add(tx)

	s.evHandler("viewer: tx accepted: tx[%s]: pending[%d]", tx, n)

	return nil
}

// QueryMempool returns a copy of the pending transactions.
func (s *State) QueryMempool() []block.Tx {
	return s.mempool.PickAll()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
