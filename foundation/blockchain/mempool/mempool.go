// Package mempool maintains the pending transactions for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
)

// Mempool represents the ordered set of transactions waiting to be mined.
// Transactions are mined in the order they were added.
type Mempool struct {
	pool []block.Tx
	mu   sync.RWMutex
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends a transaction to the end of the pool and returns the new
// number of transactions.
func (mp *Mempool) Add(tx block.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// PickAll returns a copy of every pending transaction in the order they
// were added.
func (mp *Mempool) PickAll() []block.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]block.Tx, len(mp.pool))
	copy(txs, mp.pool)

	return txs
}

// Drop removes the first n transactions from the pool. These are the
// transactions that were drained into a block. Anything added after the
// block was built stays pending.
func (mp *Mempool) Drop(n int) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if n > len(mp.pool) {
		n = len(mp.pool)
	}
	if n <= 0 {
		return
	}

	pool := make([]block.Tx, len(mp.pool)-n)
	copy(pool, mp.pool[n:])
	mp.pool = pool
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
