package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// ErrChainMoved is returned when another block was appended while a block
// was being mined. The mined block is thrown away.
var ErrChainMoved = errors.New("chain moved while mining")

// ErrNoWorker is returned when mining is requested before a worker is
// registered with the state.
var ErrNoWorker = errors.New("no worker registered")

// =============================================================================

// MinePendingTransactions hands the mining request to the worker and waits
// for the mined block.
func (s *State) MinePendingTransactions(ctx context.Context, minerAddress string) (block.Block, error) {
	if s.Worker == nil {
		return block.Block{}, ErrNoWorker
	}

	return s.Worker.SignalStartMining(ctx, minerAddress)
}

// MineNewBlock drains the mempool into a new block, performs the proof of
// work, settles the balances and appends the block to the chain. This
// function blocks until the work is solved or the context is cancelled. Once
// the work is solved the block is settled and appended even if the context
// is cancelled.
func (s *State) MineNewBlock(ctx context.Context, minerAddress string) (block.Block, error) {
	if err := storage.CheckAddress(minerAddress); err != nil {
		return block.Block{}, fmt.Errorf("miner: %w", err)
	}

	s.evHandler("state: MineNewBlock: MINING: reload chain")

	chain, err := s.ledger.LoadChain(ctx)
	if err != nil {
		return block.Block{}, err
	}
	tail := chain[len(chain)-1]

	txs := s.mempool.PickAll()
	blk := block.New(uint64(len(chain)), block.Now(), txs, tail.Hash, minerAddress)

	s.mining.Store(int64(blk.Index))
	defer s.mining.Store(notMining)

	s.evHandler("state: MineNewBlock: MINING: perform POW: blk[%d]: txs[%d]: difficulty[%d]", blk.Index, len(txs), s.genesis.Difficulty)

	if err := blk.Mine(ctx, s.genesis.Difficulty); err != nil {
		s.evHandler("state: MineNewBlock: MINING: cancelled: blk[%d]: nonce[%d]", blk.Index, blk.Nonce)
		return block.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: solved: blk[%d]: nonce[%d]: hash[%s]", blk.Index, blk.Nonce, blk.Hash)

	// Balances and the chain must not be left half written.
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Make sure nothing extended the chain while the work was being done.
	current, err := s.ledger.LoadChain(ctx)
	if err != nil {
		return block.Block{}, err
	}
	if latest := current[len(current)-1]; latest.Hash != tail.Hash {
		s.evHandler("state: MineNewBlock: MINING: chain moved: tail[%d]: hash[%s]", latest.Index, latest.Hash)
		return block.Block{}, fmt.Errorf("%w: block %d is now the tail", ErrChainMoved, latest.Index)
	}

	s.evHandler("state: MineNewBlock: MINING: settle balances")

	if err := s.accounts.Settle(ctx, blk); err != nil {
		return block.Block{}, err
	}

	if err := s.ledger.AppendBlock(ctx, blk); err != nil {
		return block.Block{}, err
	}

	s.mempool.Drop(len(txs))

	s.evHandler("viewer: block mined: blk[%d]: hash[%s]: miner[%s]: txs[%d]", blk.Index, blk.Hash, blk.Miner, len(blk.Data))

	return blk, nil
}

// ProcessPeerBlock takes a block received from a peer and appends it when it
// extends the tail of the chain. The balances are not settled for a peer
// block. If the block lands at the height being mined, mining is cancelled.
func (s *State) ProcessPeerBlock(ctx context.Context, blk block.Block) error {
	s.evHandler("state: ProcessPeerBlock: started: blk[%d]: hash[%s]", blk.Index, blk.Hash)
	defer s.evHandler("state: ProcessPeerBlock: completed")

	if err := s.appendPeerBlock(ctx, blk); err != nil {
		return err
	}

	if s.mining.Load() == int64(blk.Index) && s.Worker != nil {
		s.evHandler("state: ProcessPeerBlock: competing block: signal cancel mining")
		s.Worker.SignalCancelMining()
	}

	s.evHandler("viewer: peer block accepted: blk[%d]: hash[%s]", blk.Index, blk.Hash)

	return nil
}

// appendPeerBlock appends the block under the state lock.
func (s *State) appendPeerBlock(ctx context.Context, blk block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.AppendBlock(ctx, blk)
}
