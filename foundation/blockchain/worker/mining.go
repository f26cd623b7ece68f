package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.startMining:
			if w.isShutdown() {
				req.result <- miningResult{err: ErrShutdown}
				continue
			}
			req.result <- w.runMiningOperation(req)
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes all the transactions from the mempool and writes a
// new block to the chain. The new block is then sent to the peers.
func (w *Worker) runMiningOperation(req miningRequest) miningResult {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled. The requester giving up
	// also stops the search.
	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()

	// Can't return from this function until this G is complete.
	var wg sync.WaitGroup
	wg.Add(1)

	// This G exists to cancel the mining operation.
	go func() {
		defer wg.Done()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			cancel()
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	blk, err := w.state.MineNewBlock(ctx, req.minerAddress)
	duration := time.Since(t)

	cancel()
	wg.Wait()

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrChainMoved):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
		case errors.Is(err, context.Canceled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return miningResult{err: err}
	}

	// WOW, we mined a block. Send the new block to the network.
	// Log the error, but that's it.
	if err := w.state.NetSendBlockToPeers(blk); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: NetSendBlockToPeers: WARNING %s", err)
	}

	return miningResult{block: blk}
}
