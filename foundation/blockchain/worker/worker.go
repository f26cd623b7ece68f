// Package worker implements mining and peer connections for the blockchain.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
)

// ErrShutdown is returned when mining is requested after the worker
// was shut down.
var ErrShutdown = errors.New("worker is shut down")

// miningRequest is handed to the mining goroutine.
type miningRequest struct {
	ctx          context.Context
	minerAddress string
	result       chan miningResult
}

// miningResult is handed back to the requester.
type miningResult struct {
	block block.Block
	err   error
}

// =============================================================================

// Worker manages the POW workflows and the peer connections for the
// blockchain.
type Worker struct {
	state        *state.State
	seeds        []string
	wg           sync.WaitGroup
	shut         chan struct{}
	startMining  chan miningRequest
	cancelMining chan bool
	evHandler    state.EventHandler

	mu       sync.Mutex
	outbound []*peer.Peer
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. A single connection attempt is
// made to every seed.
func Run(st *state.State, seeds []string, evHandler state.EventHandler) *Worker {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		state:        st,
		seeds:        seeds,
		shut:         make(chan struct{}),
		startMining:  make(chan miningRequest),
		cancelMining: make(chan bool, 1),
		evHandler:    ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.peerOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: close outbound peers")
	w.mu.Lock()
	{
		close(w.shut)
		for _, p := range w.outbound {
			p.Close()
		}
		w.outbound = nil
	}
	w.mu.Unlock()

	w.evHandler("worker: shutdown: terminate goroutines")
	w.wg.Wait()
}

// SignalStartMining hands a mining request to the mining goroutine and
// waits for the result. Cancelling the context abandons the request and
// stops the search if it already started.
func (w *Worker) SignalStartMining(ctx context.Context, minerAddress string) (block.Block, error) {
	req := miningRequest{
		ctx:          ctx,
		minerAddress: minerAddress,
		result:       make(chan miningResult, 1),
	}

	select {
	case w.startMining <- req:
		w.evHandler("worker: SignalStartMining: mining signaled: miner[%s]", minerAddress)
	case <-ctx.Done():
		return block.Block{}, ctx.Err()
	case <-w.shut:
		return block.Block{}, ErrShutdown
	}

	// The mining goroutine always answers, even when cancelled.
	res := <-req.result
	return res.block, res.err
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
