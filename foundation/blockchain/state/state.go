// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/gjchain/foundation/blockchain/accounts"
	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gjchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gjchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// notMining marks that no block is being mined.
const notMining = -1

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and peer connections.
type Worker interface {
	Shutdown()
	SignalStartMining(ctx context.Context, minerAddress string) (block.Block, error)
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host      string
	Storage   storage.Storage
	Genesis   genesis.Genesis
	Peers     *peer.PeerSet
	EvHandler EventHandler
}

// State manages the blockchain.
type State struct {
	host      string
	evHandler EventHandler
	mu        sync.Mutex
	mining    atomic.Int64
	shutdown  sync.Once

	genesis  genesis.Genesis
	storage  storage.Storage
	ledger   *ledger.Ledger
	mempool  *mempool.Mempool
	accounts *accounts.Accounts
	peers    *peer.PeerSet

	Worker Worker
}

// New constructs a new blockchain for data management. The chain is loaded
// from storage, writing the genesis block when storage is empty.
func New(ctx context.Context, cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	peers := cfg.Peers
	if peers == nil {
		peers = peer.NewPeerSet()
	}

	ldg := ledger.New(cfg.Storage, cfg.Genesis, ledger.EventHandler(ev))

	// Load the chain now so the genesis block exists before any
	// request is served.
	chain, err := ldg.LoadChain(ctx)
	if err != nil {
		return nil, err
	}
	ev("state: New: chain loaded: blocks[%d]", len(chain))

	state := State{
		host:      cfg.Host,
		evHandler: ev,

		genesis:  cfg.Genesis,
		storage:  cfg.Storage,
		ledger:   ldg,
		mempool:  mempool.New(),
		accounts: accounts.New(cfg.Storage, cfg.Genesis.MiningReward, accounts.EventHandler(ev)),
		peers:    peers,
	}
	state.mining.Store(notMining)

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down. Only the first call does any work.
func (s *State) Shutdown() error {
	var err error
	s.shutdown.Do(func() {
		s.evHandler("state: shutdown: started")
		defer s.evHandler("state: shutdown: completed")

		// Stop all blockchain writing activity.
		if s.Worker != nil {
			s.Worker.Shutdown()
		}

		// Drop every peer connection.
		for _, p := range s.peers.Copy() {
			p.Close()
			s.peers.Remove(p)
		}

		err = s.storage.Close()
	})

	return err
}
