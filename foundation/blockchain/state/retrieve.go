package state

import (
	"context"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveChain reloads the chain from storage and returns it.
func (s *State) RetrieveChain(ctx context.Context) ([]block.Block, error) {
	return s.ledger.LoadChain(ctx)
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() block.Block {
	return s.ledger.LatestBlock()
}

// RetrievePeers retrieves a copy of the connected peers.
func (s *State) RetrievePeers() []*peer.Peer {
	return s.peers.Copy()
}

// RetrieveStatus returns the status of this node.
func (s *State) RetrieveStatus() peer.PeerStatus {
	latest := s.ledger.LatestBlock()

	peers := s.peers.Copy()
	hosts := make([]string, 0, len(peers))
	for _, p := range peers {
		hosts = append(hosts, p.Host)
	}

	return peer.PeerStatus{
		LatestBlockHash:  latest.Hash,
		LatestBlockIndex: latest.Index,
		Peers:            hosts,
	}
}
