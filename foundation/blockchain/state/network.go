package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"golang.org/x/sync/errgroup"
)

// NetConnectPeer makes a single attempt to open a connection to the node at
// the specified host. Call HandlePeer to start the conversation.
func (s *State) NetConnectPeer(ctx context.Context, host string) (*peer.Peer, error) {
	s.evHandler("state: NetConnectPeer: started: host[%s]", host)
	defer s.evHandler("state: NetConnectPeer: completed: host[%s]", host)

	return peer.Dial(ctx, host)
}

// HandlePeer runs the conversation with a connected peer. The current chain
// is sent first and then messages are processed until the connection closes
// or fails. The peer is removed from the peer set on return.
func (s *State) HandlePeer(ctx context.Context, p *peer.Peer) {
	s.evHandler("state: HandlePeer: started: peer[%s]", p)
	defer s.evHandler("state: HandlePeer: completed: peer[%s]", p)

	p.SetStatus(peer.Connected)
	s.peers.Add(p)

	defer func() {
		p.Close()
		s.peers.Remove(p)
		s.evHandler("viewer: peer disconnected: peer[%s]", p.Host)
	}()

	s.evHandler("viewer: peer connected: peer[%s]", p.Host)

	chain, err := s.ledger.LoadChain(ctx)
	if err != nil {
		s.evHandler("state: HandlePeer: load chain: ERROR: %s", err)
		return
	}

	if err := p.Send(peer.ChainMessage{Chain: chain}); err != nil {
		s.evHandler("state: HandlePeer: send chain: peer[%s]: ERROR: %s", p, err)
		return
	}

	for {
		msg, err := p.Receive()
		if err != nil {
			if peer.IsMessageError(err) {
				s.evHandler("state: HandlePeer: peer[%s]: dropping message: %s", p, err)
				continue
			}
			s.evHandler("state: HandlePeer: peer[%s]: receive: %s", p, err)
			return
		}

		if err := s.HandleMessage(ctx, p, msg); err != nil {
			s.evHandler("state: HandlePeer: peer[%s]: WARNING: %s", p, err)
		}
	}
}

// HandleMessage processes a single message received from a peer. A rejected
// block is reported to the caller and nothing is sent back to the peer.
func (s *State) HandleMessage(ctx context.Context, from *peer.Peer, msg peer.Message) error {
	switch m := msg.(type) {
	case peer.BlockMessage:
		return s.ProcessPeerBlock(ctx, m.Block)

	case peer.ChainMessage:

		// The chain snapshot is not used to reconcile with the peer.
		s.evHandler("state: HandleMessage: peer[%s]: chain received: blocks[%d]: ignored", from, len(m.Chain))
		return nil
	}

	return fmt.Errorf("%w: %T", peer.ErrUnknownMessage, msg)
}

// NetSendBlockToPeers takes the new mined block and sends it to all connected
// peers at the same time. A peer that can't be sent to is disconnected.
func (s *State) NetSendBlockToPeers(blk block.Block) error {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	var g errgroup.Group

	for _, p := range s.peers.Copy() {
		g.Go(func() error {
			if err := p.Send(peer.BlockMessage{Block: blk}); err != nil {
				p.Close()
				s.peers.Remove(p)
				return fmt.Errorf("%s: %w", p, err)
			}

			s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", p)
			return nil
		})
	}

	return g.Wait()
}
