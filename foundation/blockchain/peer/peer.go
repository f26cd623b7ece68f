// Package peer maintains the peer related information such as the set
// of connected peers and their status.
package peer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Status represents the state of the connection to a peer.
type Status int

// Set of connection states a peer moves through.
const (
	Connecting Status = iota
	Connected
	Disconnected
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Conn represents the bidirectional message channel to a peer. A
// websocket connection satisfies this interface.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// =============================================================================

// Peer represents a connection to a node in the network.
type Peer struct {
	ID   string
	Host string

	conn   Conn
	wmu    sync.Mutex
	mu     sync.Mutex
	status Status
}

// New constructs a peer over an open connection. The peer starts in the
// Connecting state.
func New(host string, conn Conn) *Peer {
	return &Peer{
		ID:     uuid.NewString(),
		Host:   host,
		conn:   conn,
		status: Connecting,
	}
}

// String implements the fmt.Stringer interface.
func (p *Peer) String() string {
	return fmt.Sprintf("%s[%s]", p.Host, p.ID)
}

// Status returns the current connection state.
func (p *Peer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

// SetStatus changes the connection state.
func (p *Peer) SetStatus(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = status
}

// Send writes the message to the peer. Writes are serialized since the
// connection only supports one concurrent writer.
func (p *Peer) Send(msg Message) error {
	env, err := Encode(msg)
	if err != nil {
		return err
	}

	if p.Status() == Disconnected {
		return fmt.Errorf("peer %s: disconnected", p)
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()

	return p.conn.WriteJSON(env)
}

// Receive blocks until the next message arrives from the peer. Only one
// goroutine may call Receive.
func (p *Peer) Receive() (Message, error) {
	var env Envelope
	if err := p.conn.ReadJSON(&env); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return nil, err
	}

	return Decode(env)
}

// Close marks the peer as disconnected and closes the connection.
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == Disconnected {
		return nil
	}
	p.status = Disconnected

	return p.conn.Close()
}

// =============================================================================

// PeerStatus represents information about the status
// of any given node.
type PeerStatus struct {
	LatestBlockHash  string   `json:"latestBlockHash"`
	LatestBlockIndex uint64   `json:"latestBlockIndex"`
	Peers            []string `json:"peers"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of
// connected peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[string]*Peer
}

// NewPeerSet constructs a new set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[string]*Peer),
	}
}

// Add adds a new peer to the set.
func (ps *PeerSet) Add(peer *Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer.ID]
	if !exists {
		ps.set[peer.ID] = peer
		return true
	}

	return false
}

// Remove removes a peer from the set.
func (ps *PeerSet) Remove(peer *Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer.ID)
}

// Copy returns a list of the peers that are connected.
func (ps *PeerSet) Copy() []*Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]*Peer, 0, len(ps.set))
	for _, peer := range ps.set {
		if peer.Status() == Connected {
			peers = append(peers, peer)
		}
	}

	return peers
}

// Len returns the number of peers in the set.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}
