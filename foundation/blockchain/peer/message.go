package peer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
)

// Set of errors returned for a message that can't be used. The connection
// is still good after these errors.
var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)

// IsMessageError reports whether the error is about a single message and
// not about the connection.
func IsMessageError(err error) bool {
	return errors.Is(err, ErrUnknownMessage) || errors.Is(err, ErrMalformedMessage)
}

// Type identifies the kind of message on the wire.
type Type string

// Set of message types exchanged between peers.
const (
	TypeChain Type = "chain"
	TypeBlock Type = "block"
)

// Envelope is the wire representation of every message.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message is implemented by the set of messages exchanged between peers.
// Use a type switch to handle the concrete message.
type Message interface {
	Type() Type
}

// ChainMessage carries a full snapshot of the chain. It is sent when a
// connection opens.
type ChainMessage struct {
	Chain []block.Block
}

// Type implements the Message interface.
func (ChainMessage) Type() Type { return TypeChain }

// BlockMessage carries a single newly mined block.
type BlockMessage struct {
	Block block.Block
}

// Type implements the Message interface.
func (BlockMessage) Type() Type { return TypeBlock }

// =============================================================================

// Encode converts the message into its wire representation.
func Encode(msg Message) (Envelope, error) {
	var payload any

	switch m := msg.(type) {
	case ChainMessage:
		payload = m.Chain
	case BlockMessage:
		payload = m.Block
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{Type: msg.Type(), Data: data}, nil
}

// Decode converts the wire representation into a concrete message.
func Decode(env Envelope) (Message, error) {
	switch env.Type {
	case TypeChain:
		var chain []block.Block
		if err := json.Unmarshal(env.Data, &chain); err != nil {
			return nil, fmt.Errorf("%w: chain: %v", ErrMalformedMessage, err)
		}
		return ChainMessage{Chain: chain}, nil

	case TypeBlock:
		var blk block.Block
		if err := json.Unmarshal(env.Data, &blk); err != nil {
			return nil, fmt.Errorf("%w: block: %v", ErrMalformedMessage, err)
		}
		return BlockMessage{Block: blk}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
}
