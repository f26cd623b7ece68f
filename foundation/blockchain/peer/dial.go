package peer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// Path is the route a node serves peer connections on.
const Path = "/v1/node/peers"

// Dial opens a connection to the node at the specified host. The host can
// be a bare host:port or a ws:// url.
func Dial(ctx context.Context, host string) (*Peer, error) {
	target, err := peerURL(host)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	return New(host, conn), nil
}

// peerURL forms the websocket url for the specified host.
func peerURL(host string) (string, error) {
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		u = &url.URL{Scheme: "ws", Host: host}
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported peer scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = Path
	}

	return u.String(), nil
}
