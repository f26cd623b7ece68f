// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
}

// Peers upgrades the request into a gossip connection with the calling
// node. The handler returns when the connection closes.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.Log.Infow("peer connected", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr)

	h.State.HandlePeer(ctx, peer.New(r.RemoteAddr, c))

	return nil
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}
