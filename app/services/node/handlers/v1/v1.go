// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/gjchain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/gjchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/events"
	"github.com/ardanlabs/gjchain/foundation/nameservice"
	"github.com/ardanlabs/gjchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the public routes. The wallet, transaction, mining
// and chain routes are served without a version prefix.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodPost, "", "/wallet", pbl.CreateWallet)
	app.Handle(http.MethodGet, "", "/wallets", pbl.Wallets)
	app.Handle(http.MethodPost, "", "/transaction", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, "", "/mine", pbl.Mine)
	app.Handle(http.MethodGet, "", "/chain", pbl.Chain)

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/pool", pbl.Mempool)
}

// PrivateRoutes binds all the node to node routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
	}

	app.Handle(http.MethodGet, version, "/node/peers", prv.Peers)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}
