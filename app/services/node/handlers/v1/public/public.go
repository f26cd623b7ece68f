// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/gjchain/business/web/errs"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/events"
	"github.com/ardanlabs/gjchain/foundation/nameservice"
	"github.com/ardanlabs/gjchain/foundation/validate"
	"github.com/ardanlabs/gjchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// CreateWallet generates a new wallet and returns its keys. The keys are
// only ever returned here.
func (h Handlers) CreateWallet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	wlt, err := h.State.CreateWallet(ctx)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}

	return web.Respond(ctx, w, wlt, http.StatusOK)
}

// Wallets returns the address and balance of every known wallet.
func (h Handlers) Wallets(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	wallets, err := h.State.QueryWallets(ctx)
	if err != nil {
		return fmt.Errorf("query wallets: %w", err)
	}

	infos := make([]walletInfo, len(wallets))
	for i, wlt := range wallets {
		infos[i] = walletInfo{
			Address: wlt.Address,
			Balance: wlt.Balance,
		}
		if h.NS != nil {
			if name := h.NS.Lookup(wlt.Address); name != wlt.Address {
				infos[i].Name = name
			}
		}
	}

	return web.Respond(ctx, w, infos, http.StatusOK)
}

// SubmitTransaction adds a new transfer to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(ntx); err != nil {
		return err
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "from", ntx.FromAddress, "to", ntx.ToAddress, "amount", ntx.Amount)

	if err := h.State.SubmitTransaction(ctx, ntx.FromAddress, ntx.ToAddress, ntx.Amount); err != nil {
		return errs.FromChain(err)
	}

	return web.Respond(ctx, w, message{Message: "Transaction added"}, http.StatusOK)
}

// Mine drains the mempool into a new block and waits for it to be mined.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req mineRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	h.Log.Infow("mine", "traceid", v.TraceID, "miner", req.MinerAddress)

	blk, err := h.State.MinePendingTransactions(ctx, req.MinerAddress)
	if err != nil {
		return errs.FromChain(err)
	}

	return web.Respond(ctx, w, blk, http.StatusOK)
}

// Chain returns the full chain reloaded from storage.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain, err := h.State.RetrieveChain(ctx)
	if err != nil {
		return fmt.Errorf("retrieve chain: %w", err)
	}

	return web.Respond(ctx, w, chain, http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	lookup := func(address string) string { return address }
	if h.NS != nil {
		lookup = h.NS.Lookup
	}

	return web.Respond(ctx, w, toTxs(h.State.QueryMempool(), lookup), http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
