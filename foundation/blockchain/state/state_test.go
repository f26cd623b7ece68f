package state_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gjchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/gjchain/foundation/blockchain/worker"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alice = "gjalice"
	bob   = "gjbob"
	miner = "gjminer"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// newState constructs a node over memory storage. The returned channel is
// closed the first time an event with the watch prefix is raised.
func newState(t *testing.T, difficulty uint16, balances map[string]int64, watch string) (*state.State, chan struct{}) {
	t.Helper()

	return newStateOn(t, memory.New(), difficulty, balances, watch)
}

func newStateOn(t *testing.T, strg storage.Storage, difficulty uint16, balances map[string]int64, watch string) (*state.State, chan struct{}) {
	t.Helper()

	log := zaptest.NewLogger(t).Sugar()

	seen := make(chan struct{})
	var once sync.Once

	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if watch != "" && strings.HasPrefix(s, watch) {
			once.Do(func() { close(seen) })
		}
	}

	gen := genesis.Default()
	gen.Difficulty = difficulty
	gen.Balances = balances

	st, err := state.New(context.Background(), state.Config{
		Host:      "localhost:0",
		Storage:   strg,
		Genesis:   gen,
		Peers:     peer.NewPeerSet(),
		EvHandler: ev,
	})
	ifErrFailNow(t, err)

	return st, seen
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("\t%s\tTimed out waiting for %s.", failed, what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func balanceOf(t *testing.T, st *state.State, address string) int64 {
	t.Helper()

	balance, err := st.QueryBalance(context.Background(), address)
	ifErrFailNow(t, err)

	return balance
}

// =============================================================================

func Test_SubmitAndMine(t *testing.T) {
	ctx := context.Background()

	st, _ := newState(t, 1, map[string]int64{alice: 100}, "")
	worker.Run(st, nil, nil)
	defer st.Shutdown()

	t.Log("Given the need to submit and mine transactions.")
	{
		genesisHash := st.RetrieveLatestBlock().Hash

		testID := 0
		t.Logf("\tTest %d:\tWhen alice sends 5 to bob and the block is mined.", testID)
		{
			if err := st.SubmitTransaction(ctx, alice, bob, 5); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to submit.", success, testID)

			blk, err := st.MinePendingTransactions(ctx, miner)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to mine.", success, testID)

			chain, err := st.RetrieveChain(ctx)
			ifErrFailNow(t, err)

			if len(chain) != 2 || chain[1].Hash != blk.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould have a chain of two blocks, got %d.", failed, testID, len(chain))
			}
			if blk.Index != 1 || blk.PreviousHash != genesisHash || blk.Miner != miner {
				t.Fatalf("\t%s\tTest %d:\tShould link the block to genesis: %+v", failed, testID, blk)
			}
			if !block.IsHashSolved(1, blk.Hash) || !blk.IsSelfConsistent() {
				t.Fatalf("\t%s\tTest %d:\tShould have a solved hash.", failed, testID)
			}
			if len(blk.Data) != 1 || blk.Data[0] != block.NewTx(alice, bob, 5) {
				t.Fatalf("\t%s\tTest %d:\tShould carry the transaction: %+v", failed, testID, blk.Data)
			}
			t.Logf("\t%s\tTest %d:\tShould link a solved block to genesis.", success, testID)

			if a, b, m := balanceOf(t, st, alice), balanceOf(t, st, bob), balanceOf(t, st, miner); a != 95 || b != 5 || m != 10 {
				t.Fatalf("\t%s\tTest %d:\tShould settle balances, got alice[%d] bob[%d] miner[%d].", failed, testID, a, b, m)
			}
			t.Logf("\t%s\tTest %d:\tShould settle balances and pay the reward.", success, testID)

			if n := st.QueryMempoolLength(); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould drain the mempool, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould drain the mempool.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the sender can't cover the amount.", testID)
		{
			if err := st.SubmitTransaction(ctx, "gjnobody", bob, 1); !errors.Is(err, state.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an unknown sender: %v", failed, testID, err)
			}
			if err := st.SubmitTransaction(ctx, bob, alice, 6); !errors.Is(err, state.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an amount above the balance: %v", failed, testID, err)
			}
			if err := st.SubmitTransaction(ctx, bob, alice, 0); !errors.Is(err, state.ErrInvalidAmount) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a zero amount: %v", failed, testID, err)
			}
			if n := st.QueryMempoolLength(); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the mempool empty, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the transactions.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen two pending transfers together overdraw.", testID)
		{
			ifErrFailNow(t, st.SubmitTransaction(ctx, bob, alice, 4))
			ifErrFailNow(t, st.SubmitTransaction(ctx, bob, alice, 4))
			t.Logf("\t%s\tTest %d:\tShould accept both transfers.", success, testID)

			if _, err := st.MinePendingTransactions(ctx, miner); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
			}
			if b := balanceOf(t, st, bob); b != -3 {
				t.Fatalf("\t%s\tTest %d:\tShould overdraw bob, got %d.", failed, testID, b)
			}
			t.Logf("\t%s\tTest %d:\tShould overdraw bob.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining an empty mempool.", testID)
		{
			blk, err := st.MinePendingTransactions(ctx, miner)
			if err != nil || len(blk.Data) != 0 || blk.Index != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould mine a reward only block: %v", failed, testID, err)
			}
			if m := balanceOf(t, st, miner); m != 30 {
				t.Fatalf("\t%s\tTest %d:\tShould pay the reward, got %d.", failed, testID, m)
			}
			t.Logf("\t%s\tTest %d:\tShould mine a reward only block.", success, testID)
		}
	}
}

func Test_Wallets(t *testing.T) {
	ctx := context.Background()

	st, _ := newState(t, 1, nil, "")
	defer st.Shutdown()

	t.Log("Given the need to create wallets.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen creating a wallet.", testID)
		{
			w, err := st.CreateWallet(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create a wallet: %v", failed, testID, err)
			}
			if !strings.HasPrefix(w.Address, "gj") || len(w.Address) != 18 || w.PublicKey == "" || w.PrivateKey == "" {
				t.Fatalf("\t%s\tTest %d:\tShould get a complete wallet: %+v", failed, testID, w)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to create a wallet.", success, testID)

			wallets, err := st.QueryWallets(ctx)
			if err != nil || len(wallets) != 1 || wallets[0].Address != w.Address || wallets[0].Balance != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould list the wallet with a zero balance: %v", failed, testID, err)
			}
			if wallets[0].PrivateKey != "" {
				t.Fatalf("\t%s\tTest %d:\tShould not list the keys.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould list the wallet with a zero balance.", success, testID)
		}
	}
}

func Test_BadAddresses(t *testing.T) {
	ctx := context.Background()

	strg, err := disk.New(t.TempDir())
	ifErrFailNow(t, err)

	st, _ := newStateOn(t, strg, 1, map[string]int64{alice: 100}, "")
	worker.Run(st, nil, nil)
	defer st.Shutdown()

	t.Log("Given the need to keep addresses that can't be stored out of the chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the receiver can't be stored.", testID)
		{
			err := st.SubmitTransaction(ctx, alice, "../bob", 5)
			if !errors.Is(err, storage.ErrInvalidAddress) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the transaction: %v", failed, testID, err)
			}
			if n := st.QueryMempoolLength(); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the pool empty, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the miner can't be stored.", testID)
		{
			ifErrFailNow(t, st.SubmitTransaction(ctx, alice, bob, 5))

			_, err := st.MinePendingTransactions(ctx, "bad/miner")
			if !errors.Is(err, storage.ErrInvalidAddress) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to mine: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse to mine.", success, testID)

			if a, b := balanceOf(t, st, alice), balanceOf(t, st, bob); a != 100 || b != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not touch balances: alice %d bob %d", failed, testID, a, b)
			}
			if n := st.QueryMempoolLength(); n != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the transfer pending, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould not touch balances.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a good miner mines the pending transfer.", testID)
		{
			if _, err := st.MinePendingTransactions(ctx, miner); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
			}

			got := map[string]int64{alice: balanceOf(t, st, alice), bob: balanceOf(t, st, bob), miner: balanceOf(t, st, miner)}
			exp := map[string]int64{alice: 95, bob: 5, miner: 10}
			for addr, balance := range exp {
				if got[addr] != balance {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, exp)
					t.Fatalf("\t%s\tTest %d:\tShould debit the sender once.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould debit the sender once.", success, testID)
		}
	}
}

// cancelOnIncrement cancels the caller's context on the first balance change
// once armed and fails any change made on a cancelled context.
type cancelOnIncrement struct {
	storage.Storage
	cancel context.CancelFunc
}

func (c *cancelOnIncrement) IncrementBalance(ctx context.Context, address string, delta int64) error {
	if c.cancel != nil {
		c.cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.Storage.IncrementBalance(ctx, address, delta)
}

func Test_SettleAfterSolve(t *testing.T) {
	strg := cancelOnIncrement{Storage: memory.New()}

	st, _ := newStateOn(t, &strg, 1, map[string]int64{alice: 100}, "")
	defer st.Shutdown()

	t.Log("Given the need to finish a block once its work is solved.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the request is cancelled during settlement.", testID)
		{
			ifErrFailNow(t, st.SubmitTransaction(context.Background(), alice, bob, 5))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			strg.cancel = cancel

			blk, err := st.MineNewBlock(ctx, miner)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould settle and append the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould settle and append the block.", success, testID)

			if st.RetrieveLatestBlock().Hash != blk.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould have the block as the tail.", failed, testID)
			}
			if a, b, m := balanceOf(t, st, alice), balanceOf(t, st, bob), balanceOf(t, st, miner); a != 95 || b != 5 || m != 10 {
				t.Fatalf("\t%s\tTest %d:\tShould settle every balance: alice %d bob %d miner %d", failed, testID, a, b, m)
			}
			if n := st.QueryMempoolLength(); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould drain the pool, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould settle every balance.", success, testID)
		}
	}
}

func Test_PeerBlocks(t *testing.T) {
	ctx := context.Background()

	st, _ := newState(t, 1, nil, "")
	defer st.Shutdown()

	t.Log("Given the need to accept blocks from peers.")
	{
		gen := st.RetrieveLatestBlock()
		from := peer.New("peer", nil)

		testID := 0
		t.Logf("\tTest %d:\tWhen the block does not extend the tail.", testID)
		{
			blk := block.New(1, block.Now(), nil, "deadbeef", "gjpeer")

			err := st.HandleMessage(ctx, from, peer.BlockMessage{Block: blk})
			if !errors.Is(err, ledger.ErrBlockRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block: %v", failed, testID, err)
			}
			if st.RetrieveLatestBlock().Hash != gen.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block and leave the chain unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the block extends the tail.", testID)
		{
			blk := block.New(1, block.Now(), []block.Tx{block.NewTx(alice, bob, 5)}, gen.Hash, "gjpeer")

			if err := st.HandleMessage(ctx, from, peer.BlockMessage{Block: blk}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the block: %v", failed, testID, err)
			}
			if st.RetrieveLatestBlock().Hash != blk.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould extend the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould extend the chain.", success, testID)

			if b := balanceOf(t, st, bob); b != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not settle a peer block, got %d.", failed, testID, b)
			}
			t.Logf("\t%s\tTest %d:\tShould not settle a peer block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a chain snapshot arrives.", testID)
		{
			err := st.HandleMessage(ctx, from, peer.ChainMessage{Chain: []block.Block{gen}})
			if err != nil || st.RetrieveLatestBlock().Index != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould ignore the snapshot: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould ignore the snapshot.", success, testID)
		}
	}
}

func Test_CancelMining(t *testing.T) {
	ctx := context.Background()

	// A difficulty this large is never solved so the search only ends by
	// cancellation.
	st, started := newState(t, block.MaxDifficulty, nil, "state: MineNewBlock: MINING: perform POW")
	worker.Run(st, nil, nil)
	defer st.Shutdown()

	t.Log("Given the need to stop mining when a competing block arrives.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer block lands at the height being mined.", testID)
		{
			gen := st.RetrieveLatestBlock()

			type result struct {
				blk block.Block
				err error
			}
			done := make(chan result, 1)

			go func() {
				blk, err := st.MinePendingTransactions(ctx, miner)
				done <- result{blk, err}
			}()

			select {
			case <-started:
			case <-time.After(10 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould start mining.", failed, testID)
			}

			competing := block.New(1, block.Now(), nil, gen.Hash, "gjpeer")
			if err := st.ProcessPeerBlock(ctx, competing); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the competing block: %v", failed, testID, err)
			}

			select {
			case res := <-done:
				if !errors.Is(res.err, context.Canceled) {
					t.Fatalf("\t%s\tTest %d:\tShould cancel the search: %v", failed, testID, res.err)
				}
			case <-time.After(10 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould stop mining.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel the search.", success, testID)

			chain, err := st.RetrieveChain(ctx)
			if err != nil || len(chain) != 2 || chain[1].Hash != competing.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould keep the competing block: %v", failed, testID, err)
			}
			if m := balanceOf(t, st, miner); m != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not pay a reward, got %d.", failed, testID, m)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the competing block.", success, testID)
		}
	}
}

func Test_Gossip(t *testing.T) {
	ctx := context.Background()

	stA, _ := newState(t, 1, map[string]int64{alice: 100}, "")
	stB, _ := newState(t, 1, map[string]int64{alice: 100}, "")

	// Hijacked connections are not tracked by the test server so the
	// handlers are waited on before the test returns.
	var handlers sync.WaitGroup

	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		handlers.Add(1)
		defer handlers.Done()

		stB.HandlePeer(context.Background(), peer.New(r.RemoteAddr, c))
	}))
	defer srv.Close()
	defer handlers.Wait()
	defer stB.Shutdown()

	worker.Run(stA, []string{strings.TrimPrefix(srv.URL, "http://")}, nil)
	defer stA.Shutdown()

	t.Log("Given the need to gossip mined blocks to peers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a node connects to its seed.", testID)
		{
			waitFor(t, "the peers to connect", func() bool {
				return len(stA.RetrievePeers()) == 1 && len(stB.RetrievePeers()) == 1
			})
			t.Logf("\t%s\tTest %d:\tShould connect both sides.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a block is mined.", testID)
		{
			ifErrFailNow(t, stA.SubmitTransaction(ctx, alice, bob, 5))

			blk, err := stA.MinePendingTransactions(ctx, miner)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
			}

			waitFor(t, "the block to arrive", func() bool {
				return stB.RetrieveLatestBlock().Hash == blk.Hash
			})
			t.Logf("\t%s\tTest %d:\tShould append the block on the peer.", success, testID)

			status := stB.RetrieveStatus()
			if status.LatestBlockIndex != 1 || len(status.Peers) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould report the new status: %+v", failed, testID, status)
			}
			t.Logf("\t%s\tTest %d:\tShould report the new status.", success, testID)
		}
	}
}
