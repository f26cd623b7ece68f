package peer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"github.com/gorilla/websocket"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// nopConn satisfies peer.Conn for tests that never touch the wire.
type nopConn struct{}

func (nopConn) ReadJSON(v any) error  { return errors.New("closed") }
func (nopConn) WriteJSON(v any) error { return nil }
func (nopConn) Close() error          { return nil }

func Test_CRUD(t *testing.T) {
	type table struct {
		name      string
		hosts     []string
		connected int
	}

	tt := []table{
		{
			name:      "basic",
			hosts:     []string{"host1", "host2", "host3"},
			connected: 2,
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			var peers []*peer.Peer
			for _, host := range tst.hosts {
				p := peer.New(host, nopConn{})
				if !ps.Add(p) {
					t.Fatalf("Test %s:\tShould be able to add peer %s.", tst.name, host)
				}
				if ps.Add(p) {
					t.Fatalf("Test %s:\tShould not add peer %s twice.", tst.name, host)
				}
				peers = append(peers, p)
			}

			if ps.Len() != len(tst.hosts) {
				t.Logf("Test %s:\tgot: %d", tst.name, ps.Len())
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.hosts))
				t.Fatalf("Test %s:\tShould hold every peer.", tst.name)
			}

			if got := len(ps.Copy()); got != 0 {
				t.Fatalf("Test %s:\tShould not copy peers still connecting, got %d.", tst.name, got)
			}

			for _, p := range peers[:tst.connected] {
				p.SetStatus(peer.Connected)
			}

			copied := ps.Copy()
			if len(copied) != tst.connected {
				t.Logf("Test %s:\tgot: %d", tst.name, len(copied))
				t.Logf("Test %s:\texp: %d", tst.name, tst.connected)
				t.Fatalf("Test %s:\tShould get back the connected peers.", tst.name)
			}

			ps.Remove(peers[0])
			if ps.Len() != len(tst.hosts)-1 || len(ps.Copy()) != tst.connected-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}

			peers[1].Close()
			if peers[1].Status() != peer.Disconnected || len(ps.Copy()) != tst.connected-2 {
				t.Fatalf("Test %s:\tShould not copy a disconnected peer.", tst.name)
			}
			if err := peers[1].Send(peer.BlockMessage{}); err == nil {
				t.Fatalf("Test %s:\tShould not send to a disconnected peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Messages(t *testing.T) {
	gen := block.New(0, "01/04/2025", nil, "0", "gjGenesis")
	blk := block.New(1, "2025-04-01T00:00:00.000Z", []block.Tx{block.NewTx("gja", "gjb", 5)}, gen.Hash, "gjminer")

	t.Log("Given the need to exchange messages between peers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen encoding a block message.", testID)
		{
			env, err := peer.Encode(peer.BlockMessage{Block: blk})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode: %v", failed, testID, err)
			}

			data, err := json.Marshal(env)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to marshal: %v", failed, testID, err)
			}
			if !strings.HasPrefix(string(data), `{"type":"block","data":{"index":1,`) {
				t.Fatalf("\t%s\tTest %d:\tShould produce the wire format: %s", failed, testID, data)
			}
			t.Logf("\t%s\tTest %d:\tShould produce the wire format.", success, testID)

			var back peer.Envelope
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal: %v", failed, testID, err)
			}
			msg, err := peer.Decode(back)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode: %v", failed, testID, err)
			}
			bm, ok := msg.(peer.BlockMessage)
			if !ok || bm.Block.Hash != blk.Hash || !bm.Block.IsSelfConsistent() {
				t.Fatalf("\t%s\tTest %d:\tShould get the block back: %T", failed, testID, msg)
			}
			t.Logf("\t%s\tTest %d:\tShould get the block back.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen decoding a chain message.", testID)
		{
			env, err := peer.Encode(peer.ChainMessage{Chain: []block.Block{gen, blk}})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode: %v", failed, testID, err)
			}

			msg, err := peer.Decode(env)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode: %v", failed, testID, err)
			}
			cm, ok := msg.(peer.ChainMessage)
			if !ok || len(cm.Chain) != 2 || cm.Chain[1].PreviousHash != gen.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould get the chain back.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get the chain back.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen decoding an unknown message.", testID)
		{
			_, err := peer.Decode(peer.Envelope{Type: "gossip", Data: json.RawMessage(`{}`)})
			if !errors.Is(err, peer.ErrUnknownMessage) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the message: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the message.", success, testID)
		}
	}
}

func Test_Dial(t *testing.T) {
	var upgrader websocket.Upgrader

	// The server echoes every envelope back to the client.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != peer.Path {
			http.NotFound(w, r)
			return
		}

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			var env peer.Envelope
			if err := c.ReadJSON(&env); err != nil {
				return
			}
			if err := c.WriteJSON(env); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	t.Log("Given the need to talk to a peer over a websocket.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen dialing a bare host.", testID)
		{
			host := strings.TrimPrefix(srv.URL, "http://")

			p, err := peer.Dial(context.Background(), host)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to dial: %v", failed, testID, err)
			}
			defer p.Close()
			p.SetStatus(peer.Connected)
			t.Logf("\t%s\tTest %d:\tShould be able to dial.", success, testID)

			blk := block.New(1, "2025-04-01T00:00:00.000Z", nil, "0", "gjminer")
			if err := p.Send(peer.BlockMessage{Block: blk}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to send: %v", failed, testID, err)
			}

			msg, err := p.Receive()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to receive: %v", failed, testID, err)
			}
			if bm, ok := msg.(peer.BlockMessage); !ok || bm.Block.Hash != blk.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould receive the same block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould send and receive a block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen dialing a host that is not listening.", testID)
		{
			if _, err := peer.Dial(context.Background(), "127.0.0.1:1"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to dial.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail to dial.", success, testID)
		}
	}
}
