// Package storagetest provides the checks every storage implementation
// must pass.
package storagetest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Run validates the behavior of the specified storage implementation. The
// storage must be empty.
func Run(t *testing.T, strg storage.Storage) {
	ctx := context.Background()

	t.Log("Given the need to store blocks and wallets.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the store is empty.", testID)
		{
			blocks, err := strg.Blocks(ctx)
			if err != nil || len(blocks) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould get no blocks: %d %v", failed, testID, len(blocks), err)
			}
			t.Logf("\t%s\tTest %d:\tShould get no blocks.", success, testID)

			if _, err := strg.GetBlock(ctx, 0); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get not found for a block: %v", failed, testID, err)
			}
			if _, err := strg.Wallet(ctx, "gjnobody"); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get not found for a wallet: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get not found errors.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen writing blocks out of order.", testID)
		{
			b0 := block.New(0, "01/04/2025", nil, "0", "gjGenesis")
			b1 := block.New(1, "2025-04-01T00:00:00.000Z", []block.Tx{block.NewTx("gja", "gjb", 5)}, b0.Hash, "gjminer")
			b2 := block.New(2, "2025-04-01T00:00:01.000Z", nil, b1.Hash, "gjminer")

			for _, blk := range []block.Block{b0, b2, b1} {
				if err := strg.WriteBlock(ctx, blk); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %v", failed, testID, blk.Index, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write blocks.", success, testID)

			blocks, err := strg.Blocks(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read blocks: %v", failed, testID, err)
			}
			if len(blocks) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould get three blocks, got %d.", failed, testID, len(blocks))
			}
			for i, blk := range blocks {
				if blk.Index != uint64(i) {
					t.Fatalf("\t%s\tTest %d:\tShould get blocks ordered by index, got %d at %d.", failed, testID, blk.Index, i)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get blocks ordered by index.", success, testID)

			got, err := strg.GetBlock(ctx, 1)
			if err != nil || got.Hash != b1.Hash || len(got.Data) != 1 || got.Data[0] != b1.Data[0] {
				t.Fatalf("\t%s\tTest %d:\tShould get block 1 back intact: %v", failed, testID, err)
			}
			if !got.IsSelfConsistent() {
				t.Fatalf("\t%s\tTest %d:\tShould get a self consistent block back.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get block 1 back intact.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen there is a gap between block indexes.", testID)
		{
			b5 := block.New(5, "2025-04-01T00:00:05.000Z", nil, "0", "gjminer")
			if err := strg.WriteBlock(ctx, b5); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write block 5: %v", failed, testID, err)
			}

			blocks, err := strg.Blocks(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read blocks: %v", failed, testID, err)
			}

			var got []uint64
			for _, blk := range blocks {
				got = append(got, blk.Index)
			}
			if want := []uint64{0, 1, 2, 5}; !slices.Equal(got, want) {
				t.Fatalf("\t%s\tTest %d:\tShould get every block past the gap: got %v, exp %v", failed, testID, got, want)
			}
			t.Logf("\t%s\tTest %d:\tShould get every block past the gap.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen writing and incrementing wallets.", testID)
		{
			w := storage.Wallet{Address: "gjalice", PublicKey: "pub", PrivateKey: "prv", Balance: 0}
			if err := strg.WriteWallet(ctx, w); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write a wallet: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write a wallet.", success, testID)

			if err := strg.IncrementBalance(ctx, "gjalice", 10); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to increment: %v", failed, testID, err)
			}
			if err := strg.IncrementBalance(ctx, "gjalice", -3); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decrement: %v", failed, testID, err)
			}
			if err := strg.IncrementBalance(ctx, "gjbob", 4); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create by increment: %v", failed, testID, err)
			}

			alice, err := strg.Wallet(ctx, "gjalice")
			if err != nil || alice.Balance != 7 || alice.PublicKey != "pub" {
				t.Fatalf("\t%s\tTest %d:\tShould keep the keys and apply deltas: %+v %v", failed, testID, alice, err)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the keys and apply deltas.", success, testID)

			bob, err := strg.Wallet(ctx, "gjbob")
			if err != nil || bob.Balance != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould create a missing wallet: %+v %v", failed, testID, bob, err)
			}
			t.Logf("\t%s\tTest %d:\tShould create a missing wallet.", success, testID)

			wallets, err := strg.Wallets(ctx)
			if err != nil || len(wallets) != 2 || wallets[0].Address != "gjalice" || wallets[1].Address != "gjbob" {
				t.Fatalf("\t%s\tTest %d:\tShould list wallets by address: %+v %v", failed, testID, wallets, err)
			}
			t.Logf("\t%s\tTest %d:\tShould list wallets by address.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen incrementing concurrently.", testID)
		{
			const g = 50

			var wg sync.WaitGroup
			wg.Add(g)
			for i := 0; i < g; i++ {
				go func() {
					defer wg.Done()
					strg.IncrementBalance(ctx, "gjcarol", 1)
				}()
			}
			wg.Wait()

			carol, err := strg.Wallet(ctx, "gjcarol")
			if err != nil || carol.Balance != g {
				t.Fatalf("\t%s\tTest %d:\tShould not lose increments: %d %v", failed, testID, carol.Balance, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not lose increments.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the address can't be used as a wallet key.", testID)
		{
			for _, address := range []string{"", "..", "bad/miner", `bad\miner`} {
				if err := strg.IncrementBalance(ctx, address, 1); !errors.Is(err, storage.ErrInvalidAddress) {
					t.Fatalf("\t%s\tTest %d:\tShould reject increment for %q: %v", failed, testID, address, err)
				}
				if err := strg.WriteWallet(ctx, storage.Wallet{Address: address}); !errors.Is(err, storage.ErrInvalidAddress) {
					t.Fatalf("\t%s\tTest %d:\tShould reject write for %q: %v", failed, testID, address, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject the address.", success, testID)

			wallets, err := strg.Wallets(ctx)
			if err != nil || len(wallets) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the wallets untouched: %+v %v", failed, testID, wallets, err)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the wallets untouched.", success, testID)
		}
	}
}
