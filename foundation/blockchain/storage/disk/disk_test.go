package disk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/storagetest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Storage(t *testing.T) {
	strg, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open the store: %v", failed, err)
	}
	defer strg.Close()

	storagetest.Run(t, strg)
}

func Test_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Log("Given the need to read back blocks written by an earlier process.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the block indexes have a gap.", testID)
		{
			strg, err := disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the store: %v", failed, testID, err)
			}

			b0 := block.New(0, "01/04/2025", nil, "0", "gjGenesis")
			b5 := block.New(5, "2025-04-01T00:00:05.000Z", nil, b0.Hash, "gjminer")
			for _, blk := range []block.Block{b0, b5} {
				if err := strg.WriteBlock(ctx, blk); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %v", failed, testID, blk.Index, err)
				}
			}

			for _, name := range []string{"notes.txt", "tip.json"} {
				if err := os.WriteFile(filepath.Join(dir, "blocks", name), []byte("{}"), 0600); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write %s: %v", failed, testID, name, err)
				}
			}

			reopened, err := disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen the store: %v", failed, testID, err)
			}

			blocks, err := reopened.Blocks(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read blocks: %v", failed, testID, err)
			}
			if len(blocks) != 2 || blocks[0].Hash != b0.Hash || blocks[1].Hash != b5.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould get both blocks back: %+v", failed, testID, blocks)
			}
			t.Logf("\t%s\tTest %d:\tShould get both blocks back.", success, testID)
		}
	}
}
