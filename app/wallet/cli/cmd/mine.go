package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the pending transactions with your wallet as the miner",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) error {
	miner, err := loadAddress()
	if err != nil {
		return err
	}

	blk, err := newClient(nodeURL).mine(miner)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "block %d: nonce %d: hash %s: txs %d\n", blk.Index, blk.Nonce, blk.Hash, len(blk.Data))
	return nil
}
