package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain held by the node",
	RunE:  chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
}

func chainRun(cmd *cobra.Command, args []string) error {
	chain, err := newClient(nodeURL).chain()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, blk := range chain {
		fmt.Fprintf(out, "%d %s prev[%s] miner[%s]\n", blk.Index, blk.Hash, blk.PreviousHash, blk.Miner)
		for _, tx := range blk.Data {
			fmt.Fprintf(out, "    %s\n", tx)
		}
	}

	return nil
}
