package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	address, err := loadAddress()
	if err != nil {
		return err
	}

	wallets, err := newClient(nodeURL).wallets()
	if err != nil {
		return err
	}

	var balance int64
	for _, w := range wallets {
		if w.Address == address {
			balance = w.Balance
			break
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", address, balance)
	return nil
}
