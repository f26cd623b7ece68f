package cmd

import (
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount int64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transfer from your wallet",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the amount.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "a", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	if !wallet.IsAddress(to) {
		return fmt.Errorf("%q is not a wallet address", to)
	}

	from, err := loadAddress()
	if err != nil {
		return err
	}

	msg, err := newClient(nodeURL).send(from, to, amount)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
