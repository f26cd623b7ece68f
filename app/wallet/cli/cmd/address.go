package cmd

import (
	"fmt"

	"github.com/ardanlabs/gjchain/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address for the specific wallet",
	RunE:  addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) error {
	address, err := loadAddress()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), address)
	return nil
}

func loadAddress() (string, error) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return "", err
	}

	return wallet.FromPrivateKey(privateKey).Address, nil
}
