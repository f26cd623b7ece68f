package cmd

import (
	"fmt"
	"os"

	"github.com/ardanlabs/gjchain/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(walletPath, 0700); err != nil {
		return err
	}

	if err := crypto.SaveECDSA(getPrivateKeyPath(), privateKey); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), wallet.FromPrivateKey(privateKey).Address)
	return nil
}
