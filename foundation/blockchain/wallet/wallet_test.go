package wallet_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/gjchain/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Address(t *testing.T) {
	t.Log("Given the need to derive wallet addresses.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen using a known private key.", testID)
		{
			pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %v", failed, testID, err)
			}

			w1 := wallet.FromPrivateKey(pk)
			w2 := wallet.FromPrivateKey(pk)

			if w1.Address != w2.Address || w1.Address != wallet.ToAddress(w1.PublicKey) {
				t.Fatalf("\t%s\tTest %d:\tShould derive the same address every time.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould derive the same address every time: %s", success, testID, w1.Address)

			if !strings.HasPrefix(w1.Address, "gj") || !wallet.IsAddress(w1.Address) {
				t.Fatalf("\t%s\tTest %d:\tShould be a gj address: %s", failed, testID, w1.Address)
			}
			t.Logf("\t%s\tTest %d:\tShould be a gj address.", success, testID)

			back, err := crypto.HexToECDSA(w1.PrivateKey)
			if err != nil || wallet.PublicKeyString(back.PublicKey) != w1.PublicKey {
				t.Fatalf("\t%s\tTest %d:\tShould round trip the private key: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould round trip the private key.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen generating new wallets.", testID)
		{
			w1, err := wallet.Generate()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a wallet: %v", failed, testID, err)
			}
			w2, err := wallet.Generate()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a wallet: %v", failed, testID, err)
			}

			if w1.Address == w2.Address {
				t.Fatalf("\t%s\tTest %d:\tShould get different addresses.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get different addresses.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen validating address formats.", testID)
		{
			for _, addr := range []string{"", "gjGenesis", "xx0123456789abcdef", "gj0123456789abcdeg"} {
				if wallet.IsAddress(addr) {
					t.Fatalf("\t%s\tTest %d:\tShould reject %q.", failed, testID, addr)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject malformed addresses.", success, testID)
		}
	}
}
