// Package nameservice reads the zblock/wallets folder and creates a name
// service lookup for the wallet addresses.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/gjchain/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of wallet addresses for name lookup.
type NameService struct {
	addresses map[string]string
}

// New constructs a name service with the key files found under root. The
// name of each key file without the .ecdsa extension becomes the name of
// the address derived from the key. A missing root produces an empty
// name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		addresses: make(map[string]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			if fileName == root && d == nil {
				return fs.SkipDir
			}
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		address := wallet.FromPrivateKey(privateKey).Address
		ns.addresses[address] = strings.TrimSuffix(filepath.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address. The address is
// returned when no name is known.
func (ns *NameService) Lookup(address string) string {
	name, exists := ns.addresses[address]
	if !exists {
		return address
	}
	return name
}

// Copy returns a copy of the map of addresses and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.addresses))
	for address, name := range ns.addresses {
		cpy[address] = name
	}
	return cpy
}
