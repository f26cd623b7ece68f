package state

import (
	"context"

	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gjchain/foundation/blockchain/wallet"
)

// CreateWallet generates a new key pair and stores the wallet with a zero
// balance.
func (s *State) CreateWallet(ctx context.Context) (wallet.Wallet, error) {
	w, err := wallet.Generate()
	if err != nil {
		return wallet.Wallet{}, err
	}

	sw := storage.Wallet{
		Address:    w.Address,
		PublicKey:  w.PublicKey,
		PrivateKey: w.PrivateKey,
	}

	if err := s.storage.WriteWallet(ctx, sw); err != nil {
		return wallet.Wallet{}, err
	}

	s.evHandler("viewer: wallet created: address[%s]", w.Address)

	return w, nil
}

// QueryWallets returns the address and balance of every stored wallet. The
// keys are not returned.
func (s *State) QueryWallets(ctx context.Context) ([]storage.Wallet, error) {
	wallets, err := s.storage.Wallets(ctx)
	if err != nil {
		return nil, err
	}

	for i := range wallets {
		wallets[i].PublicKey = ""
		wallets[i].PrivateKey = ""
	}

	return wallets, nil
}

// QueryBalance returns the live balance for the specified address.
func (s *State) QueryBalance(ctx context.Context, address string) (int64, error) {
	return s.accounts.Balance(ctx, address)
}
