// Package wallet provides support for generating wallet key pairs and
// deriving wallet addresses from public keys.
package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is prepended to every wallet address.
const AddressPrefix = "gj"

// addressHashLength is the number of hex characters of the public key hash
// kept in the address.
const addressHashLength = 16

// Wallet represents a generated key pair and the address derived from it.
type Wallet struct {
	Address    string `json:"address"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// Generate constructs a new wallet with a new secp256k1 key pair.
func Generate() (Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generating key: %w", err)
	}

	return FromPrivateKey(privateKey), nil
}

// FromPrivateKey constructs the wallet for an existing private key.
func FromPrivateKey(privateKey *ecdsa.PrivateKey) Wallet {
	publicKey := PublicKeyString(privateKey.PublicKey)

	return Wallet{
		Address:    ToAddress(publicKey),
		PublicKey:  publicKey,
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(privateKey)),
	}
}

// PublicKeyString returns the hex encoding of the uncompressed public key.
func PublicKeyString(pk ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&pk))
}

// ToAddress derives the wallet address for the specified public key. The
// same public key always produces the same address.
func ToAddress(publicKey string) string {
	hash := sha256.Sum256([]byte(publicKey))
	return AddressPrefix + hex.EncodeToString(hash[:])[:addressHashLength]
}

// IsAddress validates the string is formatted as a wallet address.
func IsAddress(address string) bool {
	if len(address) != len(AddressPrefix)+addressHashLength {
		return false
	}

	if address[:len(AddressPrefix)] != AddressPrefix {
		return false
	}

	_, err := hex.DecodeString(address[len(AddressPrefix):])
	return err == nil
}
