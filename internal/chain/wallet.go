package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a freshly generated key pair.
type Wallet struct {
	Address       string
	PrivateKeyHex string
}

func GenerateWallet() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Wallet{
		Address:       crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKeyHex: hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}

// ParsePrivateKey accepts a secp256k1 key as hex with or without 0x.
func ParsePrivateKey(keyHex string) (*ecdsa.PrivateKey, error) {
	k := strings.TrimSpace(keyHex)
	k = strings.TrimPrefix(strings.TrimPrefix(k, "0x"), "0X")
	if k == "" {
		return nil, ErrInvalidKey
	}
	key, err := crypto.HexToECDSA(k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// AddressFromKey derives the checksummed address of a hex private key.
func AddressFromKey(keyHex string) (string, error) {
	key, err := ParsePrivateKey(keyHex)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
