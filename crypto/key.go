package crypto

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/suyogster/agora-scores/tx"
)

// Key is an account key that signs governance transactions.
type Key struct {
	priv *ecdsa.PrivateKey
}

// LoadKey reads a hex encoded secp256k1 key file.
func LoadKey(path string) (*Key, error) {
	priv, err := eth_crypto.LoadECDSA(path)
	if err != nil {
		return nil, err
	}
	return &Key{priv: priv}, nil
}

// GenerateKey creates a key and saves it to path.
func GenerateKey(path string) (*Key, error) {
	priv, err := eth_crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err = eth_crypto.SaveECDSA(path, priv); err != nil {
		return nil, err
	}
	return &Key{priv: priv}, nil
}

func (k *Key) Address() common.Address {
	return eth_crypto.PubkeyToAddress(k.priv.PublicKey)
}

func (k *Key) PublicKey() []byte {
	return eth_crypto.CompressPubkey(&k.priv.PublicKey)
}

func (k *Key) SignTx(btx *tx.AgoraTx, chainID string) error {
	return btx.Sign(k.priv, chainID)
}
