package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	cmtcrypto "github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
)

var ErrMissingPubKey = errors.New("validator key has no pub_key")

// ValidatorKey is the public half of a node's consensus key. The private
// key in priv_validator_key.json is decoded but never retained.
type ValidatorKey struct {
	PubKey  cmtcrypto.PubKey
	Address cmtcrypto.Address
}

func LoadValidatorKey(path string) (*ValidatorKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fileKey privval.FilePVKey
	if err = cmtjson.Unmarshal(raw, &fileKey); err != nil {
		return nil, fmt.Errorf("decode validator key %s: %w", path, err)
	}
	if fileKey.PubKey == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingPubKey)
	}
	return &ValidatorKey{PubKey: fileKey.PubKey, Address: fileKey.PubKey.Address()}, nil
}

// String renders the key the way `agora keys pubkey --validator` prints it:
// lower-case hex pubkey and the upper-case hex address CometBFT logs.
func (k *ValidatorKey) String() string {
	return fmt.Sprintf("pubkey: %s\naddress: %s", hex.EncodeToString(k.PubKey.Bytes()), k.Address)
}
