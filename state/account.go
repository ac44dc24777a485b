package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyAccountNonce = "n/%x"
)

// Nonce returns the next expected transaction nonce of addr.
func Nonce(store KVStore, addr common.Address) (nonce uint64, err error) {
	val, err := store.Get([]byte(fmt.Sprintf(KeyAccountNonce, addr.Bytes())))
	if err != nil || val == nil {
		return 0, err
	}
	err = rlp.DecodeBytes(val, &nonce)
	return
}

func IncrementNonce(store KVStore, addr common.Address) (next uint64, err error) {
	nonce, err := Nonce(store, addr)
	if err != nil {
		return 0, err
	}
	next = nonce + 1
	val, err := rlp.EncodeToBytes(next)
	if err != nil {
		return 0, err
	}
	err = store.Set([]byte(fmt.Sprintf(KeyAccountNonce, addr.Bytes())), val)
	return
}
