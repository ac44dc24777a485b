package gov

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/suyogster/agora-scores/state"
)

// Whitelist is the set of addresses allowed to submit proposals. It only
// grows; insertion order is kept for listing.
type Whitelist struct {
	store state.KVStore
}

func NewWhitelist(store state.KVStore) Whitelist {
	return Whitelist{store: store}
}

func (w Whitelist) Contains(addr common.Address) (bool, error) {
	val, err := w.store.Get([]byte(fmt.Sprintf(KeyWhitelisted, addr.Bytes())))
	return val != nil, err
}

// Add is idempotent.
func (w Whitelist) Add(addr common.Address) error {
	ok, err := w.Contains(addr)
	if err != nil || ok {
		return err
	}
	n, err := getCounter(w.store, []byte(KeyWhitelistCount))
	if err != nil {
		return err
	}
	if err = w.store.Set([]byte(fmt.Sprintf(KeyWhitelistIndex, n)), addr.Bytes()); err != nil {
		return err
	}
	if err = w.store.Set([]byte(fmt.Sprintf(KeyWhitelisted, addr.Bytes())), []byte{1}); err != nil {
		return err
	}
	return setCounter(w.store, []byte(KeyWhitelistCount), n+1)
}

func (w Whitelist) List() ([]common.Address, error) {
	n, err := getCounter(w.store, []byte(KeyWhitelistCount))
	if err != nil {
		return nil, err
	}
	list := make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		val, err := w.store.Get([]byte(fmt.Sprintf(KeyWhitelistIndex, i)))
		if err != nil {
			return nil, err
		}
		list = append(list, common.BytesToAddress(val))
	}
	return list, nil
}
