package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/state"
)

var (
	KeyOwner     = "o"
	KeyAutomated = "a/%x"
	KeyChainId   = "c"
)

var _ gov.AccessControl = &chainAccess{}

// chainAccess answers identity questions from chain state. The caller is
// the signature-verified sender placed on the context by FinalizeBlock.
type chainAccess struct {
	store state.KVStore
}

func (a *chainAccess) CurrentCaller(ctx context.Context) (common.Address, error) {
	caller, ok := gov.CallerFromContext(ctx)
	if !ok {
		return common.Address{}, gov.ErrNoCaller
	}
	return caller, nil
}

func (a *chainAccess) Owner(ctx context.Context) (common.Address, error) {
	val, err := a.store.Get([]byte(KeyOwner))
	if err != nil {
		return common.Address{}, err
	}
	if val == nil {
		return common.Address{}, fmt.Errorf("owner not set")
	}
	return common.BytesToAddress(val), nil
}

func (a *chainAccess) IsAutomatedAccount(ctx context.Context, addr common.Address) (bool, error) {
	val, err := a.store.Get([]byte(fmt.Sprintf(KeyAutomated, addr.Bytes())))
	return val != nil, err
}

func (a *chainAccess) setOwner(owner common.Address) error {
	return a.store.Set([]byte(KeyOwner), owner.Bytes())
}

func (a *chainAccess) markAutomated(addr common.Address) error {
	return a.store.Set([]byte(fmt.Sprintf(KeyAutomated, addr.Bytes())), []byte{1})
}
