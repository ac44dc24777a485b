package gov

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

// TokenRegistry is the ordered list of governance tokens. Re-registering a
// token appends another entry.
type TokenRegistry struct {
	store state.KVStore
}

func NewTokenRegistry(store state.KVStore) TokenRegistry {
	return TokenRegistry{store: store}
}

// Validate checks a registration without writing it.
func (r TokenRegistry) Validate(kind types.TokenKind, name string) error {
	switch kind {
	case types.TokenKindFungible:
	case types.TokenKindNonFungible:
		return ErrUnsupportedTokenKind
	default:
		return ErrInvalidTokenKind
	}
	if !types.IsGovernanceTokenName(name) {
		return fmt.Errorf("%w: %q", ErrUnsupportedGovernanceToken, name)
	}
	return nil
}

func (r TokenRegistry) Register(handle common.Address, kind types.TokenKind, name string) error {
	if err := r.Validate(kind, name); err != nil {
		return err
	}
	n, err := getCounter(r.store, []byte(KeyTokenCount))
	if err != nil {
		return err
	}
	token := types.GovernanceToken{Handle: handle, Kind: kind, Name: name}
	if err = setRLP(r.store, []byte(fmt.Sprintf(KeyToken, n)), &token); err != nil {
		return err
	}
	return setCounter(r.store, []byte(KeyTokenCount), n+1)
}

func (r TokenRegistry) List() ([]types.GovernanceToken, error) {
	n, err := getCounter(r.store, []byte(KeyTokenCount))
	if err != nil {
		return nil, err
	}
	tokens := make([]types.GovernanceToken, 0, n)
	for i := uint64(0); i < n; i++ {
		var token types.GovernanceToken
		if _, err = getRLP(r.store, []byte(fmt.Sprintf(KeyToken, i)), &token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
