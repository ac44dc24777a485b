package token

import (
	"context"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

var _ gov.SnapshotOracle = &Oracle{}

// Oracle resolves registered tokens to proxies. Without an RPC client
// every token is a Book kept in store.
type Oracle struct {
	store  state.KVStore
	client *rpc.Client
	logger cmtlog.Logger
}

func NewOracle(store state.KVStore, client *rpc.Client, logger cmtlog.Logger) *Oracle {
	return &Oracle{
		store:  store,
		client: client,
		logger: logger.With("module", "token"),
	}
}

func (o *Oracle) Proxy(ctx context.Context, token types.GovernanceToken) (gov.TokenProxy, error) {
	switch token.Kind {
	case types.TokenKindFungible:
	case types.TokenKindNonFungible:
		return nil, gov.ErrUnsupportedTokenKind
	default:
		return nil, gov.ErrInvalidTokenKind
	}
	if o.client == nil {
		return NewBook(o.store, token.Handle), nil
	}
	o.logger.Debug("remote token", "name", token.Name, "address", token.Handle.Hex())
	return NewRPCProxy(o.client, token), nil
}

// Book returns the local ledger of a token address.
func (o *Oracle) Book(token types.GovernanceToken) *Book {
	return NewBook(o.store, token.Handle)
}

func (o *Oracle) Close() {
	if o.client != nil {
		o.client.Close()
	}
}
