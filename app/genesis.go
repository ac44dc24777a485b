package app

import (
	"context"
	"fmt"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/types"
)

// InitChain installs the genesis app state. Owner operations run through
// the engine with the owner as caller so they are checked like any tx.
func (app *AgoraApp) InitChain(ctx context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st, err := types.ParseGenesisAppState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app state fail", "err", err)
		return nil, err
	}
	if err = app.db.Set([]byte(KeyChainId), []byte(chain.ChainId)); err != nil {
		return nil, err
	}
	app.chainId = chain.ChainId
	if err = app.access.setOwner(st.Owner); err != nil {
		return nil, err
	}
	for _, addr := range st.Automated {
		if err = app.access.markAutomated(addr); err != nil {
			return nil, err
		}
	}

	octx := gov.WithBlockTime(gov.WithCaller(ctx, st.Owner), chain.Time)
	for _, t := range st.Tokens {
		err = app.engine.SetGovernanceToken(octx, t.Address, types.ParseTokenKind(t.Type), t.Name)
		if err != nil {
			app.logger.Error("InitChain set token fail", "name", t.Name, "err", err)
			return nil, fmt.Errorf("genesis token %s: %w", t.Name, err)
		}
	}
	for _, addr := range st.Whitelist {
		if err = app.engine.WhitelistAddress(octx, addr); err != nil {
			return nil, err
		}
	}
	if st.Threshold != nil {
		if err = app.engine.SetMinimumThreshold(octx, st.Threshold); err != nil {
			return nil, err
		}
	}
	if len(st.Balances) > 0 && app.cfg.TokenRPC != "" {
		app.logger.Info("genesis balances ignored for remote tokens", "count", len(st.Balances))
	} else {
		for _, b := range st.Balances {
			if b.Amount == nil {
				return nil, fmt.Errorf("genesis balance of %s: missing amount", b.Holder.Hex())
			}
			book := app.oracle.Book(types.GovernanceToken{Handle: b.Token})
			if err = book.Mint(b.Holder, b.Amount); err != nil {
				return nil, fmt.Errorf("genesis balance of %s: %w", b.Holder.Hex(), err)
			}
		}
	}
	app.pending = nil
	app.logger.Info("InitChain", "chain", chain.ChainId, "owner", st.Owner.Hex(),
		"tokens", len(st.Tokens), "whitelist", len(st.Whitelist))
	return &abcitypes.ResponseInitChain{
		AppHash: app.db.WorkingHash(),
	}, nil
}
