package handler

import (
	"context"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/tx"
	"github.com/suyogster/agora-scores/types"
)

type WhitelistTxHandler struct {
	logger cmtlog.Logger
}

func NewWhitelistTxHandler(logger cmtlog.Logger) *WhitelistTxHandler {
	return &WhitelistTxHandler{logger: logger.With("module", "whitelistTx")}
}

func (h *WhitelistTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	wtx, err := payload[tx.WhitelistTx](btx)
	if err != nil {
		return err
	}
	if wtx.Address == (common.Address{}) {
		return tx.ErrInvalidTx
	}
	return nil
}

func (h *WhitelistTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	wtx, err := payload[tx.WhitelistTx](btx)
	if err != nil {
		return err
	}
	return engine.WhitelistAddress(ctx, wtx.Address)
}

type SetTokenTxHandler struct {
	logger cmtlog.Logger
}

func NewSetTokenTxHandler(logger cmtlog.Logger) *SetTokenTxHandler {
	return &SetTokenTxHandler{logger: logger.With("module", "setTokenTx")}
}

func (h *SetTokenTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	_, err := payload[tx.SetTokenTx](btx)
	return err
}

// Process leaves kind and name validation to the engine so that the
// rejection carries the registry's error kind.
func (h *SetTokenTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	stx, err := payload[tx.SetTokenTx](btx)
	if err != nil {
		return err
	}
	return engine.SetGovernanceToken(ctx, stx.Address, types.ParseTokenKind(stx.Type), stx.Name)
}

type SetThresholdTxHandler struct {
	logger cmtlog.Logger
}

func NewSetThresholdTxHandler(logger cmtlog.Logger) *SetThresholdTxHandler {
	return &SetThresholdTxHandler{logger: logger.With("module", "setThresholdTx")}
}

func (h *SetThresholdTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	_, err := payload[tx.SetThresholdTx](btx)
	return err
}

func (h *SetThresholdTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	stx, err := payload[tx.SetThresholdTx](btx)
	if err != nil {
		return err
	}
	return engine.SetMinimumThreshold(ctx, stx.Amount)
}
