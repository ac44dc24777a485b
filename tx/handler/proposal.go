package handler

import (
	"context"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/tx"
)

type SubmitProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewSubmitProposalTxHandler(logger cmtlog.Logger) *SubmitProposalTxHandler {
	return &SubmitProposalTxHandler{logger: logger.With("module", "submitProposalTx")}
}

func (h *SubmitProposalTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	stx, err := payload[tx.SubmitProposalTx](btx)
	if err != nil {
		return err
	}
	if stx.EndTime <= 0 {
		return gov.ErrInvalidEndTime
	}
	return nil
}

func (h *SubmitProposalTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	stx, err := payload[tx.SubmitProposalTx](btx)
	if err != nil {
		return err
	}
	id, err := engine.SubmitProposal(ctx, time.Unix(stx.EndTime, 0).UTC(), stx.IpfsHash)
	if err != nil {
		return err
	}
	h.logger.Debug("proposal id assigned", "id", id, "sender", btx.Sender.Hex())
	return nil
}

type CancelProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewCancelProposalTxHandler(logger cmtlog.Logger) *CancelProposalTxHandler {
	return &CancelProposalTxHandler{logger: logger.With("module", "cancelProposalTx")}
}

func (h *CancelProposalTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	_, err := payload[tx.CancelProposalTx](btx)
	return err
}

func (h *CancelProposalTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	ptx, err := payload[tx.CancelProposalTx](btx)
	if err != nil {
		return err
	}
	return engine.CancelProposal(ctx, ptx.Proposal)
}

type CloseProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewCloseProposalTxHandler(logger cmtlog.Logger) *CloseProposalTxHandler {
	return &CloseProposalTxHandler{logger: logger.With("module", "closeProposalTx")}
}

func (h *CloseProposalTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	_, err := payload[tx.CloseProposalTx](btx)
	return err
}

func (h *CloseProposalTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	ptx, err := payload[tx.CloseProposalTx](btx)
	if err != nil {
		return err
	}
	return engine.CloseProposal(ctx, ptx.Proposal)
}
