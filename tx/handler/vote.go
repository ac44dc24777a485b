package handler

import (
	"context"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/tx"
	"github.com/suyogster/agora-scores/types"
)

type VoteTxHandler struct {
	logger cmtlog.Logger
}

func NewVoteTxHandler(logger cmtlog.Logger) *VoteTxHandler {
	return &VoteTxHandler{logger: logger.With("module", "voteTx")}
}

func (h *VoteTxHandler) Check(ctx context.Context, btx *tx.AgoraTx) error {
	vtx, err := payload[tx.VoteTx](btx)
	if err != nil {
		return err
	}
	if _, ok := types.ParseVoteChoice(vtx.Vote); !ok {
		return gov.ErrInvalidVoteChoice
	}
	return nil
}

func (h *VoteTxHandler) Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error {
	vtx, err := payload[tx.VoteTx](btx)
	if err != nil {
		return err
	}
	_, err = engine.Vote(ctx, vtx.Proposal, vtx.Vote)
	return err
}
