package handler

import (
	"context"
	"errors"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/tx"
)

var ErrEmptyPayload = errors.New("empty tx payload")

// TxHandler drives one tx type. Check runs on the mempool path and only
// validates the payload; Process executes it against the engine. The
// caller and block time are already carried by ctx.
type TxHandler interface {
	Check(ctx context.Context, btx *tx.AgoraTx) error
	Process(ctx context.Context, engine *gov.Engine, btx *tx.AgoraTx) error
}

// Handlers returns a handler for every supported tx type.
func Handlers(logger cmtlog.Logger) map[tx.AgoraTxType]TxHandler {
	return map[tx.AgoraTxType]TxHandler{
		tx.AgoraTxTypeWhitelist:      NewWhitelistTxHandler(logger),
		tx.AgoraTxTypeSetToken:       NewSetTokenTxHandler(logger),
		tx.AgoraTxTypeSetThreshold:   NewSetThresholdTxHandler(logger),
		tx.AgoraTxTypeSubmitProposal: NewSubmitProposalTxHandler(logger),
		tx.AgoraTxTypeVote:           NewVoteTxHandler(logger),
		tx.AgoraTxTypeCancelProposal: NewCancelProposalTxHandler(logger),
		tx.AgoraTxTypeCloseProposal:  NewCloseProposalTxHandler(logger),
	}
}

func payload[T any](btx *tx.AgoraTx) (*T, error) {
	p, ok := btx.Tx.(*T)
	if !ok || p == nil {
		return nil, ErrEmptyPayload
	}
	return p, nil
}
