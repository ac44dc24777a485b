package app

import (
	"context"
	"errors"
	"fmt"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/tx"
)

const (
	CodeInvalidTx   uint32 = 2
	CodeInvalidSig  uint32 = 3
	CodeBadNonce    uint32 = 4
	CodeUnsupported uint32 = 5
)

var ErrChainNotInitialized = errors.New("chain not initialized")

// parseTx decodes and authenticates a tx. With allowNonceGap the nonce may
// be ahead of the committed one, as it is in the mempool.
func (app *AgoraApp) parseTx(store state.KVStore, txDat []byte, allowNonceGap bool) (btx *tx.AgoraTx, code uint32, err error) {
	btx, err = tx.UnmarshalAgoraTx(txDat)
	if err != nil {
		if errors.Is(err, tx.ErrUnsupportedTxType) {
			return nil, CodeUnsupported, err
		}
		return nil, CodeInvalidTx, err
	}
	if app.chainId == "" {
		return nil, CodeInvalidTx, ErrChainNotInitialized
	}
	if err = btx.Verify(app.chainId); err != nil {
		return nil, CodeInvalidSig, err
	}
	nonce, err := state.Nonce(store, btx.Sender)
	if err != nil {
		return nil, gov.CodeInternal, err
	}
	if btx.Nonce < nonce || (!allowNonceGap && btx.Nonce != nonce) {
		return nil, CodeBadNonce, fmt.Errorf("%w: expected %d, got %d", tx.ErrInvalidNonce, nonce, btx.Nonce)
	}
	return btx, 0, nil
}

func (app *AgoraApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	btx, code, err := app.parseTx(app.db.Committed(), check.Tx, true)
	if err != nil {
		app.logger.Debug("check tx fail", "err", err)
		app.metrics.checkReject.Inc()
		res.Code = code
		res.Log = err.Error()
		return res, nil
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		app.metrics.checkReject.Inc()
		res.Code = CodeUnsupported
		res.Log = tx.ErrUnsupportedTxType.Error()
		return res, nil
	}
	if err = h.Check(ctx, btx); err != nil {
		app.logger.Debug("check tx payload fail", "type", btx.Type, "err", err)
		app.metrics.checkReject.Inc()
		res.Code = gov.Code(err)
		if errors.Is(err, tx.ErrInvalidTx) {
			res.Code = CodeInvalidTx
		}
		res.Log = err.Error()
	}
	return res, nil
}

// PrepareProposal keeps the txs that decode and carry a valid signature,
// up to the block byte limit.
func (app *AgoraApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	res = &abcitypes.ResponsePrepareProposal{}
	var size int64
	for _, stx := range proposal.Txs {
		btx, err := tx.UnmarshalAgoraTx(stx)
		if err != nil {
			app.logger.Error("unsupported tx, parse fail", "err", err)
			continue
		}
		if err = btx.Verify(app.chainId); err != nil {
			app.logger.Error("drop tx, bad signature", "err", err)
			continue
		}
		size += int64(len(stx))
		if proposal.MaxTxBytes > 0 && size > proposal.MaxTxBytes {
			break
		}
		res.Txs = append(res.Txs, stx)
	}
	return res, nil
}

func (app *AgoraApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	for _, stx := range proposal.Txs {
		btx, err := tx.UnmarshalAgoraTx(stx)
		if err != nil {
			app.logger.Error("reject proposal, tx parse fail", "height", proposal.Height, "err", err)
			return res, nil
		}
		if err = btx.Verify(app.chainId); err != nil {
			app.logger.Error("reject proposal, bad signature", "height", proposal.Height, "err", err)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *AgoraApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		result, err := app.deliver(ctx, req, stx)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	app.metrics.blockTxs.Observe(float64(len(req.Txs)))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: results,
		AppHash:   app.db.WorkingHash(),
	}, nil
}

// deliver executes one tx. Rejections become result codes; only storage
// failures abort the block.
func (app *AgoraApp) deliver(ctx context.Context, req *abcitypes.RequestFinalizeBlock, stx []byte) (*abcitypes.ExecTxResult, error) {
	result := &abcitypes.ExecTxResult{}
	btx, code, err := app.parseTx(app.db, stx, false)
	if err != nil {
		if code == gov.CodeInternal {
			return nil, err
		}
		result.Code = code
		result.Log = err.Error()
		app.metrics.observeTx("invalid", code)
		return result, nil
	}
	if _, err = state.IncrementNonce(app.db, btx.Sender); err != nil {
		app.logger.Error("increment nonce fail", "sender", btx.Sender.Hex(), "err", err)
		return nil, err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		result.Code = CodeUnsupported
		result.Log = tx.ErrUnsupportedTxType.Error()
		app.metrics.observeTx(btx.Type.String(), result.Code)
		return result, nil
	}

	app.pending = nil
	tctx := gov.WithBlockTime(gov.WithCaller(ctx, btx.Sender), req.Time)
	err = h.Process(tctx, app.engine, btx)
	if err != nil {
		result.Code = gov.Code(err)
		result.Log = err.Error()
		app.logger.Info("tx rejected", "type", btx.Type.String(), "sender", btx.Sender.Hex(), "code", result.Code, "err", err)
	} else {
		result.Events = app.pending
	}
	app.pending = nil
	app.metrics.observeTx(btx.Type.String(), result.Code)
	return result, nil
}

func (app *AgoraApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, version, err := app.db.Commit()
	if err != nil {
		app.logger.Error("commit fail", "err", err)
		return nil, err
	}
	app.metrics.height.Set(float64(version))
	app.logger.Info("Commit", "version", version)
	return &abcitypes.ResponseCommit{}, nil
}
