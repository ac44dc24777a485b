package app

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/suyogster/agora-scores/config"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/token"
	"github.com/suyogster/agora-scores/tx"
	"github.com/suyogster/agora-scores/tx/handler"
	"github.com/suyogster/agora-scores/types"
)

var _ abcitypes.Application = &AgoraApp{}

type AgoraApp struct {
	cfg    *config.AgoraAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	access   *chainAccess
	oracle   *token.Oracle
	engine   *gov.Engine
	metrics  *Metrics
	txHdlrs  map[tx.AgoraTxType]handler.TxHandler
	queriers map[string]Querier

	chainId string
	pending []abcitypes.Event
}

// NewAgoraApp opens the state database under the app home and connects to
// the token RPC endpoint when one is configured.
func NewAgoraApp(cfg *config.AgoraAppConfig, logger cmtlog.Logger, registry prometheus.Registerer) (app *AgoraApp, err error) {
	logger = logger.With("module", "app")
	db, err := state.NewStateDB(cfg.DataDir(), logger)
	if err != nil {
		return nil, err
	}
	var client *rpc.Client
	if cfg.TokenRPC != "" {
		client, err = rpc.Dial(cfg.TokenRPC)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("using remote governance tokens", "url", cfg.TokenRPC)
	}
	return newAgoraApp(cfg, db, client, logger, registry)
}

func newAgoraApp(cfg *config.AgoraAppConfig, db *state.StateDB, client *rpc.Client, logger cmtlog.Logger, registry prometheus.Registerer) (app *AgoraApp, err error) {
	app = &AgoraApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		access:   &chainAccess{store: db},
		oracle:   token.NewOracle(db, client, logger),
		metrics:  NewMetrics(registry, types.AgoraModuleName),
		queriers: make(map[string]Querier),
	}
	app.engine = gov.NewEngine(db, app.access, app.oracle,
		gov.WithSink(gov.SinkFunc(app.collect)),
		gov.WithLogger(logger),
		gov.WithName(cfg.DAOName),
	)
	app.txHdlrs = handler.Handlers(logger)
	app.registerQuerier()

	val, err := db.Get([]byte(KeyChainId))
	if err != nil {
		return nil, err
	}
	app.chainId = string(val)
	return app, nil
}

// collect buffers the events of the tx being executed.
func (app *AgoraApp) collect(ctx context.Context, ev types.Event) {
	app.pending = append(app.pending, ev.Encode())
	app.metrics.events.WithLabelValues(ev.Type()).Inc()
}

func (app *AgoraApp) Stop() {
	app.oracle.Close()
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("agora app stopped")
}

func (app *AgoraApp) registerQuerier() {
	app.queriers["/name/"] = app.newQuerier(app.queryName)
	app.queriers["/whitelist/"] = app.newQuerier(queryWhitelist)
	app.queriers["/tokens/"] = app.newQuerier(queryTokens)
	app.queriers["/threshold/"] = app.newQuerier(queryThreshold)
	app.queriers["/last_proposal_id/"] = app.newQuerier(queryLastProposalId)
	app.queriers["/proposal/"] = app.newQuerier(queryProposal)
	app.queriers["/vote/"] = app.newQuerier(queryVote)
	app.queriers["/vote_detail/"] = app.newQuerier(queryVoteDetail)
	app.queriers["/voters_count/"] = app.newQuerier(queryVotersCount)
	app.queriers["/account/"] = app.newQuerier(queryAccount)
}

func (app *AgoraApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	return &abcitypes.ResponseInfo{
		Data:             app.engine.Name(),
		LastBlockHeight:  app.db.Version(),
		LastBlockAppHash: app.db.Hash(),
	}, nil
}

func (app *AgoraApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *AgoraApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *AgoraApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *AgoraApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *AgoraApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *AgoraApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
