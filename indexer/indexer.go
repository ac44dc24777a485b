package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/suyogster/agora-scores/types"
)

// BlockSource is the subset of the CometBFT RPC client the indexer reads from.
type BlockSource interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error)
	ABCIQuery(ctx context.Context, path string, data bytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

var _ BlockSource = (*comethttp.HTTP)(nil)

type eventHandler func(ctx context.Context, store *Store, event abci.Event, height int64) error

// ChainIndexer follows committed blocks and mirrors governance events into
// the Store.
type ChainIndexer struct {
	logger   cmtlog.Logger
	store    *Store
	cli      BlockSource
	interval time.Duration
	Height   int64

	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, store *Store, chainUrl string, interval time.Duration) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	return newChainIndexer(logger, store, cli, interval)
}

func newChainIndexer(logger cmtlog.Logger, store *Store, cli BlockSource, interval time.Duration) (*ChainIndexer, error) {
	h, err := store.LastHeight()
	if err != nil {
		return nil, err
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		store:    store,
		cli:      cli,
		interval: interval,
		Height:   int64(h + 1),
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposalSubmittedType: c.handleEventProposalSubmitted,
		types.EventProposalCanceledType:  c.handleEventProposalSettled(types.ProposalStatusCanceled),
		types.EventProposalClosedType:    c.handleEventProposalSettled(types.ProposalStatusClosed),
		types.EventVoteCastType:          c.handleEventVoteCast,
	}
	return c, nil
}

func (c *ChainIndexer) handleEvent(ctx context.Context, store *Store, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(ctx, store, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventProposalSubmitted(ctx context.Context, store *Store, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalSubmitted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	proposal := &Proposal{
		Id:           ev.ProposalId,
		Creator:      ev.Creator.Hex(),
		Status:       types.ProposalStatusActive.String(),
		CreateHeight: uint64(height),
	}
	view, err := c.queryProposal(ctx, ev.ProposalId)
	if err != nil {
		c.logger.Error("query proposal fail", "proposal", ev.ProposalId, "err", err)
	} else {
		proposal.IpfsHash = view.IpfsHash
		proposal.CreateTimestamp = view.CreateTime.Unix()
		proposal.EndTimestamp = view.EndTime.Unix()
	}
	return store.SaveProposal(proposal)
}

func (c *ChainIndexer) handleEventProposalSettled(status types.ProposalStatus) eventHandler {
	return func(ctx context.Context, store *Store, event abci.Event, height int64) error {
		id, ok := types.DecodeEventProposalId(event)
		if !ok {
			c.logger.Error("decode event fail", "event", event)
			return nil
		}
		return store.SetProposalStatus(id, status.String(), uint64(height))
	}
}

func (c *ChainIndexer) handleEventVoteCast(ctx context.Context, store *Store, event abci.Event, height int64) error {
	ev := types.DecodeEventVoteCast(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	return store.AddVote(&ProposalVote{
		Proposal: ev.ProposalId,
		Voter:    ev.Voter.Hex(),
		Vote:     ev.Choice.String(),
		Power:    ev.Weight.Dec(),
		Height:   uint64(height),
	})
}

// queryProposal reads the proposal body that the submit event does not carry.
func (c *ChainIndexer) queryProposal(ctx context.Context, id uint64) (*types.ProposalView, error) {
	dat, err := json.Marshal(map[string]uint64{"proposal": id})
	if err != nil {
		return nil, err
	}
	res, err := c.cli.ABCIQuery(ctx, "/proposal", dat)
	if err != nil {
		return nil, err
	}
	if res.Response.Code != 0 {
		return nil, fmt.Errorf("query code %d: %s", res.Response.Code, res.Response.Log)
	}
	view := new(types.ProposalView)
	if err = json.Unmarshal(res.Response.Value, view); err != nil {
		return nil, err
	}
	return view, nil
}

// Sync indexes every block up to the latest committed height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	status, err := c.cli.Status(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	for status.SyncInfo.LatestBlockHeight >= c.Height {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = c.indexBlock(ctx, c.Height); err != nil {
			return err
		}
		c.Height++
	}
	return nil
}

// indexBlock applies a block's events and its height in one transaction,
// so a block that fails part way is retried from a clean state.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) error {
	results, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return fmt.Errorf("get block results %d: %w", height, err)
	}
	err = c.store.Batch(func(tx *Store) error {
		for _, res := range results.TxsResults {
			if res.Code != 0 {
				continue
			}
			for _, event := range res.Events {
				if err := c.handleEvent(ctx, tx, event, height); err != nil {
					return fmt.Errorf("index %s at %d: %w", event.Type, height, err)
				}
			}
		}
		if err := tx.SaveHeight(uint64(height)); err != nil {
			return fmt.Errorf("save height %d: %w", height, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Debug("indexed block", "height", height, "txs", len(results.TxsResults))
	return nil
}

// Start polls the chain until ctx is done.
func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		if err := c.Sync(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
