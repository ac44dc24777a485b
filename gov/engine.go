package gov

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

const (
	MinProposalDuration = 24 * time.Hour
	CancelGraceWindow   = 3 * time.Hour
)

type Option func(e *Engine)

func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithSink(sink NotificationSink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithLogger(logger cmtlog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// Engine runs the governance operations. It is the single writer of its
// store: every mutation goes through a CacheKV overlay that reaches the
// store only when the whole operation succeeded.
type Engine struct {
	mtx sync.RWMutex
	// set while the engine is calling out to token proxies
	boundary atomic.Bool

	store  state.KVStore
	access AccessControl
	oracle SnapshotOracle
	clock  Clock
	sink   NotificationSink
	logger cmtlog.Logger
	name   string
}

func NewEngine(store state.KVStore, access AccessControl, oracle SnapshotOracle, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		access: access,
		oracle: oracle,
		clock:  ContextClock{},
		sink:   nopSink{},
		logger: cmtlog.NewNopLogger(),
		name:   types.DefaultDAOName,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("module", "gov")
	return e
}

func (e *Engine) Name() string {
	return e.name
}

// update runs fn under the write lock against a fresh overlay. Events
// returned by fn are emitted only after the overlay has been written.
func (e *Engine) update(ctx context.Context, op string, fn func(store state.KVStore) ([]types.Event, error)) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	events, err := e.apply(op, fn)
	if err != nil {
		e.logger.Debug("operation rejected", "op", op, "err", err)
		return err
	}
	for _, ev := range events {
		e.sink.Emit(ctx, ev)
	}
	return nil
}

// apply runs with the write lock held and releases it.
func (e *Engine) apply(op string, fn func(store state.KVStore) ([]types.Event, error)) ([]types.Event, error) {
	defer e.mtx.Unlock()
	cache := state.NewCacheKV(e.store)
	events, err := fn(cache)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if err = cache.Write(); err != nil {
		e.logger.Error("write state fail", "op", op, "err", err)
		return nil, fmt.Errorf("%s: write state: %w", op, err)
	}
	return events, nil
}

func (e *Engine) read(ctx context.Context, fn func(r Reader) error) error {
	if err := e.rlock(ctx); err != nil {
		return err
	}
	defer e.mtx.RUnlock()
	return fn(NewReader(e.store))
}

// lock takes the write lock unless the call is nested inside a token
// call-out. The boundary flag is raised before any proxy runs, so a
// proxy that calls back in, with whatever context, sees it and is
// refused instead of waiting on the lock its caller holds.
func (e *Engine) lock(ctx context.Context) error {
	if inSnapshotBoundary(ctx) {
		return ErrReentrantCall
	}
	if e.mtx.TryLock() {
		return nil
	}
	if e.boundary.Load() {
		return ErrReentrantCall
	}
	e.mtx.Lock()
	return nil
}

func (e *Engine) rlock(ctx context.Context) error {
	if inSnapshotBoundary(ctx) {
		return ErrReentrantCall
	}
	if e.mtx.TryRLock() {
		return nil
	}
	if e.boundary.Load() {
		return ErrReentrantCall
	}
	e.mtx.RLock()
	return nil
}

// callOut marks the engine as inside a token call-out until the returned
// func runs. It is only called with the write lock held.
func (e *Engine) callOut(ctx context.Context) (context.Context, func()) {
	e.boundary.Store(true)
	return enterSnapshotBoundary(ctx), func() { e.boundary.Store(false) }
}

func (e *Engine) requireOwner(ctx context.Context) error {
	caller, err := e.access.CurrentCaller(ctx)
	if err != nil {
		return err
	}
	owner, err := e.access.Owner(ctx)
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrNotOwner
	}
	return nil
}

func (e *Engine) requireDirect(ctx context.Context, addr common.Address) error {
	automated, err := e.access.IsAutomatedAccount(ctx, addr)
	if err != nil {
		return err
	}
	if automated {
		return ErrAutomatedCaller
	}
	return nil
}

func (e *Engine) WhitelistAddress(ctx context.Context, addr common.Address) error {
	return e.update(ctx, "whitelist", func(store state.KVStore) ([]types.Event, error) {
		if err := e.requireOwner(ctx); err != nil {
			return nil, err
		}
		return nil, NewWhitelist(store).Add(addr)
	})
}

func (e *Engine) SetGovernanceToken(ctx context.Context, handle common.Address, kind types.TokenKind, name string) error {
	return e.update(ctx, "set_token", func(store state.KVStore) ([]types.Event, error) {
		if err := e.requireOwner(ctx); err != nil {
			return nil, err
		}
		if err := NewTokenRegistry(store).Register(handle, kind, name); err != nil {
			return nil, err
		}
		e.logger.Info("governance token registered", "name", name, "address", handle.Hex(), "type", kind.String())
		return nil, nil
	})
}

// SetMinimumThreshold stores the threshold. It is kept for configuration
// only and does not gate any operation.
func (e *Engine) SetMinimumThreshold(ctx context.Context, amount *uint256.Int) error {
	return e.update(ctx, "set_threshold", func(store state.KVStore) ([]types.Event, error) {
		if err := e.requireOwner(ctx); err != nil {
			return nil, err
		}
		if amount == nil || amount.IsZero() {
			return nil, ErrInvalidAmount
		}
		return nil, setRLP(store, []byte(KeyMinimumThreshold), amount)
	})
}

func (e *Engine) SubmitProposal(ctx context.Context, endTime time.Time, ipfsHash string) (id uint64, err error) {
	err = e.update(ctx, "submit_proposal", func(store state.KVStore) ([]types.Event, error) {
		caller, err := e.access.CurrentCaller(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := NewWhitelist(store).Contains(caller)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotWhitelisted
		}
		if err = e.requireDirect(ctx, caller); err != nil {
			return nil, err
		}
		now := e.clock.Now(ctx)
		if !endTime.After(now.Add(MinProposalDuration)) {
			return nil, ErrInvalidEndTime
		}

		snapshotIds, err := e.takeSnapshots(ctx, store)
		if err != nil {
			return nil, err
		}

		proposals := NewProposalStore(store)
		id, err = proposals.NextID()
		if err != nil {
			return nil, err
		}
		p := &types.Proposal{
			Id:          id,
			Creator:     caller,
			CreateTime:  now.UTC(),
			EndTime:     endTime.UTC(),
			IpfsHash:    ipfsHash,
			Status:      types.ProposalStatusActive,
			SnapshotIds: snapshotIds,
		}
		if err = proposals.Put(p); err != nil {
			return nil, err
		}
		e.logger.Info("proposal submitted", "id", id, "creator", caller.Hex(), "end", p.EndTime)
		return []types.Event{&types.EventProposalSubmitted{ProposalId: id, Creator: caller}}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// takeSnapshots checkpoints every registered token once, in registry order.
// The oracle runs inside the snapshot boundary: any engine call it makes
// fails with ErrReentrantCall.
func (e *Engine) takeSnapshots(ctx context.Context, store state.KVStore) (map[string]uint64, error) {
	tokens, err := NewTokenRegistry(store).List()
	if err != nil {
		return nil, err
	}
	bctx, leave := e.callOut(ctx)
	defer leave()
	taken := make(map[common.Address]uint64, len(tokens))
	snapshotIds := make(map[string]uint64, len(tokens))
	for _, token := range tokens {
		sid, ok := taken[token.Handle]
		if !ok {
			proxy, err := e.oracle.Proxy(bctx, token)
			if err != nil {
				return nil, fmt.Errorf("token %s: %w", token.Name, err)
			}
			sid, err = proxy.Snapshot(bctx)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", token.Name, err)
			}
			taken[token.Handle] = sid
		}
		snapshotIds[token.Name] = sid
	}
	for _, sid := range snapshotIds {
		if sid != 0 {
			return snapshotIds, nil
		}
	}
	return nil, ErrNoUsableSnapshot
}

func (e *Engine) Vote(ctx context.Context, proposalId uint64, choice string) (vote *types.TokenVote, err error) {
	err = e.update(ctx, "vote", func(store state.KVStore) ([]types.Event, error) {
		voter, err := e.access.CurrentCaller(ctx)
		if err != nil {
			return nil, err
		}
		if err = e.requireDirect(ctx, voter); err != nil {
			return nil, err
		}
		p, err := NewProposalStore(store).Get(proposalId)
		if err != nil {
			return nil, err
		}
		if p.Status != types.ProposalStatusActive {
			return nil, ErrInvalidProposalState
		}
		c, ok := types.ParseVoteChoice(choice)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVoteChoice, choice)
		}
		ledger := NewVoteLedger(store)
		existing, err := ledger.Get(proposalId, voter)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateVote
		}
		weight, err := e.votingWeight(ctx, store, p, voter)
		if err != nil {
			return nil, err
		}
		if weight.IsZero() {
			return nil, ErrNoVotingWeight
		}

		vote = &types.TokenVote{Choice: c, Weight: weight}
		if err = ledger.Record(proposalId, voter, vote); err != nil {
			return nil, err
		}
		if err = NewTallyStore(store).Add(proposalId, c, weight); err != nil {
			return nil, err
		}
		e.logger.Info("vote cast", "proposal", proposalId, "voter", voter.Hex(), "vote", c.String(), "power", weight.Dec())
		return []types.Event{&types.EventVoteCast{ProposalId: proposalId, Voter: voter, Choice: c, Weight: weight.Clone()}}, nil
	})
	if err != nil {
		return nil, err
	}
	return vote, nil
}

// votingWeight sums the voter's balances at the proposal's snapshots.
// Tokens without a captured snapshot are not queried, and a token
// registered more than once is counted once per snapshot.
func (e *Engine) votingWeight(ctx context.Context, store state.KVStore, p *types.Proposal, voter common.Address) (*uint256.Int, error) {
	tokens, err := NewTokenRegistry(store).List()
	if err != nil {
		return nil, err
	}
	type source struct {
		handle     common.Address
		snapshotId uint64
	}
	bctx, leave := e.callOut(ctx)
	defer leave()
	counted := make(map[source]bool, len(tokens))
	total := new(uint256.Int)
	for _, token := range tokens {
		sid := p.SnapshotId(token.Name)
		if sid == 0 {
			continue
		}
		src := source{handle: token.Handle, snapshotId: sid}
		if counted[src] {
			continue
		}
		counted[src] = true
		proxy, err := e.oracle.Proxy(bctx, token)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", token.Name, err)
		}
		balance, err := proxy.BalanceAt(bctx, voter, sid)
		if err != nil {
			return nil, fmt.Errorf("balance of %s at %s snapshot %d: %w", voter.Hex(), token.Name, sid, err)
		}
		if balance == nil {
			continue
		}
		if _, overflow := total.AddOverflow(total, balance); overflow {
			return nil, ErrWeightOverflow
		}
	}
	return total, nil
}

func (e *Engine) CancelProposal(ctx context.Context, proposalId uint64) error {
	return e.update(ctx, "cancel_proposal", func(store state.KVStore) ([]types.Event, error) {
		caller, err := e.access.CurrentCaller(ctx)
		if err != nil {
			return nil, err
		}
		proposals := NewProposalStore(store)
		p, err := proposals.Get(proposalId)
		if err != nil {
			return nil, err
		}
		if p.Status != types.ProposalStatusActive {
			return nil, ErrInvalidProposalState
		}
		if p.Creator != caller {
			return nil, ErrNotCreator
		}
		if e.clock.Now(ctx).After(p.CreateTime.Add(CancelGraceWindow)) {
			return nil, ErrGraceWindowExpired
		}
		p.Status = types.ProposalStatusCanceled
		if err = proposals.Put(p); err != nil {
			return nil, err
		}
		e.logger.Info("proposal canceled", "id", proposalId)
		return []types.Event{&types.EventProposalCanceled{ProposalId: proposalId}}, nil
	})
}

// CloseProposal may be called by anyone once the end time is reached.
func (e *Engine) CloseProposal(ctx context.Context, proposalId uint64) error {
	return e.update(ctx, "close_proposal", func(store state.KVStore) ([]types.Event, error) {
		proposals := NewProposalStore(store)
		p, err := proposals.Get(proposalId)
		if err != nil {
			return nil, err
		}
		if p.Status != types.ProposalStatusActive {
			return nil, ErrInvalidProposalState
		}
		if e.clock.Now(ctx).Before(p.EndTime) {
			return nil, ErrEndTimeNotReached
		}
		p.Status = types.ProposalStatusClosed
		if err = proposals.Put(p); err != nil {
			return nil, err
		}
		e.logger.Info("proposal closed", "id", proposalId)
		return []types.Event{&types.EventProposalClosed{ProposalId: proposalId}}, nil
	})
}

func (e *Engine) WhitelistedAddresses(ctx context.Context) (list []common.Address, err error) {
	err = e.read(ctx, func(r Reader) error {
		list, err = r.WhitelistedAddresses()
		return err
	})
	return
}

func (e *Engine) GovernanceTokenInfo(ctx context.Context) (tokens []types.GovernanceToken, err error) {
	err = e.read(ctx, func(r Reader) error {
		tokens, err = r.GovernanceTokenInfo()
		return err
	})
	return
}

func (e *Engine) MinimumThreshold(ctx context.Context) (threshold *uint256.Int, err error) {
	err = e.read(ctx, func(r Reader) error {
		threshold, err = r.MinimumThreshold()
		return err
	})
	return
}

func (e *Engine) LastProposalID(ctx context.Context) (id uint64, err error) {
	err = e.read(ctx, func(r Reader) error {
		id, err = r.LastProposalID()
		return err
	})
	return
}

func (e *Engine) GetProposal(ctx context.Context, proposalId uint64) (view *types.ProposalView, err error) {
	err = e.read(ctx, func(r Reader) error {
		view, err = r.GetProposal(proposalId)
		return err
	})
	return
}

// GetVote returns nil, nil when voter has no vote on the proposal.
func (e *Engine) GetVote(ctx context.Context, voter common.Address, proposalId uint64) (vote *types.TokenVote, err error) {
	err = e.read(ctx, func(r Reader) error {
		vote, err = r.GetVote(voter, proposalId)
		return err
	})
	return
}

func (e *Engine) GetVoteDetail(ctx context.Context, proposalId, offset, limit uint64) (page *types.VoteDetailPage, err error) {
	err = e.read(ctx, func(r Reader) error {
		page, err = r.GetVoteDetail(proposalId, offset, limit)
		return err
	})
	return
}

func (e *Engine) VotersCount(ctx context.Context, proposalId uint64) (n uint64, err error) {
	err = e.read(ctx, func(r Reader) error {
		n, err = r.VotersCount(proposalId)
		return err
	})
	return
}
