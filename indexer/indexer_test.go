package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyogster/agora-scores/types"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

type fakeChain struct {
	blocks    map[int64][]*abci.ExecTxResult
	proposals map[uint64]*types.ProposalView
	latest    int64
	statusErr error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		blocks:    make(map[int64][]*abci.ExecTxResult),
		proposals: make(map[uint64]*types.ProposalView),
	}
}

func (f *fakeChain) addBlock(results ...*abci.ExecTxResult) {
	f.latest++
	f.blocks[f.latest] = results
}

func (f *fakeChain) Status(ctx context.Context) (*ctypes.ResultStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: f.latest}}, nil
}

func (f *fakeChain) BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error) {
	return &ctypes.ResultBlockResults{Height: *height, TxsResults: f.blocks[*height]}, nil
}

func (f *fakeChain) ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
	var params struct {
		Proposal uint64 `json:"proposal"`
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	view, ok := f.proposals[params.Proposal]
	if !ok {
		return &ctypes.ResultABCIQuery{Response: abci.ResponseQuery{Code: 31, Log: "proposal not found"}}, nil
	}
	value, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	return &ctypes.ResultABCIQuery{Response: abci.ResponseQuery{Value: value}}, nil
}

func ok(events ...types.Event) *abci.ExecTxResult {
	res := &abci.ExecTxResult{}
	for _, ev := range events {
		res.Events = append(res.Events, ev.Encode())
	}
	return res
}

func newTestStore(t *testing.T) *Store {
	store, err := OpenStore(filepath.Join(t.TempDir(), "indexer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func vote(id uint64, voter common.Address, choice types.VoteChoice, power uint64) *types.EventVoteCast {
	return &types.EventVoteCast{ProposalId: id, Voter: voter, Choice: choice, Weight: uint256.NewInt(power)}
}

func TestSyncIndexesEvents(t *testing.T) {
	store := newTestStore(t)
	chain := newFakeChain()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	chain.proposals[1] = &types.ProposalView{Proposal: types.Proposal{
		Id: 1, Creator: alice, CreateTime: created, EndTime: created.Add(48 * time.Hour), IpfsHash: "ipfs://x",
	}}

	chain.addBlock(ok(&types.EventProposalSubmitted{ProposalId: 1, Creator: alice}))
	chain.addBlock(
		ok(vote(1, bob, types.VoteFor, 100)),
		ok(vote(1, carol, types.VoteFor, 20)),
		&abci.ExecTxResult{Code: 42, Events: []abci.Event{vote(1, bob, types.VoteAgainst, 5).Encode()}},
	)
	chain.addBlock(ok(&types.EventProposalSubmitted{ProposalId: 2, Creator: bob}))
	chain.addBlock(ok(&types.EventProposalClosed{ProposalId: 1}), ok(&types.EventProposalCanceled{ProposalId: 2}))

	indexer, err := newChainIndexer(cmtlog.NewNopLogger(), store, chain, time.Second)
	require.NoError(t, err)
	require.NoError(t, indexer.Sync(context.Background()))
	assert.Equal(t, int64(5), indexer.Height)

	h, err := store.LastHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), h)

	p, err := store.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, alice.Hex(), p.Creator)
	assert.Equal(t, "ipfs://x", p.IpfsHash)
	assert.Equal(t, created.Unix(), p.CreateTimestamp)
	assert.Equal(t, "120", p.ForVoices)
	assert.Equal(t, "0", p.AgainstVoices)
	assert.Equal(t, uint64(2), p.Voters)
	assert.Equal(t, "closed", p.Status)
	assert.Equal(t, uint64(4), p.SettleHeight)

	p, err = store.Proposal(2)
	require.NoError(t, err)
	assert.Equal(t, "canceled", p.Status)
	assert.Empty(t, p.IpfsHash)

	votes, total, err := store.VotesByVoter(bob.Hex(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, votes, 1)
	assert.Equal(t, "100", votes[0].Power)

	// a restarted indexer resumes after the saved height
	chain.addBlock(ok(vote(2, alice, types.VoteAbstain, 1)))
	indexer, err = newChainIndexer(cmtlog.NewNopLogger(), store, chain, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(5), indexer.Height)
	require.NoError(t, indexer.Sync(context.Background()))
	p, err = store.Proposal(2)
	require.NoError(t, err)
	assert.Equal(t, "1", p.AbstainVoices)
}

func TestSyncStatusError(t *testing.T) {
	chain := newFakeChain()
	chain.statusErr = errors.New("connection refused")
	indexer, err := newChainIndexer(cmtlog.NewNopLogger(), newTestStore(t), chain, time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, indexer.Sync(context.Background()), chain.statusErr)
}

func TestSyncRetriesFailedBlockCleanly(t *testing.T) {
	store := newTestStore(t)
	chain := newFakeChain()
	chain.addBlock(ok(&types.EventProposalSubmitted{ProposalId: 1, Creator: alice}))
	// the close of an unknown proposal fails the block after the vote applied
	chain.addBlock(ok(vote(1, bob, types.VoteFor, 10)), ok(&types.EventProposalClosed{ProposalId: 7}))

	indexer, err := newChainIndexer(cmtlog.NewNopLogger(), store, chain, time.Second)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, indexer.Sync(context.Background()), ErrNotFound)
		assert.Equal(t, int64(2), indexer.Height)
	}

	h, err := store.LastHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h)
	p, err := store.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, "0", p.ForVoices)
	assert.Zero(t, p.Voters)
	_, total, err := store.VotesByProposal(1, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	chain.blocks[2] = []*abci.ExecTxResult{ok(vote(1, bob, types.VoteFor, 10))}
	require.NoError(t, indexer.Sync(context.Background()))
	p, err = store.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, "10", p.ForVoices)
	assert.Equal(t, uint64(1), p.Voters)
}

func TestAddVoteSkipsDuplicate(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveProposal(&Proposal{Id: 1, Creator: alice.Hex(), Status: "active"}))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AddVote(&ProposalVote{Proposal: 1, Voter: bob.Hex(), Vote: "for", Power: "10", Height: 2}))
	}
	require.NoError(t, store.AddVote(&ProposalVote{Proposal: 1, Voter: carol.Hex(), Vote: "against", Power: "4", Height: 2}))

	p, err := store.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, "10", p.ForVoices)
	assert.Equal(t, "4", p.AgainstVoices)
	assert.Equal(t, uint64(2), p.Voters)
	_, total, err := store.VotesByProposal(1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)

	// the unique index backs the skip for rows written around AddVote
	err = store.db.Create(&ProposalVote{Proposal: 1, Voter: bob.Hex(), Vote: "for", Power: "1"}).Error
	assert.Error(t, err)
}

func TestBatchRollsBack(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveProposal(&Proposal{Id: 1, Creator: alice.Hex(), Status: "active"}))
	boom := errors.New("boom")
	err := store.Batch(func(tx *Store) error {
		require.NoError(t, tx.AddVote(&ProposalVote{Proposal: 1, Voter: bob.Hex(), Vote: "for", Power: "10"}))
		require.NoError(t, tx.SaveHeight(5))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	h, err := store.LastHeight()
	require.NoError(t, err)
	assert.Zero(t, h)
	p, err := store.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, "0", p.ForVoices)
	assert.Zero(t, p.Voters)
}

func TestStartStopsOnCancel(t *testing.T) {
	chain := newFakeChain()
	chain.addBlock(ok(&types.EventProposalSubmitted{ProposalId: 1, Creator: alice}))
	store := newTestStore(t)
	indexer, err := newChainIndexer(cmtlog.NewNopLogger(), store, chain, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		indexer.Start(ctx)
	}()
	require.Eventually(t, func() bool {
		h, err := store.LastHeight()
		return err == nil && h == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestStorePaging(t *testing.T) {
	store := newTestStore(t)
	for i := uint64(1); i <= 5; i++ {
		creator := alice
		if i%2 == 0 {
			creator = bob
		}
		require.NoError(t, store.SaveProposal(&Proposal{Id: i, Creator: creator.Hex(), Status: "active"}))
	}
	require.NoError(t, store.SetProposalStatus(3, "closed", 9))
	assert.ErrorIs(t, store.SetProposalStatus(9, "closed", 9), ErrNotFound)

	tests := []struct {
		name     string
		filter   ProposalFilter
		page     int
		size     int
		expected []uint64
		total    uint64
	}{
		{"all", ProposalFilter{}, 0, 0, []uint64{5, 4, 3, 2, 1}, 5},
		{"second page", ProposalFilter{}, 1, 2, []uint64{3, 2}, 5},
		{"by creator", ProposalFilter{Creator: bob.Hex()}, 0, 10, []uint64{4, 2}, 2},
		{"by status", ProposalFilter{Status: "active"}, 0, 10, []uint64{5, 4, 2, 1}, 4},
		{"past end", ProposalFilter{}, 3, 2, []uint64{}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposals, total, err := store.Proposals(tt.filter, tt.page, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			ids := make([]uint64, 0, len(proposals))
			for _, p := range proposals {
				ids = append(ids, p.Id)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	_, err := store.Proposal(42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.AddVote(&ProposalVote{Proposal: 1, Voter: bob.Hex(), Vote: "for", Power: "x"}), ErrInvalidVoices)
	assert.ErrorIs(t, store.AddVote(&ProposalVote{Proposal: 1, Voter: bob.Hex(), Vote: "maybe", Power: "1"}), ErrInvalidVoices)
	votes, total, err := store.VotesByProposal(1, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, votes)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestService(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveProposal(&Proposal{Id: 1, Creator: alice.Hex(), Status: "active"}))
	require.NoError(t, store.SaveProposal(&Proposal{Id: 2, Creator: bob.Hex(), Status: "active"}))
	require.NoError(t, store.AddVote(&ProposalVote{Proposal: 1, Voter: bob.Hex(), Vote: "against", Power: "7", Height: 3}))
	require.NoError(t, store.SaveHeight(3))
	h := NewService("127.0.0.1:0", store, cmtlog.NewNopLogger()).Handler()

	w := post(t, h, "/getProposals", GetProposalsReq{ProposalId: 1})
	require.Equal(t, http.StatusOK, w.Code)
	var proposals GetProposalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposals))
	require.Len(t, proposals.Proposals, 1)
	assert.Equal(t, "7", proposals.Proposals[0].AgainstVoices)

	w = post(t, h, "/getProposals", GetProposalsReq{ProposalId: 9})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, h, "/getProposals", GetProposalsReq{Creator: "0x0000000000000000000000000000000000000B0B"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposals))
	assert.Equal(t, uint64(1), proposals.Total)
	assert.Equal(t, uint64(2), proposals.Proposals[0].Id)

	w = post(t, h, "/getVotes", GetVotesReq{Voter: "0x0000000000000000000000000000000000000b0b"})
	require.Equal(t, http.StatusOK, w.Code)
	var votes GetVotesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &votes))
	require.Len(t, votes.Votes, 1)
	assert.Equal(t, uint64(1), votes.Votes[0].Proposal)

	w = post(t, h, "/getVotes", GetVotesReq{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/getVotes", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/height", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"height":3}`, rec.Body.String())
}
