package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"testing"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyogster/agora-scores/config"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/tx"
	"github.com/suyogster/agora-scores/types"
)

const testChainId = "agora-test"

var (
	crownAddr = common.HexToAddress("0x0000000000000000000000000000000000c20e11")
	t0        = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type testChain struct {
	t      *testing.T
	app    *AgoraApp
	owner  *ecdsa.PrivateKey
	alice  *ecdsa.PrivateKey
	bob    *ecdsa.PrivateKey
	height int64
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func addr(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

func newTestChain(t *testing.T) *testChain {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	cfg := config.DefaultAgoraAppConfig(t.TempDir())
	app, err := newAgoraApp(cfg, db, nil, cmtlog.NewNopLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(app.Stop)

	c := &testChain{t: t, app: app, owner: newKey(t), alice: newKey(t), bob: newKey(t)}
	appState := types.GenesisAppState{
		Owner:     addr(c.owner),
		Whitelist: []common.Address{addr(c.alice)},
		Tokens:    []types.GenesisToken{{Address: crownAddr, Type: "irc-2", Name: types.TokenCrown}},
		Balances:  []types.GenesisBalance{{Token: crownAddr, Holder: addr(c.bob), Amount: uint256.NewInt(100)}},
		Threshold: uint256.NewInt(10),
	}
	raw, err := json.Marshal(appState)
	require.NoError(t, err)
	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		Time:          t0,
		ChainId:       testChainId,
		AppStateBytes: raw,
	})
	require.NoError(t, err)
	return c
}

func (c *testChain) signed(key *ecdsa.PrivateKey, nonce uint64, typ tx.AgoraTxType, payload any) []byte {
	btx := &tx.AgoraTx{Version: tx.AgoraTxVersion1, Type: typ, Nonce: nonce, Tx: payload}
	require.NoError(c.t, btx.Sign(key, testChainId))
	dat, err := tx.MarshalAgoraTx(btx)
	require.NoError(c.t, err)
	return dat
}

func (c *testChain) block(at time.Time, txs ...[]byte) []*abcitypes.ExecTxResult {
	c.height++
	res, err := c.app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Txs:    txs,
		Height: c.height,
		Time:   at,
	})
	require.NoError(c.t, err)
	_, err = c.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	return res.TxResults
}

func (c *testChain) query(path string, params *QueryParams, out any) *abcitypes.ResponseQuery {
	var data []byte
	if params != nil {
		var err error
		data, err = json.Marshal(params)
		require.NoError(c.t, err)
	}
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(c.t, err)
	if out != nil && res.Code == 0 {
		require.NoError(c.t, json.Unmarshal(res.Value, out))
	}
	return res
}

func TestProposalLifecycleThroughBlocks(t *testing.T) {
	c := newTestChain(t)

	submit := c.signed(c.alice, 0, tx.AgoraTxTypeSubmitProposal, &tx.SubmitProposalTx{
		EndTime:  t0.Add(48 * time.Hour).Unix(),
		IpfsHash: "ipfs://x",
	})
	results := c.block(t0.Add(time.Minute), submit)
	require.Len(t, results, 1)
	require.Zero(t, results[0].Code, results[0].Log)
	require.Len(t, results[0].Events, 1)
	assert.Equal(t, types.EventProposalSubmittedType, results[0].Events[0].Type)

	var view types.ProposalView
	res := c.query("/proposal", &QueryParams{Proposal: 1}, &view)
	require.Zero(t, res.Code, res.Log)
	assert.Equal(t, int64(1), res.Height)
	assert.Equal(t, addr(c.alice), view.Creator)
	assert.Equal(t, uint64(1), view.SnapshotId(types.TokenCrown))

	results = c.block(t0.Add(2*time.Minute),
		c.signed(c.bob, 0, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "for"}),
		c.signed(c.alice, 1, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "for"}),
		c.signed(c.bob, 1, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "against"}),
		c.signed(c.bob, 0, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "for"}),
	)
	require.Len(t, results, 4)
	assert.Zero(t, results[0].Code, results[0].Log)
	assert.Equal(t, types.EventVoteCastType, results[0].Events[0].Type)
	assert.Equal(t, gov.Code(gov.ErrNoVotingWeight), results[1].Code)
	assert.Equal(t, gov.Code(gov.ErrDuplicateVote), results[2].Code)
	assert.Empty(t, results[2].Events)
	assert.Equal(t, CodeBadNonce, results[3].Code)

	res = c.query("/proposal", &QueryParams{Proposal: 1}, &view)
	require.Zero(t, res.Code, res.Log)
	assert.Equal(t, uint64(100), view.Tally.For.Uint64())
	assert.True(t, view.Tally.Against.IsZero())

	var count uint64
	c.query("/voters_count", &QueryParams{Proposal: 1}, &count)
	assert.Equal(t, uint64(1), count)

	var page types.VoteDetailPage
	c.query("/vote_detail", &QueryParams{Proposal: 1, Limit: 10}, &page)
	require.Len(t, page.Votes, 1)
	assert.Equal(t, addr(c.bob), page.Votes[0].Voter)

	var account AccountInfo
	c.query("/account", &QueryParams{Address: addr(c.bob)}, &account)
	assert.Equal(t, uint64(2), account.Nonce)
	assert.False(t, account.Whitelisted)

	results = c.block(t0.Add(48*time.Hour),
		c.signed(c.alice, 2, tx.AgoraTxTypeCancelProposal, &tx.CancelProposalTx{Proposal: 1}),
		c.signed(c.bob, 2, tx.AgoraTxTypeCloseProposal, &tx.CloseProposalTx{Proposal: 1}),
	)
	assert.Equal(t, gov.Code(gov.ErrGraceWindowExpired), results[0].Code)
	assert.Zero(t, results[1].Code, results[1].Log)
	c.query("/proposal", &QueryParams{Proposal: 1}, &view)
	assert.Equal(t, types.ProposalStatusClosed, view.Status)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.app.metrics.txResults.WithLabelValues("vote", "41")) +
		testutil.ToFloat64(c.app.metrics.txResults.WithLabelValues("vote", "42")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.app.metrics.events.WithLabelValues(types.EventProposalClosedType)))

	info, err := c.app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.LastBlockHeight)
	assert.Equal(t, types.DefaultDAOName, info.Data)
}

func TestOwnerTxs(t *testing.T) {
	c := newTestChain(t)
	carol := newKey(t)

	results := c.block(t0,
		c.signed(c.alice, 0, tx.AgoraTxTypeWhitelist, &tx.WhitelistTx{Address: addr(carol)}),
		c.signed(c.owner, 0, tx.AgoraTxTypeWhitelist, &tx.WhitelistTx{Address: addr(carol)}),
		c.signed(c.owner, 1, tx.AgoraTxTypeSetToken, &tx.SetTokenTx{Address: crownAddr, Type: "irc-31", Name: types.TokenXCrown}),
		c.signed(c.owner, 2, tx.AgoraTxTypeSetToken, &tx.SetTokenTx{Address: crownAddr, Type: "erc-20", Name: types.TokenXCrown}),
		c.signed(c.owner, 3, tx.AgoraTxTypeSetThreshold, &tx.SetThresholdTx{Amount: new(uint256.Int)}),
		c.signed(c.owner, 4, tx.AgoraTxTypeSetThreshold, &tx.SetThresholdTx{Amount: uint256.NewInt(77)}),
	)
	assert.Equal(t, gov.Code(gov.ErrNotOwner), results[0].Code)
	assert.Zero(t, results[1].Code, results[1].Log)
	assert.Equal(t, gov.Code(gov.ErrUnsupportedTokenKind), results[2].Code)
	assert.Equal(t, gov.Code(gov.ErrInvalidTokenKind), results[3].Code)
	assert.Equal(t, gov.Code(gov.ErrInvalidAmount), results[4].Code)
	assert.Zero(t, results[5].Code, results[5].Log)

	var whitelist []common.Address
	c.query("/whitelist", nil, &whitelist)
	assert.Equal(t, []common.Address{addr(c.alice), addr(carol)}, whitelist)

	var tokens []types.GovernanceToken
	c.query("/tokens", nil, &tokens)
	require.Len(t, tokens, 1)
	assert.Equal(t, types.TokenCrown, tokens[0].Name)

	threshold := new(uint256.Int)
	c.query("/threshold", nil, threshold)
	assert.Equal(t, uint64(77), threshold.Uint64())

	var name string
	c.query("/name", nil, &name)
	assert.Equal(t, types.DefaultDAOName, name)
}

func TestCheckTx(t *testing.T) {
	c := newTestChain(t)
	check := func(dat []byte) *abcitypes.ResponseCheckTx {
		res, err := c.app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: dat})
		require.NoError(t, err)
		return res
	}

	assert.Zero(t, check(c.signed(c.bob, 0, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "for"})).Code)
	assert.Zero(t, check(c.signed(c.bob, 5, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "for"})).Code)
	assert.Equal(t, gov.Code(gov.ErrInvalidVoteChoice), check(c.signed(c.bob, 0, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "maybe"})).Code)
	assert.Equal(t, CodeUnsupported, check([]byte("garbage")).Code)

	btx := &tx.AgoraTx{Version: tx.AgoraTxVersion1, Type: tx.AgoraTxTypeCloseProposal, Tx: &tx.CloseProposalTx{Proposal: 1}}
	require.NoError(t, btx.Sign(c.bob, "other-chain"))
	dat, err := tx.MarshalAgoraTx(btx)
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidSig, check(dat).Code)

	c.block(t0, c.signed(c.bob, 0, tx.AgoraTxTypeCloseProposal, &tx.CloseProposalTx{Proposal: 1}))
	assert.Equal(t, CodeBadNonce, check(c.signed(c.bob, 0, tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: "for"})).Code)
}

func TestQueryErrors(t *testing.T) {
	c := newTestChain(t)
	c.block(t0)

	assert.Equal(t, CodeNotFound, c.query("/nope", nil, nil).Code)
	assert.Equal(t, CodeBadRequest, c.query("/proposal", nil, nil).Code)
	assert.Equal(t, gov.Code(gov.ErrProposalNotFound), c.query("/proposal", &QueryParams{Proposal: 5}, nil).Code)

	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: "/proposal", Data: []byte("{")})
	require.NoError(t, err)
	assert.Equal(t, CodeBadRequest, res.Code)

	var last uint64
	c.query("/last_proposal_id", nil, &last)
	assert.Zero(t, last)
}

func TestInitChainRequiresOwner(t *testing.T) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	app, err := newAgoraApp(config.DefaultAgoraAppConfig(t.TempDir()), db, nil, cmtlog.NewNopLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer app.Stop()

	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainId, AppStateBytes: []byte(`{}`)})
	assert.ErrorIs(t, err, types.ErrGenesisNoOwner)
}
