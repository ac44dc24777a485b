package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/suyogster/agora-scores/gov"
	"github.com/suyogster/agora-scores/state"
)

const (
	CodeNotFound   uint32 = 404
	CodeBadRequest uint32 = 400
)

var ErrMissingParam = errors.New("missing query parameter")

// QueryParams is the JSON body of the query paths that take arguments.
type QueryParams struct {
	Proposal uint64         `json:"proposal,omitempty"`
	Voter    common.Address `json:"voter,omitempty"`
	Address  common.Address `json:"address,omitempty"`
	Offset   uint64         `json:"offset,omitempty"`
	Limit    uint64         `json:"limit,omitempty"`
}

// AccountInfo is returned by /account.
type AccountInfo struct {
	Address     common.Address `json:"address"`
	Nonce       uint64         `json:"nonce"`
	Whitelisted bool           `json:"whitelisted"`
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// QueryFunc answers a query from the committed store.
type QueryFunc func(r gov.Reader, store state.KVStore, params *QueryParams) (any, error)

type committedQuerier struct {
	db *state.StateDB
	f  QueryFunc
}

func (app *AgoraApp) newQuerier(f QueryFunc) Querier {
	return &committedQuerier{db: app.db, f: f}
}

func (q *committedQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	params := &QueryParams{}
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, params); err != nil {
			res.Code = CodeBadRequest
			res.Log = err.Error()
			return res, nil
		}
	}
	height := q.db.Version()
	store := q.db.Committed()
	v, err := q.f(gov.NewReader(store), store, params)
	if err != nil {
		res.Code = gov.Code(err)
		if errors.Is(err, ErrMissingParam) {
			res.Code = CodeBadRequest
		}
		res.Log = err.Error()
		return res, nil
	}
	res.Value, err = json.Marshal(v)
	if err != nil {
		return nil, err
	}
	res.Height = height
	return res, nil
}

func (app *AgoraApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeNotFound
		res.Log = "unknown query path " + req.Path
		return
	}
	return q.Query(ctx, req)
}

func (app *AgoraApp) queryName(r gov.Reader, _ state.KVStore, _ *QueryParams) (any, error) {
	return app.engine.Name(), nil
}

func queryWhitelist(r gov.Reader, _ state.KVStore, _ *QueryParams) (any, error) {
	return r.WhitelistedAddresses()
}

func queryTokens(r gov.Reader, _ state.KVStore, _ *QueryParams) (any, error) {
	return r.GovernanceTokenInfo()
}

func queryThreshold(r gov.Reader, _ state.KVStore, _ *QueryParams) (any, error) {
	return r.MinimumThreshold()
}

func queryLastProposalId(r gov.Reader, _ state.KVStore, _ *QueryParams) (any, error) {
	return r.LastProposalID()
}

func queryProposal(r gov.Reader, _ state.KVStore, p *QueryParams) (any, error) {
	if p.Proposal == 0 {
		return nil, ErrMissingParam
	}
	return r.GetProposal(p.Proposal)
}

func queryVote(r gov.Reader, _ state.KVStore, p *QueryParams) (any, error) {
	if p.Proposal == 0 || p.Voter == (common.Address{}) {
		return nil, ErrMissingParam
	}
	return r.GetVote(p.Voter, p.Proposal)
}

func queryVoteDetail(r gov.Reader, _ state.KVStore, p *QueryParams) (any, error) {
	if p.Proposal == 0 {
		return nil, ErrMissingParam
	}
	return r.GetVoteDetail(p.Proposal, p.Offset, p.Limit)
}

func queryVotersCount(r gov.Reader, _ state.KVStore, p *QueryParams) (any, error) {
	if p.Proposal == 0 {
		return nil, ErrMissingParam
	}
	return r.VotersCount(p.Proposal)
}

func queryAccount(r gov.Reader, store state.KVStore, p *QueryParams) (any, error) {
	if p.Address == (common.Address{}) {
		return nil, ErrMissingParam
	}
	nonce, err := state.Nonce(store, p.Address)
	if err != nil {
		return nil, err
	}
	whitelisted, err := r.IsWhitelisted(p.Address)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{Address: p.Address, Nonce: nonce, Whitelisted: whitelisted}, nil
}
