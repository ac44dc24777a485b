package gov

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

// Reader serves the read-only operations over any store, including the
// committed view used by queries.
type Reader struct {
	store state.KVStore
}

func NewReader(store state.KVStore) Reader {
	return Reader{store: store}
}

func (r Reader) WhitelistedAddresses() ([]common.Address, error) {
	return NewWhitelist(r.store).List()
}

func (r Reader) IsWhitelisted(addr common.Address) (bool, error) {
	return NewWhitelist(r.store).Contains(addr)
}

func (r Reader) GovernanceTokenInfo() ([]types.GovernanceToken, error) {
	return NewTokenRegistry(r.store).List()
}

// MinimumThreshold returns zero when no threshold was set.
func (r Reader) MinimumThreshold() (*uint256.Int, error) {
	threshold := new(uint256.Int)
	if _, err := getRLP(r.store, []byte(KeyMinimumThreshold), threshold); err != nil {
		return nil, err
	}
	return threshold, nil
}

func (r Reader) LastProposalID() (uint64, error) {
	return NewProposalStore(r.store).LastID()
}

func (r Reader) GetProposal(id uint64) (*types.ProposalView, error) {
	p, err := NewProposalStore(r.store).Get(id)
	if err != nil {
		return nil, err
	}
	tally, err := NewTallyStore(r.store).Get(id)
	if err != nil {
		return nil, err
	}
	return &types.ProposalView{Proposal: *p, Tally: tally}, nil
}

func (r Reader) GetVote(voter common.Address, id uint64) (*types.TokenVote, error) {
	return NewVoteLedger(r.store).Get(id, voter)
}

func (r Reader) GetVoteDetail(id, offset, limit uint64) (*types.VoteDetailPage, error) {
	return NewVoteLedger(r.store).Page(id, offset, limit)
}

func (r Reader) VotersCount(id uint64) (uint64, error) {
	return NewVoteLedger(r.store).Count(id)
}
