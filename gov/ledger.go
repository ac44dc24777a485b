package gov

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

// VoteLedger holds one TokenVote per (proposal, voter) and the append-only
// voter index used for paging.
type VoteLedger struct {
	store state.KVStore
}

func NewVoteLedger(store state.KVStore) VoteLedger {
	return VoteLedger{store: store}
}

// Get returns nil when voter has not voted on the proposal.
func (l VoteLedger) Get(id uint64, voter common.Address) (*types.TokenVote, error) {
	vote := &types.TokenVote{}
	found, err := getRLP(l.store, voteKey(id, voter), vote)
	if err != nil || !found {
		return nil, err
	}
	return vote, nil
}

// Record writes the vote and appends voter to the index. A second record
// for the same key fails with ErrDuplicateVote.
func (l VoteLedger) Record(id uint64, voter common.Address, vote *types.TokenVote) error {
	existing, err := l.store.Get(voteKey(id, voter))
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateVote
	}
	if err = setRLP(l.store, voteKey(id, voter), vote); err != nil {
		return err
	}
	n, err := l.Count(id)
	if err != nil {
		return err
	}
	if err = l.store.Set(voterIndexKey(id, n), voter.Bytes()); err != nil {
		return err
	}
	return setCounter(l.store, []byte(fmt.Sprintf(KeyVoterCount, id)), n+1)
}

func (l VoteLedger) Count(id uint64) (uint64, error) {
	return getCounter(l.store, []byte(fmt.Sprintf(KeyVoterCount, id)))
}

func (l VoteLedger) VoterAt(id, i uint64) (common.Address, error) {
	val, err := l.store.Get(voterIndexKey(id, i))
	if err != nil {
		return common.Address{}, err
	}
	if val == nil {
		return common.Address{}, fmt.Errorf("voter %d of proposal %d missing", i, id)
	}
	return common.BytesToAddress(val), nil
}

// Page walks [offset, min(offset+limit, total)) from the newest entry back.
func (l VoteLedger) Page(id, offset, limit uint64) (*types.VoteDetailPage, error) {
	total, err := l.Count(id)
	if err != nil {
		return nil, err
	}
	page := &types.VoteDetailPage{Total: total, Votes: []types.VoteDetail{}}
	if offset >= total {
		return page, nil
	}
	upper := total
	if limit < total-offset {
		upper = offset + limit
	}
	for i := upper; i > offset; i-- {
		voter, err := l.VoterAt(id, i-1)
		if err != nil {
			return nil, err
		}
		vote, err := l.Get(id, voter)
		if err != nil {
			return nil, err
		}
		if vote == nil {
			return nil, fmt.Errorf("indexed voter %s of proposal %d has no vote", voter.Hex(), id)
		}
		page.Votes = append(page.Votes, types.VoteDetail{Voter: voter, Vote: *vote})
	}
	return page, nil
}
