package gov

import (
	"encoding/json"
	"fmt"

	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

// ProposalStore keeps proposal records and the id counter.
type ProposalStore struct {
	store state.KVStore
}

func NewProposalStore(store state.KVStore) ProposalStore {
	return ProposalStore{store: store}
}

func (s ProposalStore) LastID() (uint64, error) {
	return getCounter(s.store, []byte(KeyLastProposalId))
}

// NextID advances the id counter and returns the new id.
func (s ProposalStore) NextID() (uint64, error) {
	id, err := s.LastID()
	if err != nil {
		return 0, err
	}
	id++
	return id, setCounter(s.store, []byte(KeyLastProposalId), id)
}

func (s ProposalStore) Get(id uint64) (*types.Proposal, error) {
	val, err := s.store.Get(proposalKey(id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	p := &types.Proposal{}
	if err = json.Unmarshal(val, p); err != nil {
		return nil, fmt.Errorf("decode proposal %d: %w", id, err)
	}
	return p, nil
}

func (s ProposalStore) Put(p *types.Proposal) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.store.Set(proposalKey(p.Id), val)
}
