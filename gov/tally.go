package gov

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/suyogster/agora-scores/state"
	"github.com/suyogster/agora-scores/types"
)

type TallyStore struct {
	store state.KVStore
}

func NewTallyStore(store state.KVStore) TallyStore {
	return TallyStore{store: store}
}

// Get returns a zero tally for a proposal without votes.
func (t TallyStore) Get(id uint64) (types.Tally, error) {
	tally := types.NewTally()
	if _, err := getRLP(t.store, []byte(fmt.Sprintf(KeyTally, id)), &tally); err != nil {
		return types.Tally{}, err
	}
	return tally, nil
}

// Add puts weight into the bucket of choice. The tally total must stay
// representable, otherwise ErrWeightOverflow.
func (t TallyStore) Add(id uint64, choice types.VoteChoice, weight *uint256.Int) error {
	tally, err := t.Get(id)
	if err != nil {
		return err
	}
	bucket := tally.Bucket(choice)
	if bucket == nil {
		return ErrInvalidVoteChoice
	}
	if _, overflow := bucket.AddOverflow(bucket, weight); overflow {
		return ErrWeightOverflow
	}
	if _, overflow := tally.Total(); overflow {
		return ErrWeightOverflow
	}
	return setRLP(t.store, []byte(fmt.Sprintf(KeyTally, id)), &tally)
}
