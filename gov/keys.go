package gov

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/suyogster/agora-scores/state"
)

var (
	KeyLastProposalId   = "pi"
	KeyProposal         = "p/%d"
	KeyVote             = "v/%d/%x"
	KeyVoterCount       = "vc/%d"
	KeyVoterIndex       = "vi/%d/%d"
	KeyTally            = "t/%d"
	KeyWhitelistCount   = "wn"
	KeyWhitelistIndex   = "wl/%d"
	KeyWhitelisted      = "w/%x"
	KeyTokenCount       = "tn"
	KeyToken            = "tk/%d"
	KeyMinimumThreshold = "mt"
)

func proposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf(KeyProposal, id))
}

func voteKey(id uint64, voter common.Address) []byte {
	return []byte(fmt.Sprintf(KeyVote, id, voter.Bytes()))
}

func voterIndexKey(id, i uint64) []byte {
	return []byte(fmt.Sprintf(KeyVoterIndex, id, i))
}

func getCounter(store state.KVStore, key []byte) (n uint64, err error) {
	val, err := store.Get(key)
	if err != nil || val == nil {
		return 0, err
	}
	err = rlp.DecodeBytes(val, &n)
	return
}

func setCounter(store state.KVStore, key []byte, n uint64) error {
	val, err := rlp.EncodeToBytes(n)
	if err != nil {
		return err
	}
	return store.Set(key, val)
}

func getRLP(store state.KVStore, key []byte, out interface{}) (found bool, err error) {
	val, err := store.Get(key)
	if err != nil || val == nil {
		return false, err
	}
	if err = rlp.DecodeBytes(val, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setRLP(store state.KVStore, key []byte, v interface{}) error {
	val, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return store.Set(key, val)
}
