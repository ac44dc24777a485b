package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Proposal struct {
	Id          uint64            `json:"id"`
	Creator     common.Address    `json:"creator"`
	CreateTime  time.Time         `json:"create_time"`
	EndTime     time.Time         `json:"end_time"`
	IpfsHash    string            `json:"ipfs_hash"`
	Status      ProposalStatus    `json:"status"`
	SnapshotIds map[string]uint64 `json:"snapshot_ids"`
}

// SnapshotId returns the snapshot captured for the named token, zero if none.
func (p *Proposal) SnapshotId(name string) uint64 {
	if p.SnapshotIds == nil {
		return 0
	}
	return p.SnapshotIds[name]
}

// ProposalView is a proposal together with its current tally.
type ProposalView struct {
	Proposal
	Tally Tally `json:"tally"`
}

type ProposalStatus uint8

const (
	ProposalStatusActive   ProposalStatus = 0
	ProposalStatusCanceled ProposalStatus = 1
	ProposalStatusClosed   ProposalStatus = 2
)

var proposalStatusNames = map[ProposalStatus]string{
	ProposalStatusActive:   "active",
	ProposalStatusCanceled: "canceled",
	ProposalStatusClosed:   "closed",
}

func (s ProposalStatus) String() string {
	if n, ok := proposalStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether no transition leaves s.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusCanceled || s == ProposalStatusClosed
}

type VoteChoice uint8

const (
	VoteFor     VoteChoice = 1
	VoteAgainst VoteChoice = 2
	VoteAbstain VoteChoice = 3
)

func (c VoteChoice) String() string {
	switch c {
	case VoteFor:
		return "for"
	case VoteAgainst:
		return "against"
	case VoteAbstain:
		return "abstain"
	}
	return fmt.Sprintf("choice(%d)", uint8(c))
}

// ParseVoteChoice accepts a choice in any letter case. Surrounding
// whitespace is not stripped.
func ParseVoteChoice(s string) (VoteChoice, bool) {
	switch strings.ToLower(s) {
	case "for":
		return VoteFor, true
	case "against":
		return VoteAgainst, true
	case "abstain":
		return VoteAbstain, true
	}
	return 0, false
}

type TokenVote struct {
	Choice VoteChoice   `json:"vote"`
	Weight *uint256.Int `json:"power"`
}

// VoteDetail pairs a voter with its recorded vote.
type VoteDetail struct {
	Voter common.Address `json:"voter"`
	Vote  TokenVote      `json:"vote"`
}

type VoteDetailPage struct {
	Total uint64       `json:"total_votes"`
	Votes []VoteDetail `json:"votes_list"`
}

type Tally struct {
	For     *uint256.Int `json:"for_voices"`
	Against *uint256.Int `json:"against_voices"`
	Abstain *uint256.Int `json:"abstain_voices"`
}

func NewTally() Tally {
	return Tally{
		For:     new(uint256.Int),
		Against: new(uint256.Int),
		Abstain: new(uint256.Int),
	}
}

// Bucket returns the counter matching the choice, nil for an unknown choice.
func (t *Tally) Bucket(c VoteChoice) *uint256.Int {
	switch c {
	case VoteFor:
		return t.For
	case VoteAgainst:
		return t.Against
	case VoteAbstain:
		return t.Abstain
	}
	return nil
}

// Total is For + Against + Abstain. The second result reports overflow.
func (t *Tally) Total() (*uint256.Int, bool) {
	sum, o1 := new(uint256.Int).AddOverflow(t.For, t.Against)
	sum, o2 := sum.AddOverflow(sum, t.Abstain)
	return sum, o1 || o2
}
