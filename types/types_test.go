package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCodecs(t *testing.T) {
	creator := common.HexToAddress("0x0000000000000000000000000000000000000a11")
	submitted := &EventProposalSubmitted{ProposalId: 7, Creator: creator}
	ev := submitted.Encode()
	assert.Equal(t, EventProposalSubmittedType, ev.Type)
	assert.True(t, ev.Attributes[0].Index)
	assert.Equal(t, submitted, DecodeEventProposalSubmitted(ev))

	id, ok := DecodeEventProposalId((&EventProposalClosed{ProposalId: 9}).Encode())
	require.True(t, ok)
	assert.Equal(t, uint64(9), id)
	id, ok = DecodeEventProposalId((&EventProposalCanceled{ProposalId: 3}).Encode())
	require.True(t, ok)
	assert.Equal(t, uint64(3), id)

	cast := &EventVoteCast{ProposalId: 2, Voter: creator, Choice: VoteAgainst, Weight: uint256.MustFromDecimal("123456789012345678901234567890")}
	assert.Equal(t, cast, DecodeEventVoteCast(cast.Encode()))

	bad := cast.Encode()
	bad.Attributes[2].Value = "maybe"
	assert.Nil(t, DecodeEventVoteCast(bad))
}

func TestParseVoteChoice(t *testing.T) {
	cases := map[string]VoteChoice{"for": VoteFor, "FOR": VoteFor, "AgAinst": VoteAgainst, "abstain": VoteAbstain}
	for in, want := range cases {
		got, ok := ParseVoteChoice(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
		again, ok := ParseVoteChoice(got.String())
		require.True(t, ok)
		assert.Equal(t, got, again)
	}
	for _, in := range []string{"", "yes", "for!", "0", " Against ", "abstain\n"} {
		_, ok := ParseVoteChoice(in)
		assert.False(t, ok, in)
	}
}

func TestParseTokenKind(t *testing.T) {
	assert.Equal(t, TokenKindFungible, ParseTokenKind("IRC-2"))
	assert.Equal(t, TokenKindFungible, ParseTokenKind("fungible"))
	assert.Equal(t, TokenKindNonFungible, ParseTokenKind("irc-31"))
	assert.Equal(t, TokenKindNonFungible, ParseTokenKind("NonFungible"))
	assert.Equal(t, TokenKindUnknown, ParseTokenKind("erc-20"))
	assert.Equal(t, "irc-2", TokenKindFungible.String())
}

func TestTally(t *testing.T) {
	tally := NewTally()
	tally.Bucket(VoteFor).SetUint64(3)
	tally.Bucket(VoteAbstain).SetUint64(4)
	assert.Nil(t, tally.Bucket(VoteChoice(9)))
	total, overflow := tally.Total()
	require.False(t, overflow)
	assert.Equal(t, uint64(7), total.Uint64())

	tally.Against.SetAllOne()
	_, overflow = tally.Total()
	assert.True(t, overflow)
}

func TestProposalStatus(t *testing.T) {
	assert.False(t, ProposalStatusActive.Terminal())
	assert.True(t, ProposalStatusCanceled.Terminal())
	assert.True(t, ProposalStatusClosed.Terminal())
	assert.Equal(t, "closed", ProposalStatusClosed.String())
}
