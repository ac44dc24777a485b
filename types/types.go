package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventProposalSubmittedType = "proposal_submitted"
	EventProposalCanceledType  = "proposal_canceled"
	EventProposalClosedType    = "proposal_closed"
	EventVoteCastType          = "vote_cast"
)

// Event is a notification emitted after a state change commits.
type Event interface {
	Type() string
	Encode() abci.Event
}

type EventProposalSubmitted struct {
	ProposalId uint64         `json:"proposalId"`
	Creator    common.Address `json:"creator"`
}

func (e *EventProposalSubmitted) Type() string { return EventProposalSubmittedType }

func (e *EventProposalSubmitted) Encode() abci.Event {
	return abci.Event{
		Type: EventProposalSubmittedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
			{Key: "creator", Value: e.Creator.Hex(), Index: false},
		},
	}
}

func DecodeEventProposalSubmitted(originEvent abci.Event) *EventProposalSubmitted {
	event := &EventProposalSubmitted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = proposal
		case "creator":
			if !common.IsHexAddress(v.Value) {
				return nil
			}
			event.Creator = common.HexToAddress(v.Value)
		}
	}
	return event
}

type EventProposalCanceled struct {
	ProposalId uint64 `json:"proposalId"`
}

func (e *EventProposalCanceled) Type() string { return EventProposalCanceledType }

func (e *EventProposalCanceled) Encode() abci.Event {
	return abci.Event{
		Type: EventProposalCanceledType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		},
	}
}

type EventProposalClosed struct {
	ProposalId uint64 `json:"proposalId"`
}

func (e *EventProposalClosed) Type() string { return EventProposalClosedType }

func (e *EventProposalClosed) Encode() abci.Event {
	return abci.Event{
		Type: EventProposalClosedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		},
	}
}

// DecodeEventProposalId reads the indexed proposal id carried by every
// proposal lifecycle event.
func DecodeEventProposalId(originEvent abci.Event) (uint64, bool) {
	for _, v := range originEvent.Attributes {
		if v.Key == "proposal" {
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return 0, false
			}
			return proposal, true
		}
	}
	return 0, false
}

type EventVoteCast struct {
	ProposalId uint64         `json:"proposalId"`
	Voter      common.Address `json:"voter"`
	Choice     VoteChoice     `json:"vote"`
	Weight     *uint256.Int   `json:"power"`
}

func (e *EventVoteCast) Type() string { return EventVoteCastType }

func (e *EventVoteCast) Encode() abci.Event {
	return abci.Event{
		Type: EventVoteCastType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
			{Key: "voter", Value: e.Voter.Hex(), Index: true},
			{Key: "vote", Value: e.Choice.String(), Index: false},
			{Key: "power", Value: e.Weight.Dec(), Index: false},
		},
	}
}

func DecodeEventVoteCast(originEvent abci.Event) *EventVoteCast {
	event := &EventVoteCast{Weight: new(uint256.Int)}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = proposal
		case "voter":
			if !common.IsHexAddress(v.Value) {
				return nil
			}
			event.Voter = common.HexToAddress(v.Value)
		case "vote":
			choice, ok := ParseVoteChoice(v.Value)
			if !ok {
				return nil
			}
			event.Choice = choice
		case "power":
			if err := event.Weight.SetFromDecimal(v.Value); err != nil {
				return nil
			}
		}
	}
	return event
}
