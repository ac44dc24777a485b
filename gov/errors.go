package gov

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotOwner       = fmt.Errorf("%w: only owner", ErrUnauthorized)
	ErrNotWhitelisted = fmt.Errorf("%w: only whitelisted addresses", ErrUnauthorized)
	ErrNotCreator     = fmt.Errorf("%w: not creator", ErrUnauthorized)

	ErrAutomatedCaller            = errors.New("only directly acting accounts allowed")
	ErrInvalidTokenKind           = errors.New("invalid token type")
	ErrUnsupportedTokenKind       = errors.New("token type not supported")
	ErrUnsupportedGovernanceToken = errors.New("governance token not supported")
	ErrNoUsableSnapshot           = errors.New("no usable snapshot")
	ErrInvalidEndTime             = errors.New("invalid end time")
	ErrProposalNotFound           = errors.New("proposal not found")
	ErrInvalidProposalState       = errors.New("proposal not active")
	ErrGraceWindowExpired         = errors.New("grace time passed")
	ErrEndTimeNotReached          = errors.New("end time not reached")
	ErrInvalidVoteChoice          = errors.New("invalid vote type")
	ErrNoVotingWeight             = errors.New("not token holder")
	ErrDuplicateVote              = errors.New("already voted")
	ErrInvalidAmount              = errors.New("minimum threshold must be positive")
	ErrReentrantCall              = errors.New("reentrant call")
	ErrWeightOverflow             = errors.New("vote weight overflow")
	ErrNoCaller                   = errors.New("no caller in context")
)

// CodeInternal is returned for errors that are not governance error kinds,
// such as storage or token collaborator failures.
const CodeInternal uint32 = 1

var errCodes = []struct {
	err  error
	code uint32
}{
	{ErrNotOwner, 10},
	{ErrNotWhitelisted, 11},
	{ErrNotCreator, 12},
	{ErrUnauthorized, 13},
	{ErrAutomatedCaller, 14},
	{ErrInvalidTokenKind, 20},
	{ErrUnsupportedTokenKind, 21},
	{ErrUnsupportedGovernanceToken, 22},
	{ErrNoUsableSnapshot, 23},
	{ErrInvalidEndTime, 30},
	{ErrProposalNotFound, 31},
	{ErrInvalidProposalState, 32},
	{ErrGraceWindowExpired, 33},
	{ErrEndTimeNotReached, 34},
	{ErrInvalidVoteChoice, 40},
	{ErrNoVotingWeight, 41},
	{ErrDuplicateVote, 42},
	{ErrWeightOverflow, 43},
	{ErrInvalidAmount, 50},
	{ErrReentrantCall, 60},
	{ErrNoCaller, 61},
}

// Code maps err to a stable result code. Zero means success.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	for _, c := range errCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
