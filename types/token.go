package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TokenCrown  = "crown"
	TokenXCrown = "x_crown"
)

// IsGovernanceTokenName reports whether name is one of the recognized
// governance token names.
func IsGovernanceTokenName(name string) bool {
	return name == TokenCrown || name == TokenXCrown
}

type TokenKind uint8

const (
	TokenKindUnknown     TokenKind = 0
	TokenKindFungible    TokenKind = 1
	TokenKindNonFungible TokenKind = 2
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindFungible:
		return "irc-2"
	case TokenKindNonFungible:
		return "irc-31"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseTokenKind accepts both the standard names (irc-2, irc-31) and the
// descriptive ones, case-insensitively.
func ParseTokenKind(s string) TokenKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "irc-2", "irc2", "fungible":
		return TokenKindFungible
	case "irc-31", "irc31", "nonfungible", "non-fungible":
		return TokenKindNonFungible
	}
	return TokenKindUnknown
}

type GovernanceToken struct {
	Handle common.Address `json:"address"`
	Kind   TokenKind      `json:"type"`
	Name   string         `json:"name"`
}
