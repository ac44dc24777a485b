package tx

import (
	"errors"
	"fmt"
)

type AgoraTxType uint8

const (
	AgoraTxTypeUnknown        AgoraTxType = 0
	AgoraTxTypeWhitelist      AgoraTxType = 1
	AgoraTxTypeSetToken       AgoraTxType = 2
	AgoraTxTypeSetThreshold   AgoraTxType = 3
	AgoraTxTypeSubmitProposal AgoraTxType = 4
	AgoraTxTypeVote           AgoraTxType = 5
	AgoraTxTypeCancelProposal AgoraTxType = 6
	AgoraTxTypeCloseProposal  AgoraTxType = 7
)

var txTypeNames = map[AgoraTxType]string{
	AgoraTxTypeWhitelist:      "whitelist",
	AgoraTxTypeSetToken:       "set_token",
	AgoraTxTypeSetThreshold:   "set_threshold",
	AgoraTxTypeSubmitProposal: "submit_proposal",
	AgoraTxTypeVote:           "vote",
	AgoraTxTypeCancelProposal: "cancel_proposal",
	AgoraTxTypeCloseProposal:  "close_proposal",
}

func (t AgoraTxType) String() string {
	if n, ok := txTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

const (
	AgoraTxVersion0 uint8 = 0
	AgoraTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrSenderMismatch       = errors.New("signature does not match sender")
	ErrInvalidNonce         = errors.New("invalid nonce")
)
