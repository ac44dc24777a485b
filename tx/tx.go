package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

type AgoraTx struct {
	Version uint8          `json:"version"`
	Type    AgoraTxType    `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type WhitelistTx struct {
	Address common.Address `json:"address"`
}

type SetTokenTx struct {
	Address common.Address `json:"address"`
	Type    string         `json:"type"`
	Name    string         `json:"name"`
}

type SetThresholdTx struct {
	Amount *uint256.Int `json:"amount"`
}

// SubmitProposalTx carries the end time in unix seconds.
type SubmitProposalTx struct {
	EndTime  int64  `json:"endTime"`
	IpfsHash string `json:"ipfsHash"`
}

type VoteTx struct {
	Proposal uint64 `json:"proposal"`
	Vote     string `json:"vote"`
}

type CancelProposalTx struct {
	Proposal uint64 `json:"proposal"`
}

type CloseProposalTx struct {
	Proposal uint64 `json:"proposal"`
}

type agoraTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    AgoraTxType    `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      Tx             `json:"tx"`
	Sig     []byte         `json:"sig"`
}

// SigData is the JSON encoding of the tx with the signature replaced by
// ext, normally the chain id.
func (tx *AgoraTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *AgoraTx) SigHash(chainID string) ([]byte, error) {
	dat, err := tx.SigData([]byte(chainID))
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(dat), nil
}

// Sign sets the sender to the key's address and signs the tx for chainID.
func (tx *AgoraTx) Sign(key *ecdsa.PrivateKey, chainID string) error {
	tx.Sender = crypto.PubkeyToAddress(key.PublicKey)
	hash, err := tx.SigHash(chainID)
	if err != nil {
		return err
	}
	tx.Sig, err = crypto.Sign(hash, key)
	return err
}

// Verify recovers the signer and checks that it is the sender.
func (tx *AgoraTx) Verify(chainID string) error {
	if len(tx.Sig) != crypto.SignatureLength {
		return ErrInvalidSignature
	}
	hash, err := tx.SigHash(chainID)
	if err != nil {
		return err
	}
	pub, err := crypto.SigToPub(hash, tx.Sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != tx.Sender {
		return ErrSenderMismatch
	}
	return nil
}

func parseAgoraTxType(dat []byte) AgoraTxType {
	var tx struct {
		Type AgoraTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return AgoraTxTypeUnknown
	}
	return tx.Type
}

func unmarshalAgoraTx[Tx any](dat []byte) (btx *AgoraTx, err error) {
	var txt agoraTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	btx = new(AgoraTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalAgoraTx(dat []byte) (btx *AgoraTx, err error) {
	tp := parseAgoraTxType(dat)
	switch tp {
	case AgoraTxTypeWhitelist:
		btx, err = unmarshalAgoraTx[WhitelistTx](dat)
	case AgoraTxTypeSetToken:
		btx, err = unmarshalAgoraTx[SetTokenTx](dat)
	case AgoraTxTypeSetThreshold:
		btx, err = unmarshalAgoraTx[SetThresholdTx](dat)
	case AgoraTxTypeSubmitProposal:
		btx, err = unmarshalAgoraTx[SubmitProposalTx](dat)
	case AgoraTxTypeVote:
		btx, err = unmarshalAgoraTx[VoteTx](dat)
	case AgoraTxTypeCancelProposal:
		btx, err = unmarshalAgoraTx[CancelProposalTx](dat)
	case AgoraTxTypeCloseProposal:
		btx, err = unmarshalAgoraTx[CloseProposalTx](dat)
	default:
		return nil, ErrUnsupportedTxType
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if btx.Version != AgoraTxVersion1 {
		return nil, ErrUnsupportedTxVersion
	}
	return
}

func MarshalAgoraTx(btx *AgoraTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
