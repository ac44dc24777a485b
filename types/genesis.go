package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// GenesisBalance allocates a balance of a built-in token to a holder.
type GenesisBalance struct {
	Token  common.Address `json:"token"`
	Holder common.Address `json:"holder"`
	Amount *uint256.Int   `json:"amount"`
}

// GenesisAppState is the governance state installed by InitChain.
type GenesisAppState struct {
	Owner     common.Address   `json:"owner"`
	Whitelist []common.Address `json:"whitelist"`
	Automated []common.Address `json:"automated"`
	Tokens    []GenesisToken   `json:"tokens"`
	Balances  []GenesisBalance `json:"balances"`
	Threshold *uint256.Int     `json:"minimum_threshold,omitempty"`
}

type GenesisToken struct {
	Address common.Address `json:"address"`
	Type    string         `json:"type"`
	Name    string         `json:"name"`
}

var ErrGenesisNoOwner = errors.New("genesis app_state must include an owner")

func ParseGenesisAppState(raw []byte) (*GenesisAppState, error) {
	st := new(GenesisAppState)
	if len(raw) == 0 {
		return nil, ErrGenesisNoOwner
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode app_state: %w", err)
	}
	if st.Owner == (common.Address{}) {
		return nil, ErrGenesisNoOwner
	}
	return st, nil
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if _, err := ParseGenesisAppState(ag.AppState); err != nil {
		return err
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const AgoraModuleName = "agora"
const DefaultPower = 1000
const DefaultDAOName = "Gangstaverse DAO"
