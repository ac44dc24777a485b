package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/suyogster/agora-scores/config"
	"github.com/suyogster/agora-scores/types"
)

type printInfo struct {
	ChainID    string          `json:"chain_id"`
	NodeID     string          `json:"node_id"`
	Owner      string          `json:"owner"`
	AppMessage json.RawMessage `json:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

type initArguments struct {
	Home      string
	ChainID   string
	Overwrite bool
	DAOName   string
	TokenRPC  string
	Crown     string
	XCrown    string
	Whitelist []string
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long: `Initialize the node's configuration files and a genesis whose app_state
names a freshly generated owner key, the governance tokens and the initial whitelist.`,
	Args: cobra.NoArgs,
	RunE: initRun,
}

func init() {
	initCmd.Flags().StringVarP(&initArgs.Home, FlagHome, "d", "", "home directory")
	initCmd.Flags().StringVar(&initArgs.ChainID, FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().StringVar(&initArgs.DAOName, "dao-name", types.DefaultDAOName, "DAO name")
	initCmd.Flags().StringVar(&initArgs.TokenRPC, "token-rpc", "", "JSON-RPC endpoint of the governance tokens, empty for built-in books")
	initCmd.Flags().StringVar(&initArgs.Crown, "crown", "", "crown token address")
	initCmd.Flags().StringVar(&initArgs.XCrown, "x-crown", "", "x_crown token address")
	initCmd.Flags().StringSliceVar(&initArgs.Whitelist, "whitelist", nil, "addresses allowed to submit proposals")
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func initRun(cmd *cobra.Command, args []string) error {
	chainID := initArgs.ChainID
	if chainID == "" {
		chainID = fmt.Sprintf("agora-chain-%v", rand.Uint64())
	}
	appConfig := config.NewAgoraConfig(initArgs.Home)
	appConfig.App.DAOName = initArgs.DAOName
	appConfig.App.TokenRPC = initArgs.TokenRPC
	if err := appConfig.ValidateBasic(); err != nil {
		return err
	}

	genFile := appConfig.GenesisFile()
	if !initArgs.Overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis file %s already exists, use --%s", genFile, FlagOverwrite)
	}

	appState := types.GenesisAppState{}
	for _, t := range []struct{ addr, name string }{{initArgs.Crown, types.TokenCrown}, {initArgs.XCrown, types.TokenXCrown}} {
		if t.addr == "" {
			continue
		}
		handle, err := parseAddress(t.addr)
		if err != nil {
			return err
		}
		appState.Tokens = append(appState.Tokens, types.GenesisToken{Address: handle, Type: types.TokenKindFungible.String(), Name: t.name})
	}
	for _, s := range initArgs.Whitelist {
		addr, err := parseAddress(s)
		if err != nil {
			return err
		}
		appState.Whitelist = append(appState.Whitelist, addr)
	}

	owner, err := config.InitializeOwner(appConfig.RootDir)
	if err != nil {
		return err
	}
	appState.Owner = common.HexToAddress(owner)
	rawState, err := json.Marshal(appState)
	if err != nil {
		return err
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}},
		AppState:        rawState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", config.ConfigFileName), appConfig); err != nil {
		return err
	}
	return displayInfo(printInfo{ChainID: chainID, NodeID: nodeID, Owner: owner, AppMessage: rawState})
}
