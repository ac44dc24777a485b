package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"
	"github.com/suyogster/agora-scores/types"
)

const (
	DefaultHomeDir      = "$HOME/.agora"
	DefaultIndexerAddr  = "127.0.0.1:8080"
	DefaultIndexerDB    = "indexer.db"
	OwnerKeyFile        = "owner_priv_key"
	ConfigFileName      = "config.toml"
	DefaultPollInterval = 2 * time.Second
)

var ErrEmptyDAOName = errors.New("dao_name must not be empty")

type AgoraAppConfig struct {
	Home string `mapstructure:"-"`

	DAOName       string `mapstructure:"dao_name"`
	TokenRPC      string `mapstructure:"token_rpc"`
	IndexerListen string `mapstructure:"indexer_listen"`
	IndexerDB     string `mapstructure:"indexer_db"`
}

func DefaultAgoraAppConfig(home string) *AgoraAppConfig {
	return &AgoraAppConfig{
		Home:          home,
		DAOName:       types.DefaultDAOName,
		IndexerListen: DefaultIndexerAddr,
		IndexerDB:     DefaultIndexerDB,
	}
}

func (c *AgoraAppConfig) ValidateBasic() error {
	if c.DAOName == "" {
		return ErrEmptyDAOName
	}
	return nil
}

// DataDir is where the governance state database lives.
func (c *AgoraAppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

func (c *AgoraAppConfig) IndexerDBPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.Home, c.IndexerDB)
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AgoraAppConfig `mapstructure:"app"`
}

func NewAgoraConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	_ = os.MkdirAll(filepath.Join(home, "config"), 0755)
	cfg := &Config{
		DefaultAgoraCometConfig(),
		DefaultAgoraAppConfig(home),
	}
	cfg.SetRoot(home)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

// Load reads home/config/config.toml over the defaults.
func Load(home string) (*Config, error) {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	cfg := &Config{
		Config: DefaultAgoraCometConfig(),
		App:    DefaultAgoraAppConfig(home),
	}
	cfg.SetRoot(home)

	v := viper.New()
	v.SetConfigFile(filepath.Join(home, "config", ConfigFileName))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetRoot(home)
	cfg.App.Home = home
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return cfg, nil
}

// InitializeOwner writes a fresh secp256k1 key for the DAO owner and
// returns its address.
func InitializeOwner(home string) (owner string, err error) {
	priv, err := eth_crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	key := hex.EncodeToString(eth_crypto.FromECDSA(priv))
	err = os.WriteFile(filepath.Join(home, "config", OwnerKeyFile), []byte(key), 0600)
	if err != nil {
		return "", fmt.Errorf("writing owner key: %w", err)
	}
	return eth_crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultAgoraCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	cometConfig.Instrumentation.Prometheus = true
	cometConfig.Instrumentation.Namespace = "agora"
	return cometConfig
}
