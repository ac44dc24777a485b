package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyogster/agora-scores/types"
)

func TestWriteAndLoad(t *testing.T) {
	home := t.TempDir()
	cfg := NewAgoraConfig(home)
	cfg.App.DAOName = "Test DAO"
	cfg.App.TokenRPC = "http://127.0.0.1:9000"
	cfg.Consensus.TimeoutCommit = 3 * time.Second
	require.NoError(t, WriteConfigFile(filepath.Join(home, "config", ConfigFileName), cfg))

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, "Test DAO", loaded.App.DAOName)
	assert.Equal(t, "http://127.0.0.1:9000", loaded.App.TokenRPC)
	assert.Equal(t, DefaultIndexerAddr, loaded.App.IndexerListen)
	assert.Equal(t, 3*time.Second, loaded.Consensus.TimeoutCommit)
	assert.Equal(t, home, loaded.RootDir)
	assert.Equal(t, home, loaded.App.Home)
	assert.Equal(t, filepath.Join(home, DefaultIndexerDB), loaded.App.IndexerDBPath())
	assert.Equal(t, "agora", loaded.Instrumentation.Namespace)
}

func TestLoadRejectsEmptyName(t *testing.T) {
	home := t.TempDir()
	cfg := NewAgoraConfig(home)
	cfg.App.DAOName = ""
	require.NoError(t, WriteConfigFile(filepath.Join(home, "config", ConfigFileName), cfg))

	_, err := Load(home)
	assert.ErrorIs(t, err, ErrEmptyDAOName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := DefaultAgoraAppConfig("/tmp/agora")
	assert.Equal(t, types.DefaultDAOName, cfg.DAOName)
	assert.Equal(t, "/tmp/agora/data", cfg.DataDir())
	cfg.IndexerDB = "/var/lib/agora.db"
	assert.Equal(t, "/var/lib/agora.db", cfg.IndexerDBPath())
}

func TestInitializeOwner(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0o755))
	owner, err := InitializeOwner(home)
	require.NoError(t, err)
	assert.Len(t, owner, 42)
	_, err = os.Stat(filepath.Join(home, "config", OwnerKeyFile))
	assert.NoError(t, err)
}
