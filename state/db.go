package state

import (
	"errors"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"
)

const treeCacheSize = 128

// StateDB keeps the governance state in a versioned iavl tree. Writes go
// to the working tree; Commit saves a new version.
type StateDB struct {
	mtx sync.RWMutex

	logger cmtlog.Logger
	db     *iavl.MutableTree

	version int64
	hash    []byte
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("agora", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return newStateDB(ldb, logger)
}

// NewMemStateDB returns a StateDB over an in-memory database.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return newStateDB(dbm.NewMemDB(), logger)
}

func newStateDB(ldb dbm.DB, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "agoradb")
	tdb := iavl.NewMutableTree(ldb, treeCacheSize, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	db = &StateDB{
		logger:  logger,
		db:      tdb,
		version: version,
	}
	if version > 0 {
		db.hash = calcHash(tdb.Hash())
	}
	return
}

func calcHash(rootHash []byte) []byte {
	return crypto.Keccak256(rootHash)
}

func (db *StateDB) Close() (err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	err = db.db.Close()
	return
}

func (db *StateDB) Get(key []byte) (val []byte, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	val, err = db.db.Get(key)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return
}

func (db *StateDB) Set(key, value []byte) (err error) {
	if value == nil {
		return ErrNilValue
	}
	db.mtx.Lock()
	defer db.mtx.Unlock()
	_, err = db.db.Set(key, value)
	return
}

// WorkingHash is the app hash the working tree would commit to.
func (db *StateDB) WorkingHash() []byte {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return calcHash(db.db.WorkingHash())
}

// Rollback drops every write since the last commit.
func (db *StateDB) Rollback() {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.db.Rollback()
}

func (db *StateDB) Commit() (hash []byte, version int64, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	root, version, err := db.db.SaveVersion()
	if err != nil {
		return nil, 0, err
	}
	db.version = version
	db.hash = calcHash(root)
	db.logger.Debug("state committed", "version", version)
	return db.hash, version, nil
}

func (db *StateDB) Version() int64 {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.version
}

func (db *StateDB) Hash() []byte {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.hash
}

// Committed returns a read-only view of the last committed version.
func (db *StateDB) Committed() KVStore {
	db.mtx.RLock()
	version := db.version
	db.mtx.RUnlock()
	return readOnlyStore{get: func(key []byte) ([]byte, error) {
		if version == 0 {
			return nil, nil
		}
		db.mtx.RLock()
		defer db.mtx.RUnlock()
		return db.db.GetVersioned(key, version)
	}}
}
