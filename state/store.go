package state

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrReadOnly = errors.New("store is read only")
	ErrNilValue = errors.New("nil value")
)

// KVStore is the storage the governance state is kept in. A nil value from
// Get means the key is absent.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// MemStore is a map backed KVStore.
type MemStore struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.data[string(key)], nil
}

func (m *MemStore) Set(key, value []byte) error {
	if value == nil {
		return ErrNilValue
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) Len() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.data)
}

// CacheKV buffers writes on top of a parent store. Nothing reaches the
// parent until Write; Discard drops the buffer.
type CacheKV struct {
	parent KVStore
	dirty  map[string][]byte
}

func NewCacheKV(parent KVStore) *CacheKV {
	return &CacheKV{
		parent: parent,
		dirty:  make(map[string][]byte),
	}
}

func (c *CacheKV) Get(key []byte) ([]byte, error) {
	if v, ok := c.dirty[string(key)]; ok {
		return v, nil
	}
	return c.parent.Get(key)
}

func (c *CacheKV) Set(key, value []byte) error {
	if value == nil {
		return ErrNilValue
	}
	c.dirty[string(key)] = append([]byte(nil), value...)
	return nil
}

// Dirty returns the number of buffered keys.
func (c *CacheKV) Dirty() int {
	return len(c.dirty)
}

// Write flushes buffered writes to the parent in key order.
func (c *CacheKV) Write() (err error) {
	keys := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		err = c.parent.Set([]byte(k), c.dirty[k])
		if err != nil {
			return
		}
	}
	c.dirty = make(map[string][]byte)
	return
}

func (c *CacheKV) Discard() {
	c.dirty = make(map[string][]byte)
}

type readOnlyStore struct {
	get func(key []byte) ([]byte, error)
}

func (r readOnlyStore) Get(key []byte) ([]byte, error) {
	return r.get(key)
}

func (r readOnlyStore) Set(key, value []byte) error {
	return ErrReadOnly
}
