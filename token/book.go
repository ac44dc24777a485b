package token

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/suyogster/agora-scores/state"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonexistentSnapshot = errors.New("nonexistent snapshot id")
	ErrSupplyOverflow      = errors.New("supply overflow")
)

var (
	KeyBalance     = "tb/%x/b/%x"
	KeyCheckpoints = "tb/%x/c/%x"
	KeySnapshotId  = "tb/%x/s"
)

type checkpoint struct {
	Id    uint64
	Value *uint256.Int
}

// Book is a fungible token ledger that can checkpoint every balance.
// A checkpoint is written lazily: the first balance change of a holder
// after a snapshot records the pre-change balance under that snapshot id.
type Book struct {
	store   state.KVStore
	address common.Address
}

func NewBook(store state.KVStore, address common.Address) *Book {
	return &Book{store: store, address: address}
}

func (b *Book) Address() common.Address {
	return b.address
}

func (b *Book) balanceKey(holder common.Address) []byte {
	return []byte(fmt.Sprintf(KeyBalance, b.address.Bytes(), holder.Bytes()))
}

func (b *Book) checkpointKey(holder common.Address) []byte {
	return []byte(fmt.Sprintf(KeyCheckpoints, b.address.Bytes(), holder.Bytes()))
}

func (b *Book) BalanceOf(holder common.Address) (*uint256.Int, error) {
	val, err := b.store.Get(b.balanceKey(holder))
	if err != nil {
		return nil, err
	}
	balance := new(uint256.Int)
	if val == nil {
		return balance, nil
	}
	if err = rlp.DecodeBytes(val, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (b *Book) setBalance(holder common.Address, balance *uint256.Int) error {
	val, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return b.store.Set(b.balanceKey(holder), val)
}

func (b *Book) CurrentSnapshot() (id uint64, err error) {
	val, err := b.store.Get([]byte(fmt.Sprintf(KeySnapshotId, b.address.Bytes())))
	if err != nil || val == nil {
		return 0, err
	}
	err = rlp.DecodeBytes(val, &id)
	return
}

// Snapshot starts a new checkpoint and returns its id. Ids start at 1.
func (b *Book) Snapshot(ctx context.Context) (uint64, error) {
	id, err := b.CurrentSnapshot()
	if err != nil {
		return 0, err
	}
	id++
	val, err := rlp.EncodeToBytes(id)
	if err != nil {
		return 0, err
	}
	if err = b.store.Set([]byte(fmt.Sprintf(KeySnapshotId, b.address.Bytes())), val); err != nil {
		return 0, err
	}
	return id, nil
}

func (b *Book) checkpoints(holder common.Address) (cps []checkpoint, err error) {
	val, err := b.store.Get(b.checkpointKey(holder))
	if err != nil || val == nil {
		return nil, err
	}
	err = rlp.DecodeBytes(val, &cps)
	return
}

// BalanceAt returns the balance holder had when snapshot id was taken.
func (b *Book) BalanceAt(ctx context.Context, holder common.Address, id uint64) (*uint256.Int, error) {
	current, err := b.CurrentSnapshot()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > current {
		return nil, fmt.Errorf("%w: %d", ErrNonexistentSnapshot, id)
	}
	cps, err := b.checkpoints(holder)
	if err != nil {
		return nil, err
	}
	i := sort.Search(len(cps), func(i int) bool { return cps[i].Id >= id })
	if i < len(cps) {
		return cps[i].Value.Clone(), nil
	}
	return b.BalanceOf(holder)
}

func (b *Book) updateCheckpoint(holder common.Address) error {
	current, err := b.CurrentSnapshot()
	if err != nil || current == 0 {
		return err
	}
	cps, err := b.checkpoints(holder)
	if err != nil {
		return err
	}
	if len(cps) > 0 && cps[len(cps)-1].Id >= current {
		return nil
	}
	balance, err := b.BalanceOf(holder)
	if err != nil {
		return err
	}
	cps = append(cps, checkpoint{Id: current, Value: balance})
	val, err := rlp.EncodeToBytes(cps)
	if err != nil {
		return err
	}
	return b.store.Set(b.checkpointKey(holder), val)
}

func (b *Book) Mint(holder common.Address, amount *uint256.Int) error {
	if err := b.updateCheckpoint(holder); err != nil {
		return err
	}
	balance, err := b.BalanceOf(holder)
	if err != nil {
		return err
	}
	if _, overflow := balance.AddOverflow(balance, amount); overflow {
		return ErrSupplyOverflow
	}
	return b.setBalance(holder, balance)
}

func (b *Book) Transfer(from, to common.Address, amount *uint256.Int) error {
	fromBalance, err := b.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	if err = b.updateCheckpoint(from); err != nil {
		return err
	}
	if err = b.updateCheckpoint(to); err != nil {
		return err
	}
	if err = b.setBalance(from, fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := b.BalanceOf(to)
	if err != nil {
		return err
	}
	if _, overflow := toBalance.AddOverflow(toBalance, amount); overflow {
		return ErrSupplyOverflow
	}
	return b.setBalance(to, toBalance)
}
