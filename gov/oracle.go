package gov

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/suyogster/agora-scores/types"
)

// TokenProxy is the snapshot capability of one governance token.
//
// Snapshot checkpoints every balance of the token and returns the
// checkpoint id; it has side effects on the token. BalanceAt must ignore
// transfers made after the checkpoint was taken.
type TokenProxy interface {
	Snapshot(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, holder common.Address, snapshotId uint64) (*uint256.Int, error)
}

// SnapshotOracle resolves a registered token to its proxy.
type SnapshotOracle interface {
	Proxy(ctx context.Context, token types.GovernanceToken) (TokenProxy, error)
}

// NotificationSink receives events after the mutation they describe has
// been written.
type NotificationSink interface {
	Emit(ctx context.Context, event types.Event)
}

type SinkFunc func(ctx context.Context, event types.Event)

func (f SinkFunc) Emit(ctx context.Context, event types.Event) {
	f(ctx, event)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, types.Event) {}
