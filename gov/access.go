package gov

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AccessControl answers identity questions for the engine. The engine only
// consumes these answers; verifying who the caller is happens upstream.
type AccessControl interface {
	CurrentCaller(ctx context.Context) (common.Address, error)
	Owner(ctx context.Context) (common.Address, error)
	IsAutomatedAccount(ctx context.Context, addr common.Address) (bool, error)
}

// Clock supplies the time an operation runs at.
type Clock interface {
	Now(ctx context.Context) time.Time
}

type callerKey struct{}
type blockTimeKey struct{}
type snapshotBoundaryKey struct{}

func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}

func WithBlockTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, blockTimeKey{}, t)
}

func BlockTimeFromContext(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(blockTimeKey{}).(time.Time)
	return t, ok
}

func enterSnapshotBoundary(ctx context.Context) context.Context {
	return context.WithValue(ctx, snapshotBoundaryKey{}, true)
}

func inSnapshotBoundary(ctx context.Context) bool {
	in, _ := ctx.Value(snapshotBoundaryKey{}).(bool)
	return in
}

// ContextClock reads the block time carried by the context, falling back to
// the wall clock.
type ContextClock struct{}

func (ContextClock) Now(ctx context.Context) time.Time {
	if t, ok := BlockTimeFromContext(ctx); ok {
		return t
	}
	return time.Now()
}

// StaticAccess takes the caller from the context and answers owner and
// automated-account questions from fixed values.
type StaticAccess struct {
	OwnerAddr common.Address
	Automated map[common.Address]bool
}

func NewStaticAccess(owner common.Address, automated ...common.Address) *StaticAccess {
	a := &StaticAccess{
		OwnerAddr: owner,
		Automated: make(map[common.Address]bool, len(automated)),
	}
	for _, addr := range automated {
		a.Automated[addr] = true
	}
	return a
}

func (a *StaticAccess) CurrentCaller(ctx context.Context) (common.Address, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return common.Address{}, ErrNoCaller
	}
	return caller, nil
}

func (a *StaticAccess) Owner(ctx context.Context) (common.Address, error) {
	return a.OwnerAddr, nil
}

func (a *StaticAccess) IsAutomatedAccount(ctx context.Context, addr common.Address) (bool, error) {
	return a.Automated[addr], nil
}
