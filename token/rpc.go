package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/suyogster/agora-scores/types"
)

const (
	MethodSnapshot         = "token_snapshot"
	MethodBalanceOfAt      = "token_balanceOfAt"
	MethodBalanceOfCrownAt = "token_balanceOfCrownAt"
)

// RPCProxy reaches a token kept outside the chain through JSON-RPC.
// x_crown balances are read in crown units.
type RPCProxy struct {
	client *rpc.Client
	token  types.GovernanceToken
}

func NewRPCProxy(client *rpc.Client, token types.GovernanceToken) *RPCProxy {
	return &RPCProxy{client: client, token: token}
}

func (p *RPCProxy) Snapshot(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.client.CallContext(ctx, &id, MethodSnapshot, p.token.Handle); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (p *RPCProxy) BalanceAt(ctx context.Context, holder common.Address, snapshotId uint64) (*uint256.Int, error) {
	method := MethodBalanceOfAt
	if p.token.Name == types.TokenXCrown {
		method = MethodBalanceOfCrownAt
	}
	balance := new(uint256.Int)
	if err := p.client.CallContext(ctx, balance, method, p.token.Handle, holder, hexutil.Uint64(snapshotId)); err != nil {
		return nil, err
	}
	return balance, nil
}
