// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-executor/business/pricing/domain"
)

// Router quotes swaps on a Uniswap-V2-style router.
type Router interface {
	// GetAmountsOut returns the amounts along path; the last is the output.
	GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	Address() common.Address
}

// PairReader reads V2 factory and pair state.
type PairReader interface {
	GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	GetReserves(ctx context.Context, pair common.Address) (domain.PoolReserves, error)
}
