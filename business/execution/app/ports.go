// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
)

// Simulator asks the strategy contract for the authoritative profit estimate.
type Simulator interface {
	// Simulate never fails: errors come back as {OK: false, EstimatedProfit: 0}.
	Simulate(ctx context.Context, amountIn *big.Int) arbDomain.SimulationResult
}

// StrategyEncoder produces calldata for the deployed strategy contract.
type StrategyEncoder interface {
	Address() common.Address
	EncodeExecuteArb(amountIn, minProfit *big.Int) ([]byte, error)
	EncodeWithdrawTokens(token common.Address) ([]byte, error)
}

// SubmitResult is what a submitter learned when handing over the bundle.
type SubmitResult struct {
	BundleHash string
	// TargetBound is true when the bundle is only valid for the target block.
	TargetBound bool
}

// Submitter delivers signed transactions to the chain.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, txs []*types.Transaction, targetBlock uint64, replacementID string) (SubmitResult, error)
}
