// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/arbitrage-executor/business/blockchain/domain"
)

// ChainClient is the only path to the chain. Implementations may fan out over
// several redundant endpoints; the first successful answer wins.
type ChainClient interface {
	// NetworkID returns the chain id. It is cached after the first success.
	NetworkID(ctx context.Context) (*big.Int, error)

	// BlockNumber returns the current head height.
	BlockNumber(ctx context.Context) (uint64, error)

	// HeaderByNumber returns a header; nil number means latest.
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)

	// Call executes a read-only call against the latest state.
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)

	// SendTransaction broadcasts a signed transaction. tx.Hash() is the handle.
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// TransactionReceipt looks a receipt up once. A pending transaction yields (nil, nil).
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// WaitReceipt polls for a receipt, giving up after maxPolls misses.
	WaitReceipt(ctx context.Context, hash common.Hash, interval time.Duration, maxPolls int) (*types.Receipt, error)

	// Endpoints reports per-endpoint health.
	Endpoints() []domain.EndpointStatus
}

// GasOracle defines the interface for fee information.
type GasOracle interface {
	// SuggestFees returns the fee set for the next block.
	SuggestFees(ctx context.Context) (domain.FeeQuote, error)

	// EstimateGas estimates gas for msg with a safety margin applied.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}
