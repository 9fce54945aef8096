// Package app contains the loop scheduler and the ports it sequences.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	accDomain "github.com/fd1az/arbitrage-executor/business/accounting/domain"
	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	reportDomain "github.com/fd1az/arbitrage-executor/business/reporting/domain"
)

// PriceOracle produces the advisory off-chain estimate. It must not fail:
// errors come back as a result with OK false.
type PriceOracle interface {
	Estimate(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) domain.SimulationResult
}

// Simulator produces the authoritative on-chain estimate.
type Simulator interface {
	Simulate(ctx context.Context, amountIn *big.Int) domain.SimulationResult
}

// Executor builds, submits and awaits bundles.
type Executor interface {
	Execute(ctx context.Context, intent domain.TradeIntent) (domain.ExecutionReceipt, error)
	Withdraw(ctx context.Context) (domain.ExecutionReceipt, error)
}

// Ledger is the accounting state owned by the loop.
type Ledger interface {
	RecordEntry(sim domain.SimulationResult, receipt domain.ExecutionReceipt) (accDomain.Entry, error)
	State() accDomain.State
}

// Telemetry receives journal rows and alerts. Implementations swallow their
// own failures.
type Telemetry interface {
	Debug(ctx context.Context, r reportDomain.DebugRecord)
	Trade(ctx context.Context, t domain.TradeRecord)
	ThresholdCrossed(ctx context.Context, cumulative *big.Int, executed bool)
	Crash(ctx context.Context, err error)
}

// Reporter displays loop progress.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report is called after every tick with the published snapshot.
	Report(report domain.TickReport, snap domain.Snapshot)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
