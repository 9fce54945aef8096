package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Outcome is the terminal state of one tick.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeExecuted Outcome = "executed"
	OutcomeFailed   Outcome = "failed"
)

// TickReport describes one completed tick.
type TickReport struct {
	Tick      uint64
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Reason    string

	Offchain SimulationResult
	Onchain  SimulationResult

	// Set when Outcome is executed.
	Trade *TradeRecord
	// Set when Outcome is failed.
	Err error
}

// TradeRecord is one accounted trade.
type TradeRecord struct {
	Index       uint64
	Timestamp   time.Time
	AmountIn    *big.Int
	Profit      *big.Int
	GasUsed     uint64
	GasCost     *big.Int
	NetProfit   *big.Int
	TxHashes    []common.Hash
	BlockNumber uint64
	Withdrawn   bool
}

// Snapshot is an immutable view published after every tick for readers
// outside the loop. It never aliases the ledger.
type Snapshot struct {
	Running             bool
	Ticks               uint64
	Skipped             uint64
	Executed            uint64
	Failed              uint64
	TradeCount          uint64
	CumulativeNetProfit *big.Int
	TotalNetProfit      *big.Int
	Withdrawals         uint64
	LastTick            *TickReport
	UpdatedAt           time.Time
}
