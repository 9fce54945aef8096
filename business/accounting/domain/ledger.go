// Package domain contains the accounting ledger: trade count, cumulative
// net profit since the last withdrawal and the threshold rule.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// State is a copy of the ledger counters.
type State struct {
	TradeCount          uint64
	CumulativeNetProfit *big.Int
	Threshold           *big.Int
	// Withdrawals counts threshold crossings.
	Withdrawals uint64
}

// Entry is what one Record call produced.
type Entry struct {
	Index       uint64
	Profit      *big.Int
	GasCost     *big.Int
	NetProfit   *big.Int
	DidWithdraw bool
}

// Ledger is not safe for concurrent use. It is owned by the loop and only
// touched inside a running tick.
type Ledger struct {
	threshold   *big.Int
	tradeCount  uint64
	cumulative  *big.Int
	withdrawals uint64
	recorded    map[common.Hash]struct{}
}

// NewLedger creates an empty ledger. threshold must be positive.
func NewLedger(threshold *big.Int) (*Ledger, error) {
	if threshold == nil || threshold.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("withdraw threshold must be positive"))
	}
	return &Ledger{
		threshold:  new(big.Int).Set(threshold),
		cumulative: new(big.Int),
		recorded:   make(map[common.Hash]struct{}),
	}, nil
}

// Record books one confirmed trade. netProfit is the on-chain estimate minus
// the gas paid. When cumulative + netProfit reaches the threshold the
// cumulative is reset to zero and didWithdraw is true.
//
// A receipt is accepted once; unconfirmed receipts are refused.
func (l *Ledger) Record(sim arbDomain.SimulationResult, receipt arbDomain.ExecutionReceipt) (*big.Int, bool, error) {
	e, err := l.RecordEntry(sim, receipt)
	if err != nil {
		return nil, false, err
	}
	return e.NetProfit, e.DidWithdraw, nil
}

// RecordEntry is Record returning the full entry for journaling.
func (l *Ledger) RecordEntry(sim arbDomain.SimulationResult, receipt arbDomain.ExecutionReceipt) (Entry, error) {
	if !receipt.Success {
		return Entry{}, apperror.New(apperror.CodeUnconfirmedRecord,
			apperror.WithContext("receipt is not a confirmed success"))
	}
	key := receipt.Key()
	if key == (common.Hash{}) {
		return Entry{}, apperror.New(apperror.CodeUnconfirmedRecord,
			apperror.WithContext("receipt has no transaction hash"))
	}
	if _, dup := l.recorded[key]; dup {
		return Entry{}, apperror.New(apperror.CodeDuplicateRecord,
			apperror.WithContext(fmt.Sprintf("receipt %s already recorded", key.Hex())))
	}

	profit := new(big.Int)
	if sim.EstimatedProfit != nil {
		profit.Set(sim.EstimatedProfit)
	}
	// wei and tokenIn base units are the same scale; config enforces it.
	gasCost := receipt.GasCost()
	net := new(big.Int).Sub(profit, gasCost)

	l.recorded[key] = struct{}{}
	l.tradeCount++

	next, crossed := Apply(l.cumulative, net, l.threshold)
	l.cumulative = next
	if crossed {
		l.withdrawals++
	}

	return Entry{
		Index:       l.tradeCount,
		Profit:      profit,
		GasCost:     gasCost,
		NetProfit:   net,
		DidWithdraw: crossed,
	}, nil
}

// State returns a copy of the counters.
func (l *Ledger) State() State {
	return State{
		TradeCount:          l.tradeCount,
		CumulativeNetProfit: new(big.Int).Set(l.cumulative),
		Threshold:           new(big.Int).Set(l.threshold),
		Withdrawals:         l.withdrawals,
	}
}

// Threshold returns the withdraw threshold.
func (l *Ledger) Threshold() *big.Int {
	return new(big.Int).Set(l.threshold)
}

// Apply is the threshold rule: it returns the next cumulative value and
// whether the threshold was crossed. It does not modify its arguments.
func Apply(cumulative, netProfit, threshold *big.Int) (*big.Int, bool) {
	sum := new(big.Int).Add(cumulative, netProfit)
	if sum.Cmp(threshold) >= 0 {
		return new(big.Int), true
	}
	return sum, false
}

// Replay folds per-trade net profits through the threshold rule from zero
// and returns the final cumulative and the number of resets.
func Replay(threshold *big.Int, netProfits []*big.Int) (*big.Int, int) {
	cumulative := new(big.Int)
	resets := 0
	for _, p := range netProfits {
		var crossed bool
		cumulative, crossed = Apply(cumulative, p, threshold)
		if crossed {
			resets++
		}
	}
	return cumulative, resets
}
