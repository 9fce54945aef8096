// Package domain contains the core domain types for the arbitrage context.
//
// Every profit, threshold and gas amount is a *big.Int in base units of the
// trade token (tokenIn). Conversion to decimals happens only at the edges.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeIntent is one tick's decision to trade. It is built once and never mutated.
type TradeIntent struct {
	AmountIn  *big.Int
	MinProfit *big.Int
	TokenIn   common.Address
	TokenOut  common.Address
	// Withdraw appends the profit withdrawal to the trade bundle.
	Withdraw bool
}

// NewTradeIntent copies the amounts so later mutation by the caller cannot leak in.
func NewTradeIntent(amountIn, minProfit *big.Int, tokenIn, tokenOut common.Address, withdraw bool) TradeIntent {
	return TradeIntent{
		AmountIn:  new(big.Int).Set(amountIn),
		MinProfit: new(big.Int).Set(minProfit),
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		Withdraw:  withdraw,
	}
}

// Source tells where a profit estimate came from.
type Source string

const (
	SourceOffchain Source = "off-chain"
	SourceOnchain  Source = "on-chain"
)

// SimulationResult is a profit estimate. Only the on-chain result gates a trade.
type SimulationResult struct {
	EstimatedProfit *big.Int
	Source          Source
	OK              bool
	Err             error
}

// FailedSimulation is the zero-profit result returned when an estimate could not be produced.
func FailedSimulation(src Source, err error) SimulationResult {
	return SimulationResult{
		EstimatedProfit: new(big.Int),
		Source:          src,
		OK:              false,
		Err:             err,
	}
}

// Passes reports whether the estimate clears minProfit.
func (r SimulationResult) Passes(minProfit *big.Int) bool {
	return r.OK && r.EstimatedProfit != nil && r.EstimatedProfit.Cmp(minProfit) >= 0
}

// ExecutionReceipt is the confirmed outcome of an included bundle.
type ExecutionReceipt struct {
	// GasUsed is summed over every transaction in the bundle.
	GasUsed uint64
	// EffectiveGasPrice is shared by all bundle transactions, which are
	// signed with identical fee parameters and land in the same block.
	EffectiveGasPrice *big.Int
	BlockNumber       uint64
	Success           bool
	TxHashes          []common.Hash
}

// GasCost returns GasUsed * EffectiveGasPrice in native wei. It is only
// comparable to profit because tokenIn is the 18-decimal wrapped gas coin.
func (r ExecutionReceipt) GasCost() *big.Int {
	if r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}

// Key identifies the receipt for duplicate detection.
func (r ExecutionReceipt) Key() common.Hash {
	if len(r.TxHashes) == 0 {
		return common.Hash{}
	}
	return r.TxHashes[0]
}
