package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// FeeQuote is the EIP-1559 fee set used to sign every transaction of a bundle.
// All transactions share it, so they share one effective gas price.
type FeeQuote struct {
	BaseFee   *big.Int
	TipCap    *big.Int
	FeeCap    *big.Int
	Timestamp time.Time
}

// NewFeeQuote derives the fee cap as 2*baseFee + tip, which survives one
// full base fee doubling before the transaction becomes unincludable.
func NewFeeQuote(baseFee, tipCap *big.Int, now time.Time) FeeQuote {
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)
	return FeeQuote{
		BaseFee:   new(big.Int).Set(baseFee),
		TipCap:    new(big.Int).Set(tipCap),
		FeeCap:    feeCap,
		Timestamp: now,
	}
}

// MaxCost is the worst-case wei spent by gasLimit units at this quote.
func (q FeeQuote) MaxCost(gasLimit uint64) *big.Int {
	return new(big.Int).Mul(q.FeeCap, new(big.Int).SetUint64(gasLimit))
}

// Gwei renders a wei amount in gwei for logs and the dashboard.
func Gwei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -9)
}
