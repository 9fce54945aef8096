// Package domain contains the core domain types for the pricing context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Mode selects how the advisory estimate is quoted.
type Mode string

const (
	// ModeDual buys on router A and sells the output on router B.
	ModeDual Mode = "dual"
	// ModeSingle round-trips tokenIn -> tokenOut -> tokenIn on router A.
	ModeSingle Mode = "single"
)

// Quote is a router getAmountsOut answer.
type Quote struct {
	Router    common.Address
	Path      []common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
	Timestamp time.Time
}

// NewQuote builds a Quote from the amounts array a V2 router returns;
// the last element is the final output.
func NewQuote(router common.Address, path []common.Address, amounts []*big.Int) Quote {
	q := Quote{
		Router:    router,
		Path:      append([]common.Address(nil), path...),
		AmountIn:  new(big.Int),
		AmountOut: new(big.Int),
		Timestamp: time.Now(),
	}
	if len(amounts) > 0 {
		q.AmountIn.Set(amounts[0])
		q.AmountOut.Set(amounts[len(amounts)-1])
	}
	return q
}

// RoundTripProfit is max(0, quotedOut - amountIn). Both are in tokenIn units.
func RoundTripProfit(quotedOut, amountIn *big.Int) *big.Int {
	p := new(big.Int).Sub(quotedOut, amountIn)
	if p.Sign() < 0 {
		return p.SetInt64(0)
	}
	return p
}
