package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultFeeBps is the 0.30% swap fee of Uniswap V2 and its forks.
const DefaultFeeBps = 30

// PoolReserves is a snapshot of a V2 pair.
type PoolReserves struct {
	Pair               common.Address
	Token0             common.Address
	Token1             common.Address
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// Exists reports whether the factory returned a deployed pair.
func (p PoolReserves) Exists() bool {
	return p.Pair != (common.Address{})
}

// Oriented returns (reserveIn, reserveOut) for a swap starting at tokenIn.
func (p PoolReserves) Oriented(tokenIn common.Address) (*big.Int, *big.Int) {
	if tokenIn == p.Token0 {
		return p.Reserve0, p.Reserve1
	}
	return p.Reserve1, p.Reserve0
}

// AmountOut applies the constant-product formula with a fee in basis points,
// rounding down like UniswapV2Library.getAmountOut. Empty pools yield zero.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) *big.Int {
	if amountIn == nil || reserveIn == nil || reserveOut == nil ||
		amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || feeBps >= 10_000 {
		return new(big.Int)
	}

	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(10_000-feeBps)))
	num := new(big.Int).Mul(inWithFee, reserveOut)
	den := new(big.Int).Mul(reserveIn, big.NewInt(10_000))
	den.Add(den, inWithFee)
	return num.Quo(num, den)
}
