package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-executor/business/pricing/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// Venue is one factory/router pair to inspect.
type Venue struct {
	Name    string
	Factory common.Address
}

// PoolReport is the state of one venue's pair plus the constant-product
// quote for a trade of AmountIn.
type PoolReport struct {
	Venue      Venue
	Reserves   domain.PoolReserves
	ReserveIn  *big.Int
	ReserveOut *big.Int
	AmountIn   *big.Int
	AmountOut  *big.Int
}

// Inspector reads pair addresses and reserves directly from V2 factories.
type Inspector struct {
	pairs  PairReader
	feeBps uint32
}

// NewInspector creates an Inspector using the given swap fee.
func NewInspector(pairs PairReader, feeBps uint32) *Inspector {
	return &Inspector{pairs: pairs, feeBps: feeBps}
}

// Inspect resolves the tokenIn/tokenOut pair on venue. A missing pair is a
// CodePairNotFound error.
func (i *Inspector) Inspect(ctx context.Context, venue Venue, tokenIn, tokenOut common.Address, amountIn *big.Int) (PoolReport, error) {
	report := PoolReport{Venue: venue, AmountIn: amountIn}

	pair, err := i.pairs.GetPair(ctx, venue.Factory, tokenIn, tokenOut)
	if err != nil {
		return report, err
	}
	if pair == (common.Address{}) {
		return report, apperror.New(apperror.CodePairNotFound,
			apperror.WithContext(venue.Name+": no pair for "+tokenIn.Hex()+"/"+tokenOut.Hex()))
	}

	reserves, err := i.pairs.GetReserves(ctx, pair)
	if err != nil {
		return report, err
	}
	report.Reserves = reserves
	report.ReserveIn, report.ReserveOut = reserves.Oriented(tokenIn)
	report.AmountOut = domain.AmountOut(amountIn, report.ReserveIn, report.ReserveOut, i.feeBps)
	return report, nil
}
