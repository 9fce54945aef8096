package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/pricing/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

// Oracle produces the advisory off-chain profit estimate. It never gates a
// trade; it exists for logging and the debug journal.
type Oracle struct {
	routerA Router
	routerB Router
	mode    domain.Mode
	logger  logger.LoggerInterface
}

// NewOracle creates an Oracle. routerB may be nil in single mode.
func NewOracle(routerA, routerB Router, mode domain.Mode, log logger.LoggerInterface) *Oracle {
	return &Oracle{
		routerA: routerA,
		routerB: routerB,
		mode:    mode,
		logger:  log,
	}
}

// Mode returns the quoting mode.
func (o *Oracle) Mode() domain.Mode {
	return o.mode
}

// EstimateOffchainProfit returns max(0, quotedOut - amountIn). Any failure
// is logged and yields zero.
func (o *Oracle) EstimateOffchainProfit(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) *big.Int {
	return o.Estimate(ctx, amountIn, tokenIn, tokenOut).EstimatedProfit
}

// Estimate is EstimateOffchainProfit with the failure cause kept.
func (o *Oracle) Estimate(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) arbDomain.SimulationResult {
	quotedOut, err := o.quoteRoundTrip(ctx, amountIn, tokenIn, tokenOut)
	if err != nil {
		o.logger.Warn(ctx, "off-chain quote failed", "mode", string(o.mode), "error", err)
		return arbDomain.FailedSimulation(arbDomain.SourceOffchain, err)
	}

	profit := domain.RoundTripProfit(quotedOut, amountIn)
	o.logger.Debug(ctx, "off-chain estimate",
		"mode", string(o.mode),
		"amount_in", amountIn.String(),
		"quoted_out", quotedOut.String(),
		"profit", profit.String(),
	)
	return arbDomain.SimulationResult{
		EstimatedProfit: profit,
		Source:          arbDomain.SourceOffchain,
		OK:              true,
	}
}

// quoteRoundTrip returns the tokenIn amount received after going out and back.
func (o *Oracle) quoteRoundTrip(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidTradeSize, apperror.WithContext("amount in must be positive"))
	}

	switch o.mode {
	case domain.ModeSingle:
		path := []common.Address{tokenIn, tokenOut, tokenIn}
		amounts, err := o.routerA.GetAmountsOut(ctx, amountIn, path)
		if err != nil {
			return nil, err
		}
		return domain.NewQuote(o.routerA.Address(), path, amounts).AmountOut, nil

	case domain.ModeDual:
		if o.routerB == nil {
			return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("dual mode needs router B"))
		}
		buyPath := []common.Address{tokenIn, tokenOut}
		buy, err := o.routerA.GetAmountsOut(ctx, amountIn, buyPath)
		if err != nil {
			return nil, err
		}
		mid := domain.NewQuote(o.routerA.Address(), buyPath, buy).AmountOut
		if mid.Sign() == 0 {
			return new(big.Int), nil
		}

		sellPath := []common.Address{tokenOut, tokenIn}
		sell, err := o.routerB.GetAmountsOut(ctx, mid, sellPath)
		if err != nil {
			return nil, err
		}
		return domain.NewQuote(o.routerB.Address(), sellPath, sell).AmountOut, nil
	}

	return nil, apperror.New(apperror.CodeConfigurationError,
		apperror.WithContext("unknown pricing mode "+string(o.mode)))
}
