package app

import (
	"github.com/ethereum/go-ethereum/common"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// Builder turns trade intents into bundles. It does no I/O and is
// deterministic: the same intent always yields the same bundle, with an
// empty ReplacementID for the submitting service to fill in.
type Builder struct {
	strategy         StrategyEncoder
	tradeGasLimit    uint64
	withdrawGasLimit uint64
}

// NewBuilder creates a Builder. The gas limits are fallbacks for when
// estimation fails or is impossible.
func NewBuilder(strategy StrategyEncoder, tradeGasLimit, withdrawGasLimit uint64) *Builder {
	return &Builder{
		strategy:         strategy,
		tradeGasLimit:    tradeGasLimit,
		withdrawGasLimit: withdrawGasLimit,
	}
}

// Build encodes executeArb(amountIn, minProfit) and, when the intent asks
// for it, withdrawTokens(tokenIn) after it.
func (b *Builder) Build(intent arbDomain.TradeIntent) (domain.Bundle, error) {
	if intent.AmountIn == nil || intent.AmountIn.Sign() <= 0 {
		return domain.Bundle{}, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("amount in must be positive"))
	}
	if intent.MinProfit == nil || intent.MinProfit.Sign() < 0 {
		return domain.Bundle{}, apperror.New(apperror.CodeBundleEncodingFailed,
			apperror.WithContext("min profit must be non-negative"))
	}

	data, err := b.strategy.EncodeExecuteArb(intent.AmountIn, intent.MinProfit)
	if err != nil {
		return domain.Bundle{}, apperror.New(apperror.CodeBundleEncodingFailed,
			apperror.WithCause(err), apperror.WithContext("executeArb"))
	}

	bundle := domain.Bundle{
		Calls: []domain.Call{{
			Kind:     domain.CallExecuteTrade,
			To:       b.strategy.Address(),
			Data:     data,
			GasLimit: b.tradeGasLimit,
		}},
	}

	if intent.Withdraw {
		call, err := b.withdrawCall(intent.TokenIn)
		if err != nil {
			return domain.Bundle{}, err
		}
		bundle.Calls = append(bundle.Calls, call)
	}
	return bundle, nil
}

// BuildWithdraw returns a withdraw-only bundle.
func (b *Builder) BuildWithdraw(token common.Address) (domain.Bundle, error) {
	call, err := b.withdrawCall(token)
	if err != nil {
		return domain.Bundle{}, err
	}
	return domain.Bundle{Calls: []domain.Call{call}}, nil
}

func (b *Builder) withdrawCall(token common.Address) (domain.Call, error) {
	data, err := b.strategy.EncodeWithdrawTokens(token)
	if err != nil {
		return domain.Call{}, apperror.New(apperror.CodeBundleEncodingFailed,
			apperror.WithCause(err), apperror.WithContext("withdrawTokens"))
	}
	return domain.Call{
		Kind:     domain.CallWithdraw,
		To:       b.strategy.Address(),
		Data:     data,
		GasLimit: b.withdrawGasLimit,
	}, nil
}
