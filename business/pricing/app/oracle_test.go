package app_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/pricing/app"
	"github.com/fd1az/arbitrage-executor/business/pricing/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

var (
	tokenIn  = common.HexToAddress("0x01")
	tokenOut = common.HexToAddress("0x02")
)

// stubRouter multiplies the input by num/den per hop.
type stubRouter struct {
	addr     common.Address
	num, den int64
	err      error
	paths    [][]common.Address
}

func (s *stubRouter) Address() common.Address { return s.addr }

func (s *stubRouter) GetAmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return nil, s.err
	}
	amounts := []*big.Int{new(big.Int).Set(amountIn)}
	for i := 1; i < len(path); i++ {
		next := new(big.Int).Mul(amounts[i-1], big.NewInt(s.num))
		amounts = append(amounts, next.Quo(next, big.NewInt(s.den)))
	}
	return amounts, nil
}

func TestOracle_DualMode(t *testing.T) {
	// A sells tokenOut cheap (x2), B buys it back at a premium (x0.6): 1000 -> 2000 -> 1200
	a := &stubRouter{addr: common.HexToAddress("0xa"), num: 2, den: 1}
	b := &stubRouter{addr: common.HexToAddress("0xb"), num: 3, den: 5}
	o := app.NewOracle(a, b, domain.ModeDual, logger.NewNop())

	got := o.EstimateOffchainProfit(context.Background(), big.NewInt(1000), tokenIn, tokenOut)
	assert.Equal(t, "200", got.String())

	require.Len(t, a.paths, 1)
	assert.Equal(t, []common.Address{tokenIn, tokenOut}, a.paths[0])
	require.Len(t, b.paths, 1)
	assert.Equal(t, []common.Address{tokenOut, tokenIn}, b.paths[0])
}

func TestOracle_SingleModeRoundTrip(t *testing.T) {
	a := &stubRouter{addr: common.HexToAddress("0xa"), num: 99, den: 100}
	o := app.NewOracle(a, nil, domain.ModeSingle, logger.NewNop())

	res := o.Estimate(context.Background(), big.NewInt(10_000), tokenIn, tokenOut)
	assert.True(t, res.OK)
	assert.Equal(t, arbDomain.SourceOffchain, res.Source)
	// 10000 -> 9900 -> 9801: a loss is clamped to zero
	assert.Equal(t, "0", res.EstimatedProfit.String())
	assert.Equal(t, []common.Address{tokenIn, tokenOut, tokenIn}, a.paths[0])
}

func TestOracle_ErrorsYieldZero(t *testing.T) {
	tests := []struct {
		name string
		a, b *stubRouter
		mode domain.Mode
		amt  *big.Int
		code apperror.Code
	}{
		{
			name: "router_a_fails",
			a:    &stubRouter{err: apperror.New(apperror.CodeQuoteFailed)},
			b:    &stubRouter{num: 1, den: 1},
			mode: domain.ModeDual,
			amt:  big.NewInt(1),
			code: apperror.CodeQuoteFailed,
		},
		{
			name: "router_b_fails",
			a:    &stubRouter{num: 1, den: 1},
			b:    &stubRouter{err: errors.New("boom")},
			mode: domain.ModeDual,
			amt:  big.NewInt(1),
		},
		{
			name: "non_positive_amount",
			a:    &stubRouter{num: 1, den: 1},
			b:    &stubRouter{num: 1, den: 1},
			mode: domain.ModeDual,
			amt:  big.NewInt(0),
			code: apperror.CodeInvalidTradeSize,
		},
		{
			name: "unknown_mode",
			a:    &stubRouter{num: 1, den: 1},
			mode: domain.Mode("triangular"),
			amt:  big.NewInt(1),
			code: apperror.CodeConfigurationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b app.Router
			if tt.b != nil {
				b = tt.b
			}
			o := app.NewOracle(tt.a, b, tt.mode, logger.NewNop())

			res := o.Estimate(context.Background(), tt.amt, tokenIn, tokenOut)
			assert.False(t, res.OK)
			assert.Equal(t, "0", res.EstimatedProfit.String())
			require.Error(t, res.Err)
			if tt.code != "" {
				assert.True(t, apperror.HasCode(res.Err, tt.code))
			}
		})
	}
}

type stubPairs struct {
	pair     common.Address
	reserves domain.PoolReserves
}

func (s stubPairs) GetPair(context.Context, common.Address, common.Address, common.Address) (common.Address, error) {
	return s.pair, nil
}

func (s stubPairs) GetReserves(context.Context, common.Address) (domain.PoolReserves, error) {
	return s.reserves, nil
}

func TestInspector(t *testing.T) {
	pair := common.HexToAddress("0xfeed")
	reserves := domain.PoolReserves{
		Pair: pair, Token0: tokenOut, Token1: tokenIn,
		Reserve0: big.NewInt(2000), Reserve1: big.NewInt(1000),
	}
	in := app.NewInspector(stubPairs{pair: pair, reserves: reserves}, 0)

	rep, err := in.Inspect(context.Background(), app.Venue{Name: "uni"}, tokenIn, tokenOut, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "1000", rep.ReserveIn.String())
	assert.Equal(t, "2000", rep.ReserveOut.String())
	assert.Equal(t, "1000", rep.AmountOut.String())

	missing := app.NewInspector(stubPairs{}, 30)
	_, err = missing.Inspect(context.Background(), app.Venue{Name: "sushi"}, tokenIn, tokenOut, big.NewInt(1))
	assert.True(t, apperror.HasCode(err, apperror.CodePairNotFound))
}
