package uniswapv2

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/business/blockchain/blockchaintest"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

var (
	weth    = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	usdc    = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	factory = common.HexToAddress("0xc35DADB65012eC5796536bD9864eD8773aBc74C4")
	pairAt  = common.HexToAddress("0x905dfCD5649217c42684f23958568e533C711Aa3")
	router  = common.HexToAddress("0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506")
)

func mustABI(t *testing.T, s string) abi.ABI {
	t.Helper()
	a, err := abi.JSON(strings.NewReader(s))
	require.NoError(t, err)
	return a
}

func TestRouter_GetAmountsOut(t *testing.T) {
	routerABI := mustABI(t, RouterABI)

	chain := blockchaintest.New(42161)
	chain.CallFn = func(msg ethereum.CallMsg) ([]byte, error) {
		require.Equal(t, router, *msg.To)
		method, err := routerABI.MethodById(msg.Data[:4])
		require.NoError(t, err)
		args, err := method.Inputs.Unpack(msg.Data[4:])
		require.NoError(t, err)

		amountIn := args[0].(*big.Int)
		path := args[1].([]common.Address)
		amounts := make([]*big.Int, len(path))
		for i := range path {
			// each hop doubles the amount
			amounts[i] = new(big.Int).Lsh(amountIn, uint(i))
		}
		return method.Outputs.Pack(amounts)
	}

	r, err := NewRouter("sushiswap", router, chain, logger.NewNop())
	require.NoError(t, err)

	amounts, err := r.GetAmountsOut(context.Background(), big.NewInt(1000), []common.Address{weth, usdc, weth})
	require.NoError(t, err)
	require.Len(t, amounts, 3)
	assert.Equal(t, "4000", amounts[2].String())
	assert.Equal(t, router, r.Address())
}

func TestRouter_CallFailureIsQuoteError(t *testing.T) {
	chain := blockchaintest.New(42161)
	chain.CallFn = func(ethereum.CallMsg) ([]byte, error) {
		return nil, errors.New("execution reverted: UniswapV2Library: INSUFFICIENT_LIQUIDITY")
	}

	r, err := NewRouter("uniswap", router, chain, logger.NewNop())
	require.NoError(t, err)

	_, err = r.GetAmountsOut(context.Background(), big.NewInt(1), []common.Address{weth, usdc})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeQuoteFailed))
}

func TestPairReader(t *testing.T) {
	factoryABI := mustABI(t, FactoryABI)
	pairABI := mustABI(t, PairABI)

	chain := blockchaintest.New(42161)
	chain.CallFn = func(msg ethereum.CallMsg) ([]byte, error) {
		switch *msg.To {
		case factory:
			method, err := factoryABI.MethodById(msg.Data[:4])
			require.NoError(t, err)
			return method.Outputs.Pack(pairAt)
		case pairAt:
			method, err := pairABI.MethodById(msg.Data[:4])
			require.NoError(t, err)
			switch method.Name {
			case "token0":
				return method.Outputs.Pack(weth)
			case "token1":
				return method.Outputs.Pack(usdc)
			case "getReserves":
				return method.Outputs.Pack(big.NewInt(5e18), big.NewInt(15_000e6), uint32(1700000000))
			}
		}
		return nil, errors.New("unexpected call")
	}

	pr, err := NewPairReader(chain)
	require.NoError(t, err)

	got, err := pr.GetPair(context.Background(), factory, weth, usdc)
	require.NoError(t, err)
	assert.Equal(t, pairAt, got)

	res, err := pr.GetReserves(context.Background(), pairAt)
	require.NoError(t, err)
	assert.Equal(t, weth, res.Token0)
	assert.Equal(t, usdc, res.Token1)
	assert.Equal(t, "5000000000000000000", res.Reserve0.String())
	assert.Equal(t, "15000000000", res.Reserve1.String())
	assert.Equal(t, uint32(1700000000), res.BlockTimestampLast)
	assert.True(t, res.Exists())
}
