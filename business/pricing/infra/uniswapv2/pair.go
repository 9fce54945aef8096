package uniswapv2

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	blockchainApp "github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/pricing/app"
	"github.com/fd1az/arbitrage-executor/business/pricing/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

var _ app.PairReader = (*PairReader)(nil)

// PairReader implements app.PairReader with factory.getPair and pair.getReserves.
type PairReader struct {
	client  blockchainApp.ChainClient
	factory abi.ABI
	pair    abi.ABI
}

// NewPairReader parses the factory and pair ABIs.
func NewPairReader(client blockchainApp.ChainClient) (*PairReader, error) {
	factory, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pair, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}
	return &PairReader{client: client, factory: factory, pair: pair}, nil
}

// GetPair returns the pair address, or the zero address when none exists.
func (p *PairReader) GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	outputs, err := p.call(ctx, p.factory, factory, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := outputs[0].(common.Address)
	if !ok {
		return common.Address{}, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("getPair: unexpected output"))
	}
	return addr, nil
}

// GetReserves reads token0, token1 and the reserves of pair.
func (p *PairReader) GetReserves(ctx context.Context, pair common.Address) (domain.PoolReserves, error) {
	res := domain.PoolReserves{Pair: pair}

	out, err := p.call(ctx, p.pair, pair, "token0")
	if err != nil {
		return res, err
	}
	res.Token0, _ = out[0].(common.Address)

	out, err = p.call(ctx, p.pair, pair, "token1")
	if err != nil {
		return res, err
	}
	res.Token1, _ = out[0].(common.Address)

	out, err = p.call(ctx, p.pair, pair, "getReserves")
	if err != nil {
		return res, err
	}
	if len(out) != 3 {
		return res, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("getReserves returned %d values", len(out))))
	}
	res.Reserve0, _ = out[0].(*big.Int)
	res.Reserve1, _ = out[1].(*big.Int)
	res.BlockTimestampLast, _ = out[2].(uint32)
	if res.Reserve0 == nil || res.Reserve1 == nil {
		return res, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("getReserves: unexpected output"))
	}
	return res, nil
}

func (p *PairReader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
			apperror.WithContext("encode "+method))
	}
	raw, err := p.client.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
			apperror.WithContext(method+" on "+to.Hex()))
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
			apperror.WithContext("decode "+method))
	}
	if len(out) == 0 {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext(method+": empty output"))
	}
	return out, nil
}
