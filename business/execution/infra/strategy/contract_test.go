package strategy

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

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/blockchain/blockchaintest"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	owner        = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func TestContract_Simulate(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(ContractABI))
	require.NoError(t, err)

	tests := []struct {
		name       string
		callFn     func(msg ethereum.CallMsg) ([]byte, error)
		wantOK     bool
		wantProfit string
	}{
		{
			name: "profit",
			callFn: func(msg ethereum.CallMsg) ([]byte, error) {
				if msg.From != owner || *msg.To != contractAddr {
					return nil, errors.New("wrong caller or target")
				}
				args, err := parsed.Methods["simulateArb"].Inputs.Unpack(msg.Data[4:])
				if err != nil {
					return nil, err
				}
				// profit is 1% of the trade
				in := args[0].(*big.Int)
				return parsed.Methods["simulateArb"].Outputs.Pack(new(big.Int).Div(in, big.NewInt(100)))
			},
			wantOK:     true,
			wantProfit: "500000000000000",
		},
		{
			name: "revert",
			callFn: func(ethereum.CallMsg) ([]byte, error) {
				return nil, errors.New("execution reverted: Ownable: caller is not the owner")
			},
			wantOK:     false,
			wantProfit: "0",
		},
		{
			name: "garbage_output",
			callFn: func(ethereum.CallMsg) ([]byte, error) {
				return []byte{0xde, 0xad}, nil
			},
			wantOK:     false,
			wantProfit: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := blockchaintest.New(42161)
			chain.CallFn = tt.callFn

			c, err := NewContract(contractAddr, owner, chain, logger.NewNop())
			require.NoError(t, err)

			res := c.Simulate(context.Background(), big.NewInt(50_000_000_000_000_000))
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, arbDomain.SourceOnchain, res.Source)
			assert.Equal(t, tt.wantProfit, res.EstimatedProfit.String())
			if !tt.wantOK {
				assert.True(t, apperror.HasCode(res.Err, apperror.CodeSimulationFailed))
			}
		})
	}
}

func TestContract_Encoding(t *testing.T) {
	c, err := NewContract(contractAddr, owner, blockchaintest.New(1), logger.NewNop())
	require.NoError(t, err)

	data, err := c.EncodeExecuteArb(big.NewInt(5), big.NewInt(1))
	require.NoError(t, err)
	method, err := c.abi.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "executeArb", method.Name)
	assert.Len(t, data, 4+64)

	token := common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	data, err = c.EncodeWithdrawTokens(token)
	require.NoError(t, err)
	args, err := c.abi.Methods["withdrawTokens"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, token, args[0].(common.Address))
}
