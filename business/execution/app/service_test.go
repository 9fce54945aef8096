package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/blockchain/blockchaintest"
	chainDomain "github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

var (
	strategyAddr = common.HexToAddress("0x5000000000000000000000000000000000000005")
	tokenIn      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenOut     = common.HexToAddress("0x2000000000000000000000000000000000000002")
	gwei         = big.NewInt(1_000_000_000)
)

type stubEncoder struct {
	err error
}

func (stubEncoder) Address() common.Address { return strategyAddr }

func (e stubEncoder) EncodeExecuteArb(amountIn, minProfit *big.Int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return append([]byte{0x01}, append(amountIn.Bytes(), minProfit.Bytes()...)...), nil
}

func (e stubEncoder) EncodeWithdrawTokens(token common.Address) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return append([]byte{0x02}, token.Bytes()...), nil
}

type stubGas struct {
	estimate uint64
	err      error
}

func (g stubGas) SuggestFees(context.Context) (chainDomain.FeeQuote, error) {
	return chainDomain.NewFeeQuote(big.NewInt(100), big.NewInt(5), time.Now()), nil
}

func (g stubGas) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return g.estimate, g.err
}

type stubSubmitter struct {
	mu          sync.Mutex
	targetBound bool
	err         error
	submitted   [][]*types.Transaction
	targets     []uint64
	replacement []string
}

func (s *stubSubmitter) Name() string { return "stub" }

func (s *stubSubmitter) Submit(_ context.Context, txs []*types.Transaction, target uint64, replacementID string) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return SubmitResult{}, s.err
	}
	s.submitted = append(s.submitted, txs)
	s.targets = append(s.targets, target)
	s.replacement = append(s.replacement, replacementID)
	return SubmitResult{BundleHash: "0xbundle", TargetBound: s.targetBound}, nil
}

type harness struct {
	chain     *blockchaintest.Chain
	submitter *stubSubmitter
	service   *Service
}

func newHarness(t *testing.T, gas stubGas, maxPolls int) *harness {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	chain := blockchaintest.New(42161)
	chain.Nonces[crypto.PubkeyToAddress(key.PublicKey)] = 7

	sub := &stubSubmitter{}
	svc, err := NewService(chain, gas, sub, NewBuilder(stubEncoder{}, 500_000, 120_000), key, ServiceConfig{
		ChainID:               big.NewInt(42161),
		WithdrawToken:         tokenIn,
		InclusionPollInterval: time.Millisecond,
		InclusionMaxPolls:     maxPolls,
	}, logger.NewNop())
	require.NoError(t, err)

	return &harness{chain: chain, submitter: sub, service: svc}
}

// mineOnPoll mines every polled hash once with the given status and gas.
func mineOnPoll(status uint64, gasUsed map[int]uint64, price *big.Int) func(*blockchaintest.Chain, common.Hash) {
	var mu sync.Mutex
	seen := map[common.Hash]bool{}
	order := 0
	return func(c *blockchaintest.Chain, h common.Hash) {
		mu.Lock()
		defer mu.Unlock()
		if seen[h] {
			return
		}
		seen[h] = true
		c.Mine(h, status, gasUsed[order], price)
		order++
	}
}

func intent(withdraw bool) arbDomain.TradeIntent {
	return arbDomain.NewTradeIntent(big.NewInt(5e16), big.NewInt(1e14), tokenIn, tokenOut, withdraw)
}

func TestService_ExecuteSumsGasAcrossBundle(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 250_000}, 5)
	h.chain.OnPoll = mineOnPoll(types.ReceiptStatusSuccessful, map[int]uint64{0: 180_000, 1: 40_000}, gwei)

	receipt, err := h.service.Execute(context.Background(), intent(true))
	require.NoError(t, err)

	assert.True(t, receipt.Success)
	assert.Equal(t, uint64(220_000), receipt.GasUsed)
	assert.Equal(t, gwei.String(), receipt.EffectiveGasPrice.String())
	assert.Equal(t, "220000000000000", receipt.GasCost().String())
	require.Len(t, receipt.TxHashes, 2)

	require.Len(t, h.submitter.submitted, 1)
	sent := h.submitter.submitted[0]
	assert.Equal(t, sent[0].Hash(), receipt.Key())
	assert.Equal(t, sent[1].Hash(), receipt.TxHashes[1])
	assert.Equal(t, uint64(101), h.submitter.targets[0], "targets head+1")
}

func TestService_SignsSequentialNoncesWithSharedFees(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 250_000}, 1)

	bundle, err := h.service.Build(intent(true))
	require.NoError(t, err)
	pending, err := h.service.SignAndSubmit(context.Background(), bundle)
	require.NoError(t, err)

	require.Len(t, pending.Txs, 2)
	trade, withdraw := pending.Txs[0], pending.Txs[1]

	assert.Equal(t, uint64(7), trade.Nonce())
	assert.Equal(t, uint64(8), withdraw.Nonce())
	assert.Equal(t, trade.GasFeeCap(), withdraw.GasFeeCap())
	assert.Equal(t, trade.GasTipCap(), withdraw.GasTipCap())
	assert.Equal(t, "205", trade.GasFeeCap().String())

	assert.Equal(t, uint64(250_000), trade.Gas(), "first call is estimated")
	assert.Equal(t, uint64(120_000), withdraw.Gas(), "later calls use their configured limit")

	assert.Equal(t, byte(0x01), trade.Data()[0])
	assert.Equal(t, byte(0x02), withdraw.Data()[0])
	assert.Equal(t, strategyAddr, *trade.To())

	signer := types.LatestSignerForChainID(big.NewInt(42161))
	from, err := types.Sender(signer, trade)
	require.NoError(t, err)
	assert.Equal(t, h.service.From(), from)
}

func TestService_EstimateFailureFallsBack(t *testing.T) {
	h := newHarness(t, stubGas{err: errors.New("execution reverted")}, 1)

	bundle, err := h.service.Build(intent(false))
	require.NoError(t, err)
	pending, err := h.service.SignAndSubmit(context.Background(), bundle)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), pending.Txs[0].Gas())
}

func TestService_SubmitterErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Code
	}{
		{"rejection keeps its class", apperror.New(apperror.CodeBundleRejected), apperror.CodeBundleRejected},
		{"transport error", errors.New("connection reset"), apperror.CodeRelaySubmissionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, stubGas{estimate: 1}, 1)
			h.submitter.err = tt.err

			_, err := h.service.Execute(context.Background(), intent(false))
			require.Error(t, err)
			assert.Equal(t, tt.want, apperror.GetCode(err))
		})
	}
}

func TestService_RevertedReceiptIsRejected(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 1}, 5)
	h.chain.OnPoll = mineOnPoll(types.ReceiptStatusFailed, map[int]uint64{0: 90_000}, gwei)

	_, err := h.service.Execute(context.Background(), intent(false))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeBundleRejected, apperror.GetCode(err))
}

func TestService_TargetPassedIsTimeout(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 1}, 50)
	h.submitter.targetBound = true

	polls := 0
	h.chain.OnPoll = func(c *blockchaintest.Chain, _ common.Hash) {
		polls++
		c.Advance(1)
	}

	_, err := h.service.Execute(context.Background(), intent(false))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeBundleTimeout, apperror.GetCode(err))
	assert.Less(t, polls, 50, "gives up once the target block is gone")
}

func TestService_PollsExhaustedIsTimeout(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 1}, 3)

	polls := 0
	h.chain.OnPoll = func(*blockchaintest.Chain, common.Hash) { polls++ }

	_, err := h.service.Execute(context.Background(), intent(false))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeBundleTimeout, apperror.GetCode(err))
	assert.Equal(t, 3, polls)
}

func TestService_CancelledWhileWaiting(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 1}, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	h.chain.OnPoll = func(*blockchaintest.Chain, common.Hash) { cancel() }

	_, err := h.service.Execute(ctx, intent(false))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBundleTimeout))
}

func TestService_Withdraw(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 60_000}, 5)
	h.chain.OnPoll = mineOnPoll(types.ReceiptStatusSuccessful, map[int]uint64{0: 45_000}, gwei)

	receipt, err := h.service.Withdraw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(45_000), receipt.GasUsed)

	require.Len(t, h.submitter.submitted, 1)
	txs := h.submitter.submitted[0]
	require.Len(t, txs, 1)
	assert.Equal(t, append([]byte{0x02}, tokenIn.Bytes()...), txs[0].Data())
}

func TestService_EmptyBundle(t *testing.T) {
	h := newHarness(t, stubGas{}, 1)
	_, err := h.service.SignAndSubmit(context.Background(), domain.Bundle{})
	assert.True(t, apperror.HasCode(err, apperror.CodeBundleEncodingFailed))
}

func TestService_AssignsReplacementID(t *testing.T) {
	h := newHarness(t, stubGas{estimate: 250_000}, 1)
	ids := []string{"first", "second"}
	h.service.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	bundle, err := h.service.Build(intent(false))
	require.NoError(t, err)
	require.Empty(t, bundle.ReplacementID)

	pending, err := h.service.SignAndSubmit(context.Background(), bundle)
	require.NoError(t, err)
	assert.Equal(t, "first", pending.Bundle.ReplacementID)

	bundle.ReplacementID = "resubmit"
	pending, err = h.service.SignAndSubmit(context.Background(), bundle)
	require.NoError(t, err)
	assert.Equal(t, "resubmit", pending.Bundle.ReplacementID)

	assert.Equal(t, []string{"first", "resubmit"}, h.submitter.replacement)
}
