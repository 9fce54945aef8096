package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/business/blockchain/blockchaintest"
	"github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

type stubBackend struct {
	err       error
	head      uint64
	chainID   int64
	receipt   *types.Receipt
	calls     atomic.Int32
	chainHits atomic.Int32
}

func (s *stubBackend) ChainID(context.Context) (*big.Int, error) {
	s.chainHits.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return big.NewInt(s.chainID), nil
}

func (s *stubBackend) BlockNumber(context.Context) (uint64, error) {
	s.calls.Add(1)
	return s.head, s.err
}

func (s *stubBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &types.Header{Number: new(big.Int).SetUint64(s.head), BaseFee: big.NewInt(1)}, nil
}

func (s *stubBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []byte{0x01}, nil
}

func (s *stubBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	s.calls.Add(1)
	return 21000, s.err
}

func (s *stubBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	s.calls.Add(1)
	return 7, s.err
}

func (s *stubBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return big.NewInt(2), nil
}

func (s *stubBackend) SendTransaction(context.Context, *types.Transaction) error {
	s.calls.Add(1)
	return s.err
}

func (s *stubBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.receipt == nil {
		return nil, ethereum.NotFound
	}
	return s.receipt, nil
}

func (s *stubBackend) Close() {}

func newTestClient(t *testing.T, backends ...*stubBackend) *Client {
	t.Helper()

	urls := make([]string, len(backends))
	bs := make([]Backend, len(backends))
	for i, b := range backends {
		urls[i] = "https://rpc" + string(rune('a'+i)) + ".example/key"
		bs[i] = b
	}

	cfg := DefaultClientConfig(urls)
	cfg.RequestTimeout = time.Second
	cfg.Breaker = circuitbreaker.DefaultConfig("test-rpc")
	cfg.Breaker.ConsecutiveFailures = 2
	cfg.Breaker.Timeout = time.Hour

	c, err := NewClient(cfg, bs, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestClient_FirstSuccessWins(t *testing.T) {
	a := &stubBackend{head: 10}
	b := &stubBackend{head: 20}
	c := newTestClient(t, a, b)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
	assert.Equal(t, int32(0), b.calls.Load(), "second endpoint must not be consulted")
}

func TestClient_FailsOverInOrder(t *testing.T) {
	a := &stubBackend{err: errors.New("connection refused")}
	b := &stubBackend{err: errors.New("503")}
	c3 := &stubBackend{head: 30}
	c := newTestClient(t, a, b, c3)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), n)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())

	eps := c.Endpoints()
	require.Len(t, eps, 3)
	assert.Equal(t, uint64(1), eps[0].Failures)
	assert.Equal(t, "connection refused", eps[0].LastError)
	assert.Equal(t, "https://rpca.example", eps[0].URL, "path with api key is redacted")
}

func TestClient_AllFailIsRPCError(t *testing.T) {
	c := newTestClient(t,
		&stubBackend{err: errors.New("timeout")},
		&stubBackend{err: errors.New("bad gateway")},
	)

	_, err := c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeEthereumRPCError))
}

func TestClient_RevertDoesNotFailOver(t *testing.T) {
	a := &stubBackend{err: errors.New("execution reverted: no profit")}
	b := &stubBackend{}
	c := newTestClient(t, a, b)

	_, err := c.Call(context.Background(), ethereum.CallMsg{})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeEthereumRPCError))
	assert.Equal(t, int32(0), b.calls.Load())

	// reverts are answers, not endpoint failures
	assert.Equal(t, domain.EndpointHealthy, c.Endpoints()[0].State)
}

func TestClient_OpenBreakerSkipsEndpoint(t *testing.T) {
	a := &stubBackend{err: errors.New("down")}
	b := &stubBackend{head: 5}
	c := newTestClient(t, a, b)

	for i := 0; i < 2; i++ {
		_, err := c.BlockNumber(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, domain.EndpointTripped, c.Endpoints()[0].State)

	before := a.calls.Load()
	_, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, a.calls.Load(), "tripped endpoint is skipped")
}

func TestClient_AllBreakersOpen(t *testing.T) {
	a := &stubBackend{err: errors.New("down")}
	c := newTestClient(t, a)

	for i := 0; i < 2; i++ {
		_, _ = c.BlockNumber(context.Background())
	}

	_, err := c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNoHealthyEndpoint))
}

func TestClient_NetworkIDIsCached(t *testing.T) {
	a := &stubBackend{chainID: 42161}
	c := newTestClient(t, a)

	for i := 0; i < 3; i++ {
		id, err := c.NetworkID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42161), id.Int64())
	}
	assert.Equal(t, int32(1), a.chainHits.Load())
}

func TestClient_TransactionReceiptPending(t *testing.T) {
	c := newTestClient(t, &stubBackend{})

	r, err := c.TransactionReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestClient_WaitReceipt(t *testing.T) {
	t.Run("mined", func(t *testing.T) {
		want := &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 21000}
		c := newTestClient(t, &stubBackend{receipt: want})

		r, err := c.WaitReceipt(context.Background(), common.Hash{1}, time.Millisecond, 3)
		require.NoError(t, err)
		assert.Same(t, want, r)
	})

	t.Run("gives up after max polls", func(t *testing.T) {
		b := &stubBackend{}
		c := newTestClient(t, b)

		_, err := c.WaitReceipt(context.Background(), common.Hash{1}, time.Millisecond, 3)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeServiceTimeout))
		assert.Equal(t, int32(3), b.calls.Load())
	})
}

func TestGasOracle_SuggestFees(t *testing.T) {
	chain := blockchaintest.New(42161)
	chain.BaseFee = big.NewInt(100)
	chain.TipCap = big.NewInt(5)

	cfg := DefaultGasOracleConfig()
	cfg.MinTipCap = big.NewInt(1)
	cfg.CacheTTL = time.Minute
	g, err := NewGasOracle(cfg, chain, logger.NewNop())
	require.NoError(t, err)
	defer g.Close()

	q, err := g.SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100", q.BaseFee.String())
	assert.Equal(t, "5", q.TipCap.String())
	assert.Equal(t, "205", q.FeeCap.String())

	chain.BaseFee = big.NewInt(1000)
	cached, err := g.SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "205", cached.FeeCap.String(), "quote is reused within the ttl")
}

func TestGasOracle_TipFloorAndClamp(t *testing.T) {
	chain := blockchaintest.New(1)
	chain.BaseFee = big.NewInt(1_000)
	chain.TipCap = big.NewInt(1)

	cfg := DefaultGasOracleConfig()
	cfg.MinTipCap = big.NewInt(50)
	cfg.MaxFeeCap = big.NewInt(1_500)
	g, err := NewGasOracle(cfg, chain, logger.NewNop())
	require.NoError(t, err)
	defer g.Close()

	q, err := g.SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "50", q.TipCap.String())
	assert.Equal(t, "1500", q.FeeCap.String())
}

func TestGasOracle_EstimateAddsMargin(t *testing.T) {
	chain := blockchaintest.New(1)
	chain.EstimateFn = func(ethereum.CallMsg) (uint64, error) { return 200_000, nil }

	g, err := NewGasOracle(DefaultGasOracleConfig(), chain, logger.NewNop())
	require.NoError(t, err)
	defer g.Close()

	gas, err := g.EstimateGas(context.Background(), ethereum.CallMsg{})
	require.NoError(t, err)
	assert.Equal(t, uint64(220_000), gas)

	chain.EstimateFn = func(ethereum.CallMsg) (uint64, error) { return 0, errors.New("execution reverted") }
	_, err = g.EstimateGas(context.Background(), ethereum.CallMsg{})
	assert.True(t, apperror.HasCode(err, apperror.CodeGasEstimationFailed))
}
