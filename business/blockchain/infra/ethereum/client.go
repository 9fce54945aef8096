// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/arbitrage-executor/business/blockchain/infra/ethereum"
)

// Backend is the subset of *ethclient.Client used per endpoint.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// ClientConfig holds configuration for the multi-endpoint client.
type ClientConfig struct {
	URLs           []string      // tried in order
	RequestTimeout time.Duration // per endpoint attempt
	Breaker        circuitbreaker.Config
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(urls []string) ClientConfig {
	return ClientConfig{
		URLs:           urls,
		RequestTimeout: 10 * time.Second,
		Breaker:        circuitbreaker.DefaultConfig("eth-rpc"),
	}
}

type clientMetrics struct {
	requests  metric.Int64Counter
	failovers metric.Int64Counter
	latency   metric.Float64Histogram
}

type endpoint struct {
	url     string
	backend Backend
	cb      *circuitbreaker.CircuitBreaker[any]

	requests    atomic.Uint64
	failures    atomic.Uint64
	mu          sync.Mutex
	lastErr     string
	lastSuccess time.Time
}

func (e *endpoint) status() domain.EndpointStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := domain.EndpointHealthy
	switch e.cb.State() {
	case gobreaker.StateOpen:
		state = domain.EndpointTripped
	case gobreaker.StateHalfOpen:
		state = domain.EndpointProbing
	}
	return domain.EndpointStatus{
		URL:         redactURL(e.url),
		State:       state,
		Requests:    e.requests.Load(),
		Failures:    e.failures.Load(),
		LastError:   e.lastErr,
		LastSuccess: e.lastSuccess,
	}
}

// Client implements app.ChainClient over several redundant endpoints with a
// quorum-of-1 policy: endpoints are tried in configured order and the first
// successful answer wins. Each endpoint has its own circuit breaker.
type Client struct {
	config    ClientConfig
	logger    logger.LoggerInterface
	endpoints []*endpoint

	chainID atomic.Pointer[big.Int]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// Dial connects every configured URL. HTTP endpoints dial lazily, so a
// dead endpoint here only fails on first use.
func Dial(ctx context.Context, cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if len(cfg.URLs) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no rpc endpoints configured"))
	}

	backends := make([]Backend, 0, len(cfg.URLs))
	for _, url := range cfg.URLs {
		ec, err := ethclient.DialContext(ctx, url)
		if err != nil {
			for _, b := range backends {
				b.Close()
			}
			return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("dial "+redactURL(url)))
		}
		backends = append(backends, ec)
	}
	return NewClient(cfg, backends, log)
}

// NewClient builds a Client over already constructed backends, one per URL.
func NewClient(cfg ClientConfig, backends []Backend, log logger.LoggerInterface) (*Client, error) {
	if len(backends) != len(cfg.URLs) {
		return nil, fmt.Errorf("have %d backends for %d urls", len(backends), len(cfg.URLs))
	}

	c := &Client{
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	for i, url := range cfg.URLs {
		bcfg := cfg.Breaker
		bcfg.Name = fmt.Sprintf("%s-%d", cfg.Breaker.Name, i)
		bcfg.IsSuccessful = func(err error) bool { return err == nil || isDefinitive(err) }
		bcfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "rpc endpoint breaker state change",
				"breaker", name, "endpoint", redactURL(url), "from", from.String(), "to", to.String())
		}
		c.endpoints = append(c.endpoints, &endpoint{
			url:     url,
			backend: backends[i],
			cb:      circuitbreaker.New[any](bcfg),
		})
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.requests, err = meter.Int64Counter(
		"eth_rpc_requests_total",
		metric.WithDescription("RPC attempts per endpoint and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	c.metrics.failovers, err = meter.Int64Counter(
		"eth_rpc_failovers_total",
		metric.WithDescription("Times a call moved on to the next endpoint"),
		metric.WithUnit("{failover}"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"eth_rpc_latency_ms",
		metric.WithDescription("Latency of successful RPC attempts"),
		metric.WithUnit("ms"),
	)
	return err
}

// isDefinitive reports errors that are a real answer from a healthy node:
// asking another endpoint would give the same result.
func isDefinitive(err error) bool {
	if errors.Is(err, ethereum.NotFound) {
		return true
	}
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"execution reverted", "nonce too low", "already known", "insufficient funds", "replacement transaction underpriced"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// do runs fn against each endpoint in order until one answers.
func do[T any](ctx context.Context, c *Client, method string, fn func(ctx context.Context, b Backend) (T, error)) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, "eth."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var lastErr error
	skipped := 0
	for i, ep := range c.endpoints {
		if ep.cb.Open() {
			skipped++
			continue
		}
		if i > 0 && lastErr != nil {
			c.metrics.failovers.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		}

		ep.requests.Add(1)
		start := time.Now()
		res, err := ep.cb.Execute(func() (any, error) {
			attemptCtx := ctx
			if c.config.RequestTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
				defer cancel()
			}
			return fn(attemptCtx, ep.backend)
		})

		attrs := metric.WithAttributes(
			attribute.String("method", method),
			attribute.Int("endpoint", i),
		)
		if err == nil || isDefinitive(err) {
			c.metrics.requests.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("outcome", "ok")))
			c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
			ep.mu.Lock()
			ep.lastSuccess = time.Now()
			ep.mu.Unlock()
			span.SetAttributes(attribute.Int("endpoint", i))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "definitive error")
				return zero, err
			}
			span.SetStatus(codes.Ok, "ok")
			v, _ := res.(T)
			return v, nil
		}

		c.metrics.requests.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("outcome", "error")))
		ep.failures.Add(1)
		ep.mu.Lock()
		ep.lastErr = err.Error()
		ep.mu.Unlock()
		c.logger.Warn(ctx, "rpc endpoint failed", "method", method, "endpoint", redactURL(ep.url), "error", err)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil && skipped == len(c.endpoints) {
		err := apperror.New(apperror.CodeNoHealthyEndpoint,
			apperror.WithContext(method+": all endpoint breakers open"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no healthy endpoint")
		return zero, err
	}

	err := apperror.New(apperror.CodeEthereumRPCError,
		apperror.WithCause(lastErr),
		apperror.WithContext(method))
	span.RecordError(err)
	span.SetStatus(codes.Error, "all endpoints failed")
	return zero, err
}

// NetworkID returns the chain id, cached after the first success.
func (c *Client) NetworkID(ctx context.Context) (*big.Int, error) {
	if id := c.chainID.Load(); id != nil {
		return new(big.Int).Set(id), nil
	}
	id, err := do(ctx, c, "chain_id", func(ctx context.Context, b Backend) (*big.Int, error) {
		return b.ChainID(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.chainID.Store(new(big.Int).Set(id))
	return id, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return do(ctx, c, "block_number", func(ctx context.Context, b Backend) (uint64, error) {
		return b.BlockNumber(ctx)
	})
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return do(ctx, c, "header_by_number", func(ctx context.Context, b Backend) (*types.Header, error) {
		return b.HeaderByNumber(ctx, number)
	})
}

// Call runs an eth_call at latest. Reverts come back as CodeEthereumRPCError.
func (c *Client) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	out, err := do(ctx, c, "call", func(ctx context.Context, b Backend) ([]byte, error) {
		return b.CallContract(ctx, msg, nil)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_call")
	}
	return out, nil
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return do(ctx, c, "estimate_gas", func(ctx context.Context, b Backend) (uint64, error) {
		return b.EstimateGas(ctx, msg)
	})
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return do(ctx, c, "pending_nonce", func(ctx context.Context, b Backend) (uint64, error) {
		return b.PendingNonceAt(ctx, account)
	})
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return do(ctx, c, "suggest_tip_cap", func(ctx context.Context, b Backend) (*big.Int, error) {
		return b.SuggestGasTipCap(ctx)
	})
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := do(ctx, c, "send_transaction", func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, b.SendTransaction(ctx, tx)
	})
	return err
}

// TransactionReceipt returns (nil, nil) while the transaction is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, err := do(ctx, c, "transaction_receipt", func(ctx context.Context, b Backend) (*types.Receipt, error) {
		return b.TransactionReceipt(ctx, hash)
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return r, err
}

// WaitReceipt polls for the receipt of hash. The first poll is immediate.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash, interval time.Duration, maxPolls int) (*types.Receipt, error) {
	ctx, span := c.tracer.Start(ctx, "eth.wait_receipt",
		trace.WithAttributes(attribute.String("tx", hash.Hex())))
	defer span.End()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for poll := 1; ; poll++ {
		r, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			c.logger.Debug(ctx, "receipt poll failed", "tx", hash.Hex(), "poll", poll, "error", err)
		}
		if r != nil {
			span.SetAttributes(attribute.Int("polls", poll))
			span.SetStatus(codes.Ok, "mined")
			return r, nil
		}
		if poll >= maxPolls {
			err := apperror.New(apperror.CodeServiceTimeout,
				apperror.WithContext(fmt.Sprintf("receipt for %s not found after %d polls", hash.Hex(), maxPolls)))
			span.RecordError(err)
			span.SetStatus(codes.Error, "timeout")
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Endpoints reports per-endpoint health in configured order.
func (c *Client) Endpoints() []domain.EndpointStatus {
	out := make([]domain.EndpointStatus, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		out = append(out, ep.status())
	}
	return out
}

// Close closes every backend.
func (c *Client) Close() {
	for _, ep := range c.endpoints {
		ep.backend.Close()
	}
}

// redactURL strips the path and query, where providers put API keys.
func redactURL(url string) string {
	scheme := ""
	rest := url
	if i := strings.Index(url, "://"); i >= 0 {
		scheme, rest = url[:i+3], url[i+3:]
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest
}
