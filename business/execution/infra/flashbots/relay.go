// Package flashbots submits bundles to a Flashbots-compatible private relay.
package flashbots

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-executor/business/execution/app"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-executor/internal/httpclient"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/business/execution/infra/flashbots"
	meterName  = "github.com/fd1az/arbitrage-executor/business/execution/infra/flashbots"

	// SignatureHeader carries address:signature over the request body.
	SignatureHeader = "X-Flashbots-Signature"

	methodCallBundle = "eth_callBundle"
	methodSendBundle = "eth_sendBundle"
)

// Config holds relay settings.
type Config struct {
	URL string
	// Simulate runs eth_callBundle against the latest state before sending.
	Simulate          bool
	RequestTimeout    time.Duration
	RequestsPerMinute int
	Breaker           circuitbreaker.Config
}

// DefaultConfig returns settings for the public Flashbots relay.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		Simulate:          true,
		RequestTimeout:    12 * time.Second,
		RequestsPerMinute: 60,
		Breaker:           circuitbreaker.DefaultConfig("flashbots-relay"),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type sendBundleResult struct {
	BundleHash string `json:"bundleHash"`
}

type callBundleTx struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error"`
	Revert string `json:"revert"`
}

type callBundleResult struct {
	BundleHash string         `json:"bundleHash"`
	Results    []callBundleTx `json:"results"`
}

type relayMetrics struct {
	requests metric.Int64Counter
	rejected metric.Int64Counter
	latency  metric.Float64Histogram
}

// Relay implements app.Submitter over JSON-RPC.
type Relay struct {
	config   Config
	client   *httpclient.Client
	authKey  *ecdsa.PrivateKey
	authAddr common.Address
	breaker  *circuitbreaker.CircuitBreaker[*rpcResponse]
	limiter  *ratelimit.Limiter
	logger   logger.LoggerInterface
	ids      atomic.Uint64

	tracer  trace.Tracer
	metrics *relayMetrics
}

var _ app.Submitter = (*Relay)(nil)

// NewRelay creates a relay client. authKey only identifies the searcher to
// the relay; it never signs transactions and holds no funds.
func NewRelay(cfg Config, authKey *ecdsa.PrivateKey, log logger.LoggerInterface) (*Relay, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("relay url is empty"))
	}
	if authKey == nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("relay auth key is nil"))
	}

	client, err := httpclient.New("flashbots",
		httpclient.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	r := &Relay{
		config:   cfg,
		client:   client,
		authKey:  authKey,
		authAddr: crypto.PubkeyToAddress(authKey.PublicKey),
		limiter:  ratelimit.New(cfg.RequestsPerMinute),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	breakerCfg := cfg.Breaker
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "relay circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	r.breaker = circuitbreaker.New[*rpcResponse](breakerCfg)

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return r, nil
}

func (r *Relay) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &relayMetrics{}

	r.metrics.requests, err = meter.Int64Counter(
		"relay_requests_total",
		metric.WithDescription("Relay JSON-RPC requests by method and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	r.metrics.rejected, err = meter.Int64Counter(
		"relay_bundles_rejected_total",
		metric.WithDescription("Bundles rejected by relay simulation"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"relay_request_latency_ms",
		metric.WithDescription("Relay request latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// Name identifies the submitter in logs and metrics.
func (r *Relay) Name() string {
	return "flashbots"
}

// AuthAddress returns the searcher identity the relay sees.
func (r *Relay) AuthAddress() common.Address {
	return r.authAddr
}

// Submit optionally simulates the bundle, then sends it for targetBlock.
// A simulated revert is CodeBundleRejected; anything else that keeps the
// relay from accepting the bundle is CodeRelaySubmissionFailed.
func (r *Relay) Submit(ctx context.Context, txs []*types.Transaction, targetBlock uint64, replacementID string) (app.SubmitResult, error) {
	ctx, span := r.tracer.Start(ctx, "flashbots.submit",
		trace.WithAttributes(
			attribute.Int("txs", len(txs)),
			attribute.Int64("target_block", int64(targetBlock)),
		),
	)
	defer span.End()

	raw, err := encodeTxs(txs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return app.SubmitResult{}, apperror.New(apperror.CodeRelaySubmissionFailed,
			apperror.WithCause(err), apperror.WithContext("encode transactions"))
	}
	block := hexutil.EncodeUint64(targetBlock)

	if r.config.Simulate {
		if err := r.callBundle(ctx, raw, block); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "simulation failed")
			return app.SubmitResult{}, err
		}
	}

	params := map[string]any{
		"txs":         raw,
		"blockNumber": block,
	}
	if replacementID != "" {
		params["replacementUuid"] = replacementID
	}

	resp, err := r.call(ctx, methodSendBundle, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return app.SubmitResult{}, err
	}
	if resp.Error != nil {
		err := apperror.New(apperror.CodeRelaySubmissionFailed,
			apperror.WithCause(resp.Error), apperror.WithContext(methodSendBundle))
		span.RecordError(err)
		span.SetStatus(codes.Error, "relay error")
		return app.SubmitResult{}, err
	}

	var result sendBundleResult
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			r.logger.Warn(ctx, "unexpected sendBundle result", "result", string(resp.Result), "error", err)
		}
	}

	span.SetAttributes(attribute.String("bundle_hash", result.BundleHash))
	span.SetStatus(codes.Ok, "sent")
	return app.SubmitResult{BundleHash: result.BundleHash, TargetBound: true}, nil
}

// callBundle dry-runs the bundle on top of the latest state.
func (r *Relay) callBundle(ctx context.Context, raw []string, block string) error {
	resp, err := r.call(ctx, methodCallBundle, map[string]any{
		"txs":              raw,
		"blockNumber":      block,
		"stateBlockNumber": "latest",
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		r.metrics.rejected.Add(ctx, 1)
		return apperror.New(apperror.CodeBundleRejected,
			apperror.WithCause(resp.Error), apperror.WithContext(methodCallBundle))
	}

	var result callBundleResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return apperror.New(apperror.CodeRelaySubmissionFailed,
			apperror.WithCause(err), apperror.WithContext("decode callBundle result"))
	}
	for i, tx := range result.Results {
		reason := tx.Error
		if reason == "" {
			reason = tx.Revert
		}
		if reason != "" {
			r.metrics.rejected.Add(ctx, 1)
			return apperror.New(apperror.CodeBundleRejected,
				apperror.WithContext(fmt.Sprintf("tx %d (%s) fails in simulation: %s", i, tx.TxHash, reason)))
		}
	}
	return nil
}

// call posts one signed JSON-RPC request. Transport failures and non-2xx
// statuses count against the breaker; JSON-RPC errors are returned in the
// response for the caller to classify.
func (r *Relay) call(ctx context.Context, method string, params any) (*rpcResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err), apperror.WithContext(method))
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      r.ids.Add(1),
		Method:  method,
		Params:  []any{params},
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeRelaySubmissionFailed, apperror.WithCause(err), apperror.WithContext(method))
	}
	signature, err := Sign(body, r.authKey)
	if err != nil {
		return nil, apperror.New(apperror.CodeRelaySubmissionFailed,
			apperror.WithCause(apperror.New(apperror.CodeSigningFailed, apperror.WithCause(err))),
			apperror.WithContext(method))
	}

	start := time.Now()
	resp, err := r.breaker.Execute(func() (*rpcResponse, error) {
		var out rpcResponse
		res, err := r.client.Post(ctx, httpclient.Call{
			URL:     r.config.URL,
			Op:      method,
			Body:    body,
			Headers: map[string]string{SignatureHeader: signature},
			Out:     &out,
		})
		if err != nil {
			return nil, err
		}
		if !res.Decoded {
			return nil, fmt.Errorf("undecodable relay response: %s", truncate(string(res.Body), 200))
		}
		return &out, nil
	})
	elapsed := float64(time.Since(start).Milliseconds())

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "transport_error"
	case resp.Error != nil:
		outcome = "rpc_error"
	}
	attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("outcome", outcome))
	r.metrics.requests.Add(ctx, 1, attrs)
	r.metrics.latency.Record(ctx, elapsed, attrs)

	if err != nil {
		r.logger.Warn(ctx, "relay request failed", "method", method, "error", err)
		return nil, apperror.New(apperror.CodeRelaySubmissionFailed, apperror.WithCause(err), apperror.WithContext(method))
	}
	return resp, nil
}

// Sign returns the X-Flashbots-Signature value for body: the signer address
// and an EIP-191 signature over the hex-encoded keccak hash of body.
func Sign(body []byte, key *ecdsa.PrivateKey) (string, error) {
	hash := crypto.Keccak256Hash(body).Hex()
	sig, err := crypto.Sign(accounts.TextHash([]byte(hash)), key)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex() + ":" + hexutil.Encode(sig), nil
}

func encodeTxs(txs []*types.Transaction) ([]string, error) {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		b, err := tx.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, hexutil.Encode(b))
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
