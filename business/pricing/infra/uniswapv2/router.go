// Package uniswapv2 reads Uniswap-V2-style routers, factories and pairs
// (Uniswap, SushiSwap and their forks share the interface).
package uniswapv2

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchainApp "github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/pricing/app"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/business/pricing/infra/uniswapv2"
	meterName  = "github.com/fd1az/arbitrage-executor/business/pricing/infra/uniswapv2"
)

var _ app.Router = (*Router)(nil)

type routerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Router implements app.Router against a deployed V2 router.
type Router struct {
	name    string
	address common.Address
	client  blockchainApp.ChainClient
	abi     abi.ABI
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *routerMetrics
}

// NewRouter creates a Router. name labels metrics and spans ("uniswap", "sushiswap").
func NewRouter(name string, address common.Address, client blockchainApp.ChainClient, log logger.LoggerInterface) (*Router, error) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	r := &Router{
		name:    name,
		address: address,
		client:  client,
		abi:     parsed,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return r, nil
}

func (r *Router) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &routerMetrics{}

	r.metrics.quotesTotal, err = meter.Int64Counter(
		"v2_router_quotes_total",
		metric.WithDescription("Total getAmountsOut calls"),
	)
	if err != nil {
		return err
	}

	r.metrics.quoteLatency, err = meter.Float64Histogram(
		"v2_router_quote_latency_ms",
		metric.WithDescription("getAmountsOut latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.metrics.quoteErrors, err = meter.Int64Counter(
		"v2_router_quote_errors_total",
		metric.WithDescription("Total getAmountsOut errors"),
	)
	return err
}

// Address returns the router contract address.
func (r *Router) Address() common.Address {
	return r.address
}

// GetAmountsOut calls router.getAmountsOut(amountIn, path).
func (r *Router) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "v2.get_amounts_out",
		trace.WithAttributes(
			attribute.String("router", r.name),
			attribute.String("amount_in", amountIn.String()),
			attribute.Int("hops", len(path)-1),
		),
	)
	defer span.End()

	labels := metric.WithAttributes(attribute.String("router", r.name))
	start := time.Now()
	r.metrics.quotesTotal.Add(ctx, 1, labels)
	defer func() {
		r.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()), labels)
	}()

	fail := func(err error) ([]*big.Int, error) {
		r.metrics.quoteErrors.Add(ctx, 1, labels)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}

	callData, err := r.abi.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return fail(apperror.New(apperror.CodeQuoteFailed, apperror.WithCause(err),
			apperror.WithContext("encode getAmountsOut")))
	}

	out, err := r.client.Call(ctx, ethereum.CallMsg{To: &r.address, Data: callData})
	if err != nil {
		return fail(apperror.New(apperror.CodeQuoteFailed, apperror.WithCause(err),
			apperror.WithContext(r.name+" getAmountsOut")))
	}

	outputs, err := r.abi.Unpack("getAmountsOut", out)
	if err != nil {
		return fail(apperror.New(apperror.CodeQuoteFailed, apperror.WithCause(err),
			apperror.WithContext("decode getAmountsOut")))
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return fail(apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext(fmt.Sprintf("router returned %d amounts for %d-token path", len(amounts), len(path)))))
	}

	span.SetAttributes(attribute.String("amount_out", amounts[len(amounts)-1].String()))
	span.SetStatus(codes.Ok, "quote received")
	return amounts, nil
}
