// Package strategy adapts the deployed arbitrage contract: calldata for the
// bundle builder and the on-chain dry run used as the authoritative gate.
package strategy

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

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/execution/app"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/business/execution/infra/strategy"
	meterName  = "github.com/fd1az/arbitrage-executor/business/execution/infra/strategy"
)

var (
	_ app.Simulator       = (*Contract)(nil)
	_ app.StrategyEncoder = (*Contract)(nil)
)

// Contract is the deployed arbitrage strategy contract.
type Contract struct {
	address common.Address
	caller  common.Address
	client  blockchainApp.ChainClient
	abi     abi.ABI
	logger  logger.LoggerInterface

	tracer      trace.Tracer
	simulations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewContract binds the contract at address. Simulations are sent from
// caller, since owner-only contracts revert for anyone else.
func NewContract(address, caller common.Address, client blockchainApp.ChainClient, log logger.LoggerInterface) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse strategy ABI: %w", err)
	}

	meter := otel.Meter(meterName)
	simulations, err := meter.Int64Counter(
		"strategy_simulations_total",
		metric.WithDescription("simulateArb calls by outcome"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"strategy_simulation_latency_ms",
		metric.WithDescription("simulateArb latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Contract{
		address:     address,
		caller:      caller,
		client:      client,
		abi:         parsed,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
		simulations: simulations,
		latency:     latency,
	}, nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// EncodeExecuteArb packs executeArb(amountIn, minProfit).
func (c *Contract) EncodeExecuteArb(amountIn, minProfit *big.Int) ([]byte, error) {
	return c.abi.Pack("executeArb", amountIn, minProfit)
}

// EncodeWithdrawTokens packs withdrawTokens(token).
func (c *Contract) EncodeWithdrawTokens(token common.Address) ([]byte, error) {
	return c.abi.Pack("withdrawTokens", token)
}

// Simulate calls simulateArb(amountIn). Transport errors, reverts and bad
// output all become a not-OK result with zero profit.
func (c *Contract) Simulate(ctx context.Context, amountIn *big.Int) arbDomain.SimulationResult {
	ctx, span := c.tracer.Start(ctx, "strategy.simulate",
		trace.WithAttributes(attribute.String("amount_in", amountIn.String())),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		c.latency.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	fail := func(err error) arbDomain.SimulationResult {
		c.simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulation failed")
		c.logger.Warn(ctx, "on-chain simulation failed", "error", err)
		return arbDomain.FailedSimulation(arbDomain.SourceOnchain, err)
	}

	data, err := c.abi.Pack("simulateArb", amountIn)
	if err != nil {
		return fail(apperror.New(apperror.CodeSimulationFailed, apperror.WithCause(err),
			apperror.WithContext("encode simulateArb")))
	}

	out, err := c.client.Call(ctx, ethereum.CallMsg{From: c.caller, To: &c.address, Data: data})
	if err != nil {
		return fail(apperror.New(apperror.CodeSimulationFailed, apperror.WithCause(err),
			apperror.WithContext("simulateArb call")))
	}

	values, err := c.abi.Unpack("simulateArb", out)
	if err != nil || len(values) != 1 {
		return fail(apperror.New(apperror.CodeSimulationFailed, apperror.WithCause(err),
			apperror.WithContext("decode simulateArb")))
	}
	profit, ok := values[0].(*big.Int)
	if !ok {
		return fail(apperror.New(apperror.CodeSimulationFailed,
			apperror.WithContext(fmt.Sprintf("simulateArb returned %T", values[0]))))
	}

	c.simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	span.SetAttributes(attribute.String("profit", profit.String()))
	span.SetStatus(codes.Ok, "simulated")
	return arbDomain.SimulationResult{
		EstimatedProfit: new(big.Int).Set(profit),
		Source:          arbDomain.SourceOnchain,
		OK:              true,
	}
}
