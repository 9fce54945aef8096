package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/cache"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long to reuse a fee quote
	MaxFeeCap   *big.Int      // safety clamp on the fee cap
	MinTipCap   *big.Int      // floor on the priority fee; also used when the node has no suggestion
	SafetyRatio uint64        // percent added to gas estimates
}

// DefaultGasOracleConfig returns sensible defaults for an L2.
func DefaultGasOracleConfig() GasOracleConfig {
	maxFee := new(big.Int)
	maxFee.SetString("500000000000", 10) // 500 gwei

	return GasOracleConfig{
		CacheTTL:    2 * time.Second,
		MaxFeeCap:   maxFee,
		MinTipCap:   big.NewInt(10_000_000), // 0.01 gwei
		SafetyRatio: 10,
	}
}

type gasOracleMetrics struct {
	feeFetches  metric.Int64Counter
	feeCapGwei  metric.Float64Gauge
	estimateGas metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// GasOracle implements app.GasOracle on top of a ChainClient.
type GasOracle struct {
	config GasOracleConfig
	client app.ChainClient
	logger logger.LoggerInterface

	quotes *cache.Cache[string, domain.FeeQuote]
	now    func() time.Time

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, client app.ChainClient, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config: cfg,
		client: client,
		logger: log,
		quotes: cache.New[string, domain.FeeQuote](time.Minute),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.feeFetches, err = meter.Int64Counter(
		"gas_fee_fetches_total",
		metric.WithDescription("Total fee quote fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.feeCapGwei, err = meter.Float64Gauge(
		"gas_fee_cap_gwei",
		metric.WithDescription("Current max fee per gas in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Fee quote cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Fee quote cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// SuggestFees returns base fee, tip and fee cap for the next block.
func (g *GasOracle) SuggestFees(ctx context.Context) (domain.FeeQuote, error) {
	ctx, span := g.tracer.Start(ctx, "gas.suggest_fees")
	defer span.End()

	if q, found := g.quotes.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return q, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.feeFetches.Add(ctx, 1)

	head, err := g.client.HeaderByNumber(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "head fetch failed")
		return domain.FeeQuote{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "fetch head for fees")
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}

	tip, err := g.client.SuggestGasTipCap(ctx)
	if err != nil {
		if g.config.MinTipCap == nil {
			span.RecordError(err)
			return domain.FeeQuote{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "suggest tip cap")
		}
		g.logger.Warn(ctx, "tip cap suggestion failed, using floor", "error", err)
		tip = new(big.Int)
	}
	if g.config.MinTipCap != nil && tip.Cmp(g.config.MinTipCap) < 0 {
		tip = new(big.Int).Set(g.config.MinTipCap)
	}

	q := domain.NewFeeQuote(baseFee, tip, g.now())

	if g.config.MaxFeeCap != nil && q.FeeCap.Cmp(g.config.MaxFeeCap) > 0 {
		span.AddEvent("fee_cap_clamped",
			trace.WithAttributes(attribute.String("wei", q.FeeCap.String())))
		g.logger.Warn(ctx, "fee cap exceeds max, clamping", "wei", q.FeeCap.String())
		q.FeeCap = new(big.Int).Set(g.config.MaxFeeCap)
		if q.TipCap.Cmp(q.FeeCap) > 0 {
			q.TipCap = new(big.Int).Set(q.FeeCap)
		}
	}

	g.quotes.Set(ctx, "current", q, g.config.CacheTTL)

	feeCapGwei, _ := domain.Gwei(q.FeeCap).Float64()
	g.metrics.feeCapGwei.Record(ctx, feeCapGwei)

	span.SetAttributes(
		attribute.String("base_fee", q.BaseFee.String()),
		attribute.String("tip_cap", q.TipCap.String()),
		attribute.Float64("fee_cap_gwei", feeCapGwei),
	)
	span.SetStatus(codes.Ok, "fetched")
	return q, nil
}

// EstimateGas estimates the gas needed for msg plus the safety margin.
func (g *GasOracle) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	to := ""
	if msg.To != nil {
		to = msg.To.Hex()
	}
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to),
			attribute.Int("data_len", len(msg.Data)),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	gas, err := g.client.EstimateGas(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to estimate gas for %s", to)))
	}

	gas += gas * g.config.SafetyRatio / 100

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")
	return gas, nil
}

// Close releases the quote cache.
func (g *GasOracle) Close() error {
	g.quotes.Close()
	return nil
}
