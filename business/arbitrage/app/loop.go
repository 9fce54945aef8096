package app

import (
	"context"
	"fmt"
	"math/big"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	accDomain "github.com/fd1az/arbitrage-executor/business/accounting/domain"
	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	reportDomain "github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/apm"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/business/arbitrage/app"
	meterName  = "github.com/fd1az/arbitrage-executor/business/arbitrage/app"
)

// LoopConfig holds the per-tick parameters of the loop.
type LoopConfig struct {
	PollInterval time.Duration
	// TickTimeout bounds one tick. Zero means unbounded.
	TickTimeout time.Duration
	AmountIn    *big.Int
	MinProfit   *big.Int
	TokenIn     common.Address
	TokenOut    common.Address
	Policy      accDomain.WithdrawPolicy
}

type loopState int

const (
	stateIdle loopState = iota
	stateRunning
)

type loopMetrics struct {
	ticks    metric.Int64Counter
	duration metric.Float64Histogram
	busy     metric.Int64Counter
}

// Loop fires a tick every PollInterval. At most one tick runs at a time;
// a fire while a tick is running is a no-op.
type Loop struct {
	oracle    PriceOracle
	simulator Simulator
	executor  Executor
	ledger    Ledger
	telemetry Telemetry
	reporter  Reporter
	config    LoopConfig
	logger    logger.LoggerInterface

	mu    sync.Mutex
	state loopState
	wg    sync.WaitGroup

	faults   chan error
	ticks    atomic.Uint64
	snapshot atomic.Pointer[domain.Snapshot]

	// Tick counters. Only written inside the running tick.
	skipped  uint64
	executed uint64
	failed   uint64
	totalNet *big.Int

	now     func() time.Time
	tracer  apm.Tracer
	metrics *loopMetrics
}

// NewLoop creates a Loop. reporter may be nil.
func NewLoop(
	oracle PriceOracle,
	simulator Simulator,
	executor Executor,
	ledger Ledger,
	telemetry Telemetry,
	reporter Reporter,
	cfg LoopConfig,
	log logger.LoggerInterface,
) (*Loop, error) {
	if cfg.PollInterval <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("poll interval must be positive"))
	}
	if cfg.AmountIn == nil || cfg.AmountIn.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("trade size must be positive"))
	}
	if cfg.MinProfit == nil {
		cfg.MinProfit = new(big.Int)
	}

	l := &Loop{
		oracle:    oracle,
		simulator: simulator,
		executor:  executor,
		ledger:    ledger,
		telemetry: telemetry,
		reporter:  reporter,
		config:    cfg,
		logger:    log,
		faults:    make(chan error, 1),
		totalNet:  new(big.Int),
		now:       time.Now,
		tracer:    apm.NewTracer(tracerName),
	}
	if err := l.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	l.publish(false, nil)
	return l, nil
}

func (l *Loop) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	l.metrics = &loopMetrics{}

	l.metrics.ticks, err = meter.Int64Counter(
		"loop_ticks_total",
		metric.WithDescription("Ticks by outcome"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	l.metrics.duration, err = meter.Float64Histogram(
		"loop_tick_duration_ms",
		metric.WithDescription("Tick wall time"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000),
	)
	if err != nil {
		return err
	}

	l.metrics.busy, err = meter.Int64Counter(
		"loop_fires_skipped_total",
		metric.WithDescription("Fires ignored because a tick was running"),
		metric.WithUnit("{fire}"),
	)
	return err
}

// Faults delivers panics recovered from ticks as CodeUnhandledFault errors.
func (l *Loop) Faults() <-chan error {
	return l.faults
}

// Snapshot returns the view published by the last tick.
func (l *Loop) Snapshot() domain.Snapshot {
	return *l.snapshot.Load()
}

// Running reports whether a tick is in flight.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateRunning
}

func (l *Loop) acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateRunning {
		return false
	}
	l.state = stateRunning
	return true
}

func (l *Loop) release() {
	l.mu.Lock()
	l.state = stateIdle
	l.mu.Unlock()
}

// Fire starts a tick in its own goroutine when the loop is idle and returns
// true. When a tick is already running it does nothing and returns false.
func (l *Loop) Fire(ctx context.Context) bool {
	if !l.acquire() {
		l.metrics.busy.Add(ctx, 1)
		return false
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if _, fault := l.guarded(ctx); fault != nil {
			select {
			case l.faults <- fault:
			default:
				l.logger.Error(ctx, "fault dropped, one already pending", "error", fault)
			}
		}
	}()
	return true
}

// RunOnce runs a single tick on the calling goroutine. It fails with
// CodeInvalidState when a tick is already running.
func (l *Loop) RunOnce(ctx context.Context) (domain.TickReport, error) {
	if !l.acquire() {
		return domain.TickReport{}, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("a tick is already running"))
	}
	return l.guarded(ctx)
}

// Wait blocks until the running tick, if any, has returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Start fires immediately and then on every PollInterval until ctx is done
// or a tick faults. A fault is reported through Telemetry.Crash and returned.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info(ctx, "loop started",
		"interval", l.config.PollInterval.String(),
		"policy", string(l.config.Policy),
	)

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	l.Fire(ctx)
	for {
		select {
		case <-ctx.Done():
			l.Wait()
			l.logger.Info(ctx, "loop stopped", "reason", ctx.Err())
			return nil
		case fault := <-l.faults:
			l.logger.Error(ctx, "loop fault", "error", fault)
			l.telemetry.Crash(ctx, fault)
			return fault
		case <-ticker.C:
			if !l.Fire(ctx) {
				l.logger.Debug(ctx, "tick still running, fire ignored")
			}
		}
	}
}

// guarded runs one tick with the guard already held. The guard is released
// on every path and a panic comes back as the fault return.
func (l *Loop) guarded(ctx context.Context) (report domain.TickReport, fault error) {
	defer l.release()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault = apperror.New(apperror.CodeUnhandledFault,
			apperror.WithContext(fmt.Sprintf("panic in tick %d: %v", report.Tick, r)),
		)
		l.logger.Error(ctx, "tick panicked", "tick", report.Tick, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		report.Outcome = domain.OutcomeFailed
		report.Reason = "panic"
		report.Err = fault
		report.Duration = l.now().Sub(report.StartedAt)
		l.finish(ctx, report)
	}()

	report.Tick = l.ticks.Add(1)
	report.ID = uuid.NewString()
	report.StartedAt = l.now()
	l.publish(true, nil)

	tickCtx := ctx
	if l.config.TickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, l.config.TickTimeout)
		defer cancel()
	}

	l.tick(tickCtx, &report)
	report.Duration = l.now().Sub(report.StartedAt)
	l.finish(ctx, report)
	return report, nil
}

func (l *Loop) tick(ctx context.Context, report *domain.TickReport) {
	ctx, span := l.tracer.Start(ctx, "Loop.tick",
		trace.WithAttributes(
			attribute.Int64("tick", int64(report.Tick)),
			attribute.String("tick.id", report.ID),
		),
	)
	defer span.End()

	cfg := l.config
	report.Offchain = l.oracle.Estimate(ctx, cfg.AmountIn, cfg.TokenIn, cfg.TokenOut)
	report.Onchain = l.simulator.Simulate(ctx, cfg.AmountIn)

	l.telemetry.Debug(ctx, reportDomain.DebugRecord{
		Tick:      report.Tick,
		Timestamp: report.StartedAt,
		Offchain:  report.Offchain.EstimatedProfit,
		Onchain:   report.Onchain.EstimatedProfit,
		OnchainOK: report.Onchain.OK,
	})

	if !report.Onchain.Passes(cfg.MinProfit) {
		report.Outcome = domain.OutcomeSkipped
		if !report.Onchain.OK {
			report.Reason = "simulation failed"
			l.logger.Warn(ctx, "simulation failed, tick skipped",
				"tick", report.Tick, "error", report.Onchain.Err)
		} else {
			report.Reason = "below min profit"
			l.logger.Debug(ctx, "below min profit, tick skipped",
				"tick", report.Tick,
				"estimate", report.Onchain.EstimatedProfit.String(),
				"min_profit", cfg.MinProfit.String(),
			)
		}
		span.SetAttributes(attribute.String("outcome", string(report.Outcome)))
		return
	}

	intent := domain.NewTradeIntent(cfg.AmountIn, cfg.MinProfit, cfg.TokenIn, cfg.TokenOut, cfg.Policy.BundleWithTrade())
	receipt, err := l.executor.Execute(ctx, intent)
	if err != nil {
		l.fail(ctx, span, report, "execution", err)
		return
	}

	before := l.ledger.State().CumulativeNetProfit
	entry, err := l.ledger.RecordEntry(report.Onchain, receipt)
	if err != nil {
		l.fail(ctx, span, report, "accounting", err)
		return
	}

	trade := domain.TradeRecord{
		Index:       entry.Index,
		Timestamp:   l.now(),
		AmountIn:    new(big.Int).Set(cfg.AmountIn),
		Profit:      entry.Profit,
		GasUsed:     receipt.GasUsed,
		GasCost:     entry.GasCost,
		NetProfit:   entry.NetProfit,
		TxHashes:    receipt.TxHashes,
		BlockNumber: receipt.BlockNumber,
		Withdrawn:   intent.Withdraw,
	}
	report.Outcome = domain.OutcomeExecuted
	report.Trade = &trade
	l.totalNet.Add(l.totalNet, entry.NetProfit)

	l.logger.Info(ctx, "trade recorded",
		"tick", report.Tick,
		"trade", entry.Index,
		"net_profit", entry.NetProfit.String(),
		"gas_used", receipt.GasUsed,
		"block", receipt.BlockNumber,
	)
	l.telemetry.Trade(ctx, trade)

	if entry.DidWithdraw {
		crossed := new(big.Int).Add(before, entry.NetProfit)
		l.onThreshold(ctx, crossed, intent.Withdraw)
	}
	span.SetAttributes(attribute.String("outcome", string(report.Outcome)))
}

// onThreshold applies the withdraw policy after the ledger reset.
func (l *Loop) onThreshold(ctx context.Context, cumulative *big.Int, bundled bool) {
	executed := bundled
	if !bundled && l.config.Policy.WithdrawOnCrossing() {
		receipt, err := l.executor.Withdraw(ctx)
		if err != nil {
			l.logger.Error(ctx, "withdraw after threshold failed", apperror.LogArgs(err)...)
		} else {
			executed = true
			l.logger.Info(ctx, "withdraw after threshold included",
				"block", receipt.BlockNumber,
				"gas_cost", receipt.GasCost().String(),
			)
		}
	}
	l.logger.Info(ctx, "withdraw threshold crossed",
		"cumulative", cumulative.String(),
		"executed", executed,
	)
	l.telemetry.ThresholdCrossed(ctx, cumulative, executed)
}

func (l *Loop) fail(ctx context.Context, span apm.Span, report *domain.TickReport, step string, err error) {
	report.Outcome = domain.OutcomeFailed
	report.Reason = fmt.Sprintf("%s: %s", step, apperror.GetCode(err))
	report.Err = err

	span.NoticeError(err)
	span.SetAttributes(attribute.String("outcome", string(report.Outcome)))

	args := append([]any{"tick", report.Tick, "step", step}, apperror.LogArgs(err)...)
	l.logger.Error(ctx, "tick failed", args...)
}

// finish updates counters, publishes the snapshot and notifies the reporter.
func (l *Loop) finish(ctx context.Context, report domain.TickReport) {
	switch report.Outcome {
	case domain.OutcomeSkipped:
		l.skipped++
	case domain.OutcomeExecuted:
		l.executed++
	case domain.OutcomeFailed:
		l.failed++
	}

	l.metrics.ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(report.Outcome))))
	l.metrics.duration.Record(ctx, float64(report.Duration.Milliseconds()))

	snap := l.publish(false, &report)
	if l.reporter != nil {
		l.reporter.Report(report, snap)
	}
}

func (l *Loop) publish(running bool, last *domain.TickReport) domain.Snapshot {
	state := l.ledger.State()
	snap := domain.Snapshot{
		Running:             running,
		Ticks:               l.ticks.Load(),
		Skipped:             l.skipped,
		Executed:            l.executed,
		Failed:              l.failed,
		TradeCount:          state.TradeCount,
		CumulativeNetProfit: state.CumulativeNetProfit,
		TotalNetProfit:      new(big.Int).Set(l.totalNet),
		Withdrawals:         state.Withdrawals,
		UpdatedAt:           l.now(),
	}
	if last != nil {
		r := *last
		snap.LastTick = &r
	} else if prev := l.snapshot.Load(); prev != nil {
		snap.LastTick = prev.LastTick
	}
	l.snapshot.Store(&snap)
	return snap
}
