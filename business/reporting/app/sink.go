package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/ratelimit"
)

const meterName = "github.com/fd1az/arbitrage-executor/business/reporting/app"

// crashNotifyTimeout bounds the last alert before exit.
const crashNotifyTimeout = 10 * time.Second

// SinkConfig controls rendering and alert throttling.
type SinkConfig struct {
	Decimals          uint8
	Symbol            string
	AlertsPerMinute   int
	NotifyTradeAlerts bool
	NotifyTimeout     time.Duration
}

// Sink is the telemetry boundary of the loop. Nothing it does can fail a
// tick: journal and notifier errors are logged and counted.
type Sink struct {
	journal  Journal
	notifier Notifier
	limiter  *ratelimit.Limiter
	config   SinkConfig
	logger   logger.LoggerInterface

	writes metric.Int64Counter
	alerts metric.Int64Counter
}

// NewSink creates a Sink.
func NewSink(journal Journal, notifier Notifier, cfg SinkConfig, log logger.LoggerInterface) (*Sink, error) {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 15 * time.Second
	}
	meter := otel.Meter(meterName)

	writes, err := meter.Int64Counter("journal_writes_total",
		metric.WithDescription("Journal writes by kind and outcome"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	alerts, err := meter.Int64Counter("alerts_total",
		metric.WithDescription("Operator alerts by outcome"),
		metric.WithUnit("{alert}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Sink{
		journal:  journal,
		notifier: notifier,
		limiter:  ratelimit.New(cfg.AlertsPerMinute),
		config:   cfg,
		logger:   log,
		writes:   writes,
		alerts:   alerts,
	}, nil
}

// Debug journals the advisory and authoritative estimates of a tick.
func (s *Sink) Debug(ctx context.Context, r domain.DebugRecord) {
	err := s.journal.WriteDebug(ctx, r)
	s.countWrite(ctx, "debug", err)
	if err != nil {
		s.logger.Warn(ctx, "debug record not written", "tick", r.Tick, "error", err)
	}
}

// Trade journals an accounted trade and alerts about it.
func (s *Sink) Trade(ctx context.Context, t arbDomain.TradeRecord) {
	err := s.journal.WriteTrade(ctx, t)
	s.countWrite(ctx, "trade", err)
	if err != nil {
		s.logger.Error(ctx, "trade record not written", "trade", t.Index, "error", err)
	}
	if s.config.NotifyTradeAlerts {
		s.Alert(ctx, domain.TradeAlert(t, s.config.Decimals, s.config.Symbol))
	}
}

// ThresholdCrossed alerts that cumulative profit reached the threshold.
func (s *Sink) ThresholdCrossed(ctx context.Context, cumulative *big.Int, executed bool) {
	s.Alert(ctx, domain.WithdrawalAlert(cumulative, s.config.Decimals, s.config.Symbol, executed))
}

// Alert sends a throttled notification.
func (s *Sink) Alert(ctx context.Context, a domain.Alert) {
	if !s.limiter.Allow() {
		s.alerts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "throttled")))
		s.logger.Warn(ctx, "alert throttled", "subject", a.Subject)
		return
	}
	s.send(ctx, a, s.config.NotifyTimeout)
}

// Crash sends the crash alert, bypassing the throttle. It blocks until the
// notifier returns or the crash timeout passes.
func (s *Sink) Crash(ctx context.Context, err error) {
	s.send(context.WithoutCancel(ctx), domain.CrashAlert(err), crashNotifyTimeout)
}

// Close closes the journal.
func (s *Sink) Close() error {
	return s.journal.Close()
}

func (s *Sink) send(ctx context.Context, a domain.Alert, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := "sent"
	if err := s.notifier.Notify(ctx, a); err != nil {
		outcome = "failed"
		s.logger.Warn(ctx, "alert not delivered", "notifier", s.notifier.Name(), "subject", a.Subject, "error", err)
	}
	s.alerts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("notifier", s.notifier.Name()),
		attribute.String("outcome", outcome),
	))
}

func (s *Sink) countWrite(ctx context.Context, kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}
