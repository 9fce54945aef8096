// Package main is the entry point for the arbitrage executor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/arbitrage-executor/business/accounting"
	accountingDI "github.com/fd1az/arbitrage-executor/business/accounting/di"
	"github.com/fd1az/arbitrage-executor/business/arbitrage"
	arbitrageDI "github.com/fd1az/arbitrage-executor/business/arbitrage/di"
	"github.com/fd1az/arbitrage-executor/business/blockchain"
	blockchainDI "github.com/fd1az/arbitrage-executor/business/blockchain/di"
	blockchainDomain "github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/business/execution"
	executionDI "github.com/fd1az/arbitrage-executor/business/execution/di"
	"github.com/fd1az/arbitrage-executor/business/pricing"
	"github.com/fd1az/arbitrage-executor/business/reporting"
	"github.com/fd1az/arbitrage-executor/internal/apm"
	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/health"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/metrics"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
	"github.com/fd1az/arbitrage-executor/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type options struct {
	configPath string
	tui        bool
	once       bool
	withdraw   bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	once := flag.Bool("once", false, "Run a single tick and exit")
	withdraw := flag.Bool("withdraw", false, "Submit a standalone withdraw bundle and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage-executor %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	opts := options{
		configPath: *configPath,
		// One-shot commands print to the terminal.
		tui:      !*cliMode && !*once && !*withdraw,
		once:     *once,
		withdraw: *withdraw,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !opts.tui {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = opts.tui

	log := newLogger(cfg, opts.tui)
	if !opts.tui {
		log.Info(ctx, "starting arbitrage executor",
			"version", version,
			"environment", cfg.App.Environment,
			"network", cfg.Network.Name,
			"chain_id", cfg.Network.ChainID,
		)
	}

	stopTelemetry := setupTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	mono := monolith.New(cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mono.Close(closeCtx)
	}()

	// Dependency order: every module resolves tokens from those before it.
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&execution.Module{},
		&accounting.Module{},
		&reporting.Module{},
		&arbitrage.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if cfg.Health.Enabled {
		srv := newHealthServer(cfg, mono)
		if err := srv.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
			defer srv.Stop(context.Background())
		}
	}

	switch {
	case opts.withdraw:
		return runWithdraw(ctx, mono, log)
	case opts.once:
		return runOnce(ctx, mono, log)
	case opts.tui:
		return runTUI(ctx, cfg, mono)
	default:
		return runCLI(ctx, mono, log)
	}
}

func newLogger(cfg *config.Config, tuiMode bool) *logger.Logger {
	level := logger.ParseLevel(cfg.App.LogLevel)
	if !tuiMode {
		return logger.New(os.Stderr, level, cfg.App.Name, nil)
	}

	// Log output would corrupt the alt screen; errors still reach the
	// dashboard through the hook.
	events := &logger.Events{
		Error: func(_ context.Context, r logger.Record) {
			ui.Send(ui.LogMsg{Level: "error", Message: r.Message})
		},
		Warn: func(_ context.Context, r logger.Record) {
			ui.Send(ui.LogMsg{Level: "warn", Message: r.Message})
		},
	}
	return logger.New(io.Discard, level, cfg.App.Name, events)
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	provider := apm.Provider(cfg.Telemetry.TraceProvider)
	if provider == "" {
		provider = apm.ZipkinProvider
	}
	traceProvider := apm.NewTraceProvider(
		apm.WithServiceName(cfg.Telemetry.ServiceName),
		apm.WithProvider(provider, cfg.Telemetry.OTLPEndpoint, log),
	)
	log.Info(ctx, "tracing initialized", "provider", provider, "endpoint", cfg.Telemetry.OTLPEndpoint)

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if provider == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(cfg.Telemetry.OTLPEndpoint, nil, true),
		))
	}
	meterProvider, err := metrics.NewMetricProvider(metricOpts...)
	if err != nil {
		log.Error(ctx, "failed to initialize metrics", "error", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.NewPrometheusServer(metrics.WithPort(strconv.Itoa(port)))
	go func() {
		if err := promServer.ListenAndServe(); err != nil {
			log.Error(ctx, "prometheus server failed", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Shutdown(shutdownCtx)
		if meterProvider != nil {
			_ = meterProvider.Shutdown(shutdownCtx)
		}
		_ = traceProvider.Stop()
	}
}

func newHealthServer(cfg *config.Config, mono monolith.Monolith) *health.Server {
	srv := health.NewServer(cfg.Health.Port, version)
	srv.RegisterCheck("rpc", func(ctx context.Context) (bool, string) {
		svc := blockchainDI.GetBlockchainService(mono.Services())
		if svc.Healthy() {
			return true, ""
		}
		return false, "no healthy rpc endpoint"
	})
	srv.RegisterCheck("loop", func(ctx context.Context) (bool, string) {
		if arbitrageDI.GetLoop(mono.Services()).Running() {
			return true, "tick in flight"
		}
		return true, "idle"
	})
	srv.SetStatusFunc(func() any {
		return newStatusView(
			arbitrageDI.GetLoop(mono.Services()).Snapshot(),
			cfg.Strategy.TokenInDecimals,
			cfg.Strategy.TokenInSymbol,
		)
	})
	return srv
}

func runCLI(ctx context.Context, mono *monolith.App, log *logger.Logger) error {
	if err := mono.StartModules(ctx); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	loop := arbitrageDI.GetLoop(mono.Services())
	log.Info(ctx, "all modules started, beginning arbitrage loop")

	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("arbitrage loop crashed: %w", err)
	}

	log.Info(ctx, "shutting down")
	return nil
}

func runOnce(ctx context.Context, mono *monolith.App, log *logger.Logger) error {
	if err := mono.StartModules(ctx); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	report, err := arbitrageDI.GetLoop(mono.Services()).RunOnce(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "tick finished", "tick", report.Tick, "outcome", report.Outcome, "reason", report.Reason)
	if report.Err != nil {
		return report.Err
	}
	return nil
}

func runWithdraw(ctx context.Context, mono *monolith.App, log *logger.Logger) error {
	if err := mono.StartModules(ctx); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	receipt, err := executionDI.GetService(mono.Services()).Withdraw(ctx)
	if err != nil {
		return fmt.Errorf("withdraw failed: %w", err)
	}

	cfg := mono.Config()
	log.Info(ctx, "withdraw included",
		"block", receipt.BlockNumber,
		"tx", receipt.Key().Hex(),
		"gas_used", receipt.GasUsed,
		"gas_cost", asset.FormatUnits(receipt.GasCost(), cfg.Strategy.TokenInDecimals),
		"policy", string(accountingDI.GetWithdrawPolicy(mono.Services())),
	)
	return nil
}

func runTUI(ctx context.Context, cfg *config.Config, mono *monolith.App) error {
	amounts, err := cfg.Amounts()
	if err != nil {
		return err
	}

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	loopCrashed := false
	work := func(ctx context.Context) error {
		select {
		case <-startSignal:
		case <-ctx.Done():
			return nil
		}

		ui.Send(ui.StartupMsg{Step: "config", Status: "connected"})
		for _, step := range []string{"rpc", "strategy", "relay"} {
			ui.Send(ui.StartupMsg{Step: step, Status: "connecting"})
		}
		if err := mono.StartModules(ctx); err != nil {
			ui.Send(ui.StartupMsg{Step: "rpc", Status: "failed", Message: err.Error()})
			return err
		}
		reportUpstreams(mono)

		err := arbitrageDI.GetLoop(mono.Services()).Start(ctx)
		if err != nil {
			loopCrashed = true
			ui.Send(ui.ErrorMsg{Error: err})
		}
		return err
	}

	dashboard := func() error {
		return ui.Run(ui.Options{
			Network:   string(cfg.Network.Name),
			Symbol:    cfg.Strategy.TokenInSymbol,
			Decimals:  cfg.Strategy.TokenInDecimals,
			Threshold: amounts.WithdrawThreshold,
			Policy:    string(cfg.Strategy.WithdrawPolicy),
			Submitter: executionDI.GetSubmitter(mono.Services()).Name(),
		})
	}
	quit := func() {
		if ui.Program != nil {
			ui.Program.Quit()
		}
	}

	err = superviseDashboard(ctx, dashboard, quit, work)
	if err != nil && loopCrashed {
		return fmt.Errorf("arbitrage loop crashed: %w", err)
	}
	return err
}

// superviseDashboard runs dashboard in the foreground and work beside it.
// A work error closes the dashboard and is returned. Closing the dashboard
// cancels work and waits for it, so an in-flight tick finishes before exit.
func superviseDashboard(ctx context.Context, dashboard func() error, quit func(), work func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := work(ctx)
		done <- err
		if err != nil {
			quit()
		}
	}()

	uiErr := dashboard()
	cancel()
	workErr := <-done

	if workErr != nil && !errors.Is(workErr, context.Canceled) {
		return workErr
	}
	if uiErr != nil {
		return fmt.Errorf("TUI error: %w", uiErr)
	}
	return nil
}

func reportUpstreams(mono monolith.Monolith) {
	for _, ep := range blockchainDI.GetBlockchainService(mono.Services()).Endpoints() {
		ui.Send(ui.ConnectionStatusMsg{
			Name:         ep.URL,
			Connected:    ep.State == blockchainDomain.EndpointHealthy,
			Reconnecting: ep.State == blockchainDomain.EndpointProbing,
			Detail:       string(ep.State),
		})
	}
	for _, step := range []string{"rpc", "strategy", "relay"} {
		ui.Send(ui.StartupMsg{Step: step, Status: "connected"})
	}
}
