// Package arbitrage implements the arbitrage bounded context: the recurring
// single-flight loop that sequences pricing, simulation, execution,
// accounting and telemetry.
package arbitrage

import (
	"context"
	"time"

	accountingDI "github.com/fd1az/arbitrage-executor/business/accounting/di"
	"github.com/fd1az/arbitrage-executor/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/arbitrage-executor/business/arbitrage/di"
	"github.com/fd1az/arbitrage-executor/business/arbitrage/infra"
	executionDI "github.com/fd1az/arbitrage-executor/business/execution/di"
	pricingDI "github.com/fd1az/arbitrage-executor/business/pricing/di"
	reportingDI "github.com/fd1az/arbitrage-executor/business/reporting/di"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// tickSlack is added to the inclusion budget to bound a whole tick.
const tickSlack = time.Minute

// Module implements the arbitrage bounded context.
type Module struct {
	reporter app.Reporter
}

// RegisterServices registers the reporter and the loop.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := c.Get("config").(*config.Config)

	amounts, err := cfg.Amounts()
	if err != nil {
		return err
	}

	di.RegisterToken(c, arbitrageDI.Reporter, func(di.ServiceRegistry) app.Reporter {
		if cfg.App.TUIMode {
			return infra.NewTUIReporter(nil)
		}
		return infra.NewConsoleReporter(nil, cfg.Strategy.TokenInDecimals, cfg.Strategy.TokenInSymbol)
	})

	di.RegisterToken(c, arbitrageDI.Loop, func(sr di.ServiceRegistry) *app.Loop {
		log := sr.Get("logger").(logger.LoggerInterface)

		inclusion := time.Duration(cfg.Execution.InclusionMaxPolls) * cfg.Execution.InclusionPollInterval
		loop, err := app.NewLoop(
			pricingDI.GetOracle(sr),
			executionDI.GetSimulator(sr),
			executionDI.GetService(sr),
			accountingDI.GetLedger(sr),
			reportingDI.GetSink(sr),
			arbitrageDI.GetReporter(sr),
			app.LoopConfig{
				PollInterval: cfg.Strategy.PollInterval,
				TickTimeout:  inclusion + tickSlack,
				AmountIn:     amounts.TradeSize,
				MinProfit:    amounts.MinProfit,
				TokenIn:      cfg.Contracts.TokenInAddress(),
				TokenOut:     cfg.Contracts.TokenOutAddress(),
				Policy:       accountingDI.GetWithdrawPolicy(sr),
			},
			log,
		)
		if err != nil {
			panic("failed to create loop: " + err.Error())
		}
		return loop
	})

	return nil
}

// Startup resolves the loop and starts the reporter. The loop itself is
// driven by the command.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	arbitrageDI.GetLoop(mono.Services())
	m.reporter = arbitrageDI.GetReporter(mono.Services())
	if err := m.reporter.Start(ctx); err != nil {
		return err
	}

	cfg := mono.Config()
	mono.Logger().Info(ctx, "arbitrage module started",
		"network", string(cfg.Network.Name),
		"poll_interval", cfg.Strategy.PollInterval.String(),
		"trade_size", cfg.Strategy.TradeSize,
		"min_profit", cfg.MinProfit(),
	)
	return nil
}

// Close stops the reporter.
func (m *Module) Close(context.Context) error {
	if m.reporter == nil {
		return nil
	}
	return m.reporter.Stop()
}
