// Package reporting implements the telemetry sink: journal rows and
// operator alerts.
package reporting

import (
	"context"
	"strings"
	"time"

	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	reportingDI "github.com/fd1az/arbitrage-executor/business/reporting/di"
	"github.com/fd1az/arbitrage-executor/business/reporting/infra/csvjournal"
	"github.com/fd1az/arbitrage-executor/business/reporting/infra/notify"
	"github.com/fd1az/arbitrage-executor/business/reporting/infra/pgjournal"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the reporting bounded context.
type Module struct {
	sink *app.Sink
}

// RegisterServices registers the journal, notifier and sink.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, reportingDI.Journal, func(sr di.ServiceRegistry) app.Journal {
		cfg := sr.Get("config").(*config.Config)
		dec := cfg.Strategy.TokenInDecimals

		if cfg.Journal.Driver == "postgres" {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			j, err := pgjournal.Open(ctx, cfg.Journal.PostgresDSN, dec)
			if err != nil {
				panic("failed to open postgres journal: " + err.Error())
			}
			return j
		}

		j, err := csvjournal.Open(cfg.Journal.TradesPath, cfg.Journal.DebugPath, dec)
		if err != nil {
			panic("failed to open csv journal: " + err.Error())
		}
		return j
	})

	di.RegisterToken(c, reportingDI.Notifier, func(sr di.ServiceRegistry) app.Notifier {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		switch cfg.Notify.Driver {
		case "webhook":
			w, err := notify.NewWebhook(cfg.Notify.WebhookURL, 10*time.Second)
			if err != nil {
				panic("failed to create webhook notifier: " + err.Error())
			}
			return w
		case "smtp":
			return notify.NewSMTP(notify.SMTPConfig{
				Host:     cfg.Notify.SMTPHost,
				Port:     cfg.Notify.SMTPPort,
				User:     cfg.Notify.SMTPUser,
				Password: cfg.Notify.SMTPPassword,
				To:       strings.Split(cfg.Notify.EmailTo, ","),
			})
		default:
			return notify.NewLog(log)
		}
	})

	di.RegisterToken(c, reportingDI.Sink, func(sr di.ServiceRegistry) *app.Sink {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		sink, err := app.NewSink(reportingDI.GetJournal(sr), reportingDI.GetNotifier(sr), app.SinkConfig{
			Decimals:          cfg.Strategy.TokenInDecimals,
			Symbol:            cfg.Strategy.TokenInSymbol,
			AlertsPerMinute:   cfg.Notify.RatePerMinute,
			NotifyTradeAlerts: true,
		}, log)
		if err != nil {
			panic("failed to create telemetry sink: " + err.Error())
		}
		m.sink = sink
		return sink
	})

	return nil
}

// Startup opens the journal eagerly so a bad path fails before the first tick.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	reportingDI.GetSink(mono.Services())
	cfg := mono.Config()
	mono.Logger().Info(ctx, "reporting module started",
		"journal", cfg.Journal.Driver,
		"notifier", reportingDI.GetNotifier(mono.Services()).Name(),
	)
	return nil
}

// Close flushes and closes the journal.
func (m *Module) Close(context.Context) error {
	if m.sink == nil {
		return nil
	}
	return m.sink.Close()
}
