// Package infra contains the loop reporters.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/internal/asset"
)

const rule = "================================================================================"

// ConsoleReporter implements Reporter for CLI output. Trades get a banner,
// other ticks a single line.
type ConsoleReporter struct {
	out      io.Writer
	decimals uint8
	symbol   string
	// Quiet suppresses the per-tick line for skipped ticks.
	Quiet bool

	mu sync.Mutex
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout
// when out is nil.
func NewConsoleReporter(out io.Writer, decimals uint8, symbol string) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out, decimals: decimals, symbol: symbol}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Arbitrage Executor Started")
	fmt.Fprintln(r.out, "==========================")
	return nil
}

// Report prints one tick.
func (r *ConsoleReporter) Report(report domain.TickReport, snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := report.StartedAt.Format("15:04:05")
	switch report.Outcome {
	case domain.OutcomeSkipped:
		if r.Quiet {
			return
		}
		fmt.Fprintf(r.out, "[%s] tick #%d skipped (%s) onchain=%s offchain=%s %s\n",
			ts, report.Tick, report.Reason,
			asset.FormatUnits(report.Onchain.EstimatedProfit, r.decimals),
			asset.FormatUnits(report.Offchain.EstimatedProfit, r.decimals),
			r.symbol,
		)
	case domain.OutcomeFailed:
		fmt.Fprintf(r.out, "[%s] tick #%d FAILED %s: %v\n", ts, report.Tick, report.Reason, report.Err)
	case domain.OutcomeExecuted:
		r.printTrade(report, snap)
	}
}

func (r *ConsoleReporter) printTrade(report domain.TickReport, snap domain.Snapshot) {
	t := report.Trade
	if t == nil {
		return
	}
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "ARBITRAGE EXECUTED  #%d\n", t.Index)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Block:          #%d\n", t.BlockNumber)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", t.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Duration:       %s\n", report.Duration.Round(time.Millisecond))
	for i, h := range t.TxHashes {
		fmt.Fprintf(r.out, "Tx %d:           %s\n", i+1, h.Hex())
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRADE")
	fmt.Fprintf(r.out, "  Size:           %s %s\n", asset.FormatUnits(t.AmountIn, r.decimals), r.symbol)
	fmt.Fprintf(r.out, "  Offchain est:   %s %s\n", asset.FormatUnits(report.Offchain.EstimatedProfit, r.decimals), r.symbol)
	fmt.Fprintf(r.out, "  Onchain est:    %s %s\n", asset.FormatUnits(t.Profit, r.decimals), r.symbol)
	fmt.Fprintf(r.out, "  Gas:            %d (%s %s)\n", t.GasUsed, asset.FormatUnits(t.GasCost, r.decimals), r.symbol)
	if t.Withdrawn {
		fmt.Fprintln(r.out, "  Withdraw:       bundled")
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Net:            %s %s\n", asset.FormatUnits(t.NetProfit, r.decimals), r.symbol)
	fmt.Fprintf(r.out, "  Since withdraw: %s %s\n", asset.FormatUnits(snap.CumulativeNetProfit, r.decimals), r.symbol)
	fmt.Fprintf(r.out, "  Session total:  %s %s (%d trades)\n", asset.FormatUnits(snap.TotalNetProfit, r.decimals), r.symbol, snap.TradeCount)
	fmt.Fprintln(r.out, rule)
}

// Stop prints the session summary.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Executor Stopped")
	return nil
}
