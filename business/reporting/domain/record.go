// Package domain contains the journal rows and alert messages of the
// reporting context. Amounts are rendered as decimals in tokenIn units.
package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/internal/asset"
)

var (
	// TradeHeader is the column set of the trade journal.
	TradeHeader = []string{"trade", "timestamp", "amountIn", "profit", "gasUsed", "gasCost", "netProfit"}
	// DebugHeader is the column set of the per-tick journal.
	DebugHeader = []string{"tick", "timestamp", "offchainEstimate", "onchainEstimate"}
)

// DebugRecord is written for every tick that reached the simulation step.
type DebugRecord struct {
	Tick      uint64
	Timestamp time.Time
	Offchain  *big.Int
	Onchain   *big.Int
	OnchainOK bool
}

// Row renders the record with decimals precision.
func (r DebugRecord) Row(decimals uint8) []string {
	return []string{
		strconv.FormatUint(r.Tick, 10),
		r.Timestamp.UTC().Format(time.RFC3339),
		asset.FormatUnits(r.Offchain, decimals),
		asset.FormatUnits(r.Onchain, decimals),
	}
}

// TradeRow renders a trade record with decimals precision.
func TradeRow(t arbDomain.TradeRecord, decimals uint8) []string {
	return []string{
		strconv.FormatUint(t.Index, 10),
		t.Timestamp.UTC().Format(time.RFC3339),
		asset.FormatUnits(t.AmountIn, decimals),
		asset.FormatUnits(t.Profit, decimals),
		strconv.FormatUint(t.GasUsed, 10),
		asset.FormatUnits(t.GasCost, decimals),
		asset.FormatUnits(t.NetProfit, decimals),
	}
}

// Alert is an operator notification.
type Alert struct {
	Subject string
	Body    string
}

// TradeAlert reports one executed trade.
func TradeAlert(t arbDomain.TradeRecord, decimals uint8, symbol string) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "Profit: %s %s\n", asset.FormatUnits(t.Profit, decimals), symbol)
	fmt.Fprintf(&b, "Gas: %s %s\n", asset.FormatUnits(t.GasCost, decimals), symbol)
	fmt.Fprintf(&b, "Net: %s %s\n", asset.FormatUnits(t.NetProfit, decimals), symbol)
	for _, h := range t.TxHashes {
		fmt.Fprintf(&b, "Tx: %s\n", h.Hex())
	}
	return Alert{Subject: fmt.Sprintf("Arb #%d", t.Index), Body: b.String()}
}

// WithdrawalAlert reports a threshold crossing. executed tells whether a
// withdraw transaction was sent or the operator has to run one.
func WithdrawalAlert(cumulative *big.Int, decimals uint8, symbol string, executed bool) Alert {
	amount := asset.FormatUnits(cumulative, decimals)
	if executed {
		return Alert{
			Subject: "Auto-Withdrawal",
			Body:    fmt.Sprintf("Withdrew %s %s profit to wallet", amount, symbol),
		}
	}
	return Alert{
		Subject: "Withdrawal threshold reached",
		Body:    fmt.Sprintf("Cumulative net profit reached %s %s. Run a withdrawal to move funds out of the contract.", amount, symbol),
	}
}

// CrashAlert reports an unrecovered fault before the process exits.
func CrashAlert(err error) Alert {
	return Alert{Subject: "Executor crashed", Body: err.Error()}
}
