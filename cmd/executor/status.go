package main

import (
	"time"

	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/internal/asset"
)

// statusView is the /status body. Amounts are decimal strings so JSON
// clients never see raw base units.
type statusView struct {
	Running             bool      `json:"running"`
	Ticks               uint64    `json:"ticks"`
	Skipped             uint64    `json:"skipped"`
	Executed            uint64    `json:"executed"`
	Failed              uint64    `json:"failed"`
	Trades              uint64    `json:"trades"`
	Withdrawals         uint64    `json:"withdrawals"`
	CumulativeNetProfit string    `json:"cumulativeNetProfit"`
	TotalNetProfit      string    `json:"totalNetProfit"`
	Symbol              string    `json:"symbol"`
	LastTick            *tickView `json:"lastTick,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type tickView struct {
	Tick       uint64    `json:"tick"`
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Offchain   string    `json:"offchainEstimate"`
	Onchain    string    `json:"onchainEstimate"`
	Tx         string    `json:"tx,omitempty"`
}

func newStatusView(snap domain.Snapshot, decimals uint8, symbol string) statusView {
	v := statusView{
		Running:             snap.Running,
		Ticks:               snap.Ticks,
		Skipped:             snap.Skipped,
		Executed:            snap.Executed,
		Failed:              snap.Failed,
		Trades:              snap.TradeCount,
		Withdrawals:         snap.Withdrawals,
		CumulativeNetProfit: asset.FormatUnits(snap.CumulativeNetProfit, decimals),
		TotalNetProfit:      asset.FormatUnits(snap.TotalNetProfit, decimals),
		Symbol:              symbol,
		UpdatedAt:           snap.UpdatedAt,
	}

	if t := snap.LastTick; t != nil {
		v.LastTick = &tickView{
			Tick:       t.Tick,
			ID:         t.ID,
			StartedAt:  t.StartedAt,
			DurationMs: t.Duration.Milliseconds(),
			Outcome:    string(t.Outcome),
			Reason:     t.Reason,
			Offchain:   asset.FormatUnits(t.Offchain.EstimatedProfit, decimals),
			Onchain:    asset.FormatUnits(t.Onchain.EstimatedProfit, decimals),
		}
		if t.Trade != nil && len(t.Trade.TxHashes) > 0 {
			v.LastTick.Tx = t.Trade.TxHashes[0].Hex()
		}
	}
	return v
}
