// Package app contains the telemetry sink and its ports.
package app

import (
	"context"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
)

// Journal persists debug and trade rows. Implementations must write each
// record completely or not at all.
type Journal interface {
	WriteDebug(ctx context.Context, r domain.DebugRecord) error
	WriteTrade(ctx context.Context, t arbDomain.TradeRecord) error
	Close() error
}

// Notifier delivers operator alerts. Delivery is best effort.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert domain.Alert) error
}
