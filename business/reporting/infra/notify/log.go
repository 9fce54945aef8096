// Package notify contains the operator alert backends.
package notify

import (
	"context"

	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

// Log writes alerts to the structured log. It is the default backend.
type Log struct {
	logger logger.LoggerInterface
}

var _ app.Notifier = (*Log)(nil)

func NewLog(log logger.LoggerInterface) *Log {
	return &Log{logger: log}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(ctx context.Context, a domain.Alert) error {
	l.logger.Info(ctx, "alert", "subject", a.Subject, "body", a.Body)
	return nil
}
