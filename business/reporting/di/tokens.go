// Package di contains dependency injection tokens for the reporting context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Sink = di.NewToken[*app.Sink]("reporting.Sink")
)

// Private dependency tokens - internal to reporting module
var (
	Journal  = di.NewToken[app.Journal]("reporting:journal")
	Notifier = di.NewToken[app.Notifier]("reporting:notifier")
)

func GetSink(c di.ServiceRegistry) *app.Sink {
	return di.GetToken(c, Sink)
}

func GetJournal(c di.ServiceRegistry) app.Journal {
	return di.GetToken(c, Journal)
}

func GetNotifier(c di.ServiceRegistry) app.Notifier {
	return di.GetToken(c, Notifier)
}
