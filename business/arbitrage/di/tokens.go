// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/arbitrage/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Loop = di.NewToken[*app.Loop]("arbitrage.Loop")
)

// Private dependency tokens - internal to arbitrage module
var (
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
)

func GetLoop(c di.ServiceRegistry) *app.Loop {
	return di.GetToken(c, Loop)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
