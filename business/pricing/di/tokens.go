// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/pricing/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Oracle    = di.NewToken[*app.Oracle]("pricing.Oracle")
	Inspector = di.NewToken[*app.Inspector]("pricing.Inspector")
)

// Private dependency tokens - internal to pricing module
var (
	RouterA    = di.NewToken[app.Router]("pricing:routerA")
	RouterB    = di.NewToken[app.Router]("pricing:routerB")
	PairReader = di.NewToken[app.PairReader]("pricing:pairReader")
)

func GetOracle(c di.ServiceRegistry) *app.Oracle {
	return di.GetToken(c, Oracle)
}

func GetInspector(c di.ServiceRegistry) *app.Inspector {
	return di.GetToken(c, Inspector)
}

func GetRouterA(c di.ServiceRegistry) app.Router {
	return di.GetToken(c, RouterA)
}

func GetRouterB(c di.ServiceRegistry) app.Router {
	return di.GetToken(c, RouterB)
}

func GetPairReader(c di.ServiceRegistry) app.PairReader {
	return di.GetToken(c, PairReader)
}
