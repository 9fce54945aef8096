// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/execution/app"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/strategy"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service   = di.NewToken[*app.Service]("execution.Service")
	Simulator = di.NewToken[app.Simulator]("execution.Simulator")
)

// Private dependency tokens - internal to execution module
var (
	Strategy  = di.NewToken[*strategy.Contract]("execution:strategy")
	Submitter = di.NewToken[app.Submitter]("execution:submitter")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetSimulator(c di.ServiceRegistry) app.Simulator {
	return di.GetToken(c, Simulator)
}

func GetStrategy(c di.ServiceRegistry) *strategy.Contract {
	return di.GetToken(c, Strategy)
}

func GetSubmitter(c di.ServiceRegistry) app.Submitter {
	return di.GetToken(c, Submitter)
}
