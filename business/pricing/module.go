// Package pricing implements the pricing bounded context: advisory
// off-chain profit estimates from V2 router quotes.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	blockchainDI "github.com/fd1az/arbitrage-executor/business/blockchain/di"
	"github.com/fd1az/arbitrage-executor/business/pricing/app"
	pricingDI "github.com/fd1az/arbitrage-executor/business/pricing/di"
	"github.com/fd1az/arbitrage-executor/business/pricing/domain"
	"github.com/fd1az/arbitrage-executor/business/pricing/infra/uniswapv2"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	newRouter := func(sr di.ServiceRegistry, name string, addr common.Address) app.Router {
		log := sr.Get("logger").(logger.LoggerInterface)
		r, err := uniswapv2.NewRouter(name, addr, blockchainDI.GetChainClient(sr), log)
		if err != nil {
			panic("failed to create router " + name + ": " + err.Error())
		}
		return r
	}

	di.RegisterToken(c, pricingDI.RouterA, func(sr di.ServiceRegistry) app.Router {
		cfg := sr.Get("config").(*config.Config)
		return newRouter(sr, "router_a", cfg.Contracts.RouterAAddress())
	})

	di.RegisterToken(c, pricingDI.RouterB, func(sr di.ServiceRegistry) app.Router {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Contracts.RouterB == "" {
			return nil
		}
		return newRouter(sr, "router_b", cfg.Contracts.RouterBAddress())
	})

	di.RegisterToken(c, pricingDI.PairReader, func(sr di.ServiceRegistry) app.PairReader {
		pr, err := uniswapv2.NewPairReader(blockchainDI.GetChainClient(sr))
		if err != nil {
			panic("failed to create pair reader: " + err.Error())
		}
		return pr
	})

	di.RegisterToken(c, pricingDI.Oracle, func(sr di.ServiceRegistry) *app.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewOracle(
			pricingDI.GetRouterA(sr),
			pricingDI.GetRouterB(sr),
			domain.Mode(cfg.Strategy.PricingMode),
			log,
		)
	})

	di.RegisterToken(c, pricingDI.Inspector, func(sr di.ServiceRegistry) *app.Inspector {
		return app.NewInspector(pricingDI.GetPairReader(sr), domain.DefaultFeeBps)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	oracle := pricingDI.GetOracle(mono.Services())
	mono.Logger().Info(ctx, "pricing module started", "mode", string(oracle.Mode()))
	return nil
}
