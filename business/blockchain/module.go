// Package blockchain implements the blockchain bounded context for Ethereum integration.
package blockchain

import (
	"context"
	"time"

	"github.com/fd1az/arbitrage-executor/business/blockchain/app"
	blockchainDI "github.com/fd1az/arbitrage-executor/business/blockchain/di"
	"github.com/fd1az/arbitrage-executor/business/blockchain/infra/ethereum"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct {
	client *ethereum.Client
	oracle *ethereum.GasOracle
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.ChainClient, func(sr di.ServiceRegistry) app.ChainClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clientCfg := ethereum.DefaultClientConfig(cfg.Network.RPCURLs)
		if cfg.Network.RequestTimeout > 0 {
			clientCfg.RequestTimeout = cfg.Network.RequestTimeout
		}
		client, err := ethereum.Dial(context.Background(), clientCfg, log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		m.client = client
		return client
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		if tip, err := asset.ParseUnits(cfg.Execution.PriorityFeeGwei, 9); err == nil && tip.Sign() > 0 {
			oracleCfg.MinTipCap = tip
		}
		if !asset.IsTestnet(cfg.Network.ChainID) && cfg.Network.ChainID != asset.ChainIDArbitrum {
			oracleCfg.CacheTTL = 12 * time.Second
		}

		oracle, err := ethereum.NewGasOracle(oracleCfg, blockchainDI.GetChainClient(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		m.oracle = oracle
		return oracle
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetChainClient(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

// Startup verifies the endpoints report the configured chain. A mismatch is
// fatal; an unreachable node is only logged because endpoints may recover.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := blockchainDI.GetBlockchainService(mono.Services())

	if err := svc.Ready(ctx, mono.Config().Network.ChainID); err != nil {
		if !apperror.IsTransient(err) {
			return err
		}
		log.Error(ctx, "rpc endpoints unreachable at startup", "error", err)
	}

	log.Info(ctx, "blockchain module started", "endpoints", len(svc.Endpoints()))
	return nil
}

// Close releases the RPC connections.
func (m *Module) Close(context.Context) error {
	if m.oracle != nil {
		m.oracle.Close()
	}
	if m.client != nil {
		m.client.Close()
	}
	return nil
}
