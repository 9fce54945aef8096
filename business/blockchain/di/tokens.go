// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	ChainClient       = di.NewToken[app.ChainClient]("blockchain.ChainClient")
	GasOracle         = di.NewToken[app.GasOracle]("blockchain.GasOracle")
)

func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetChainClient(c di.ServiceRegistry) app.ChainClient {
	return di.GetToken(c, ChainClient)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
