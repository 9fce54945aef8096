// Package execution implements the execution bounded context: on-chain
// simulation, bundle signing, submission and inclusion tracking.
package execution

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	blockchainDI "github.com/fd1az/arbitrage-executor/business/blockchain/di"
	"github.com/fd1az/arbitrage-executor/business/execution/app"
	executionDI "github.com/fd1az/arbitrage-executor/business/execution/di"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/direct"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/flashbots"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/strategy"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices parses the signing key and registers the execution services.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := c.Get("config").(*config.Config)

	key, err := ParseKey(cfg.Wallet.PrivateKey)
	if err != nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err), apperror.WithContext("wallet.private_key"))
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	authKey, err := relayAuthKey(cfg.Execution.RelayAuthKey)
	if err != nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err), apperror.WithContext("execution.relay_auth_key"))
	}

	di.RegisterToken(c, executionDI.Strategy, func(sr di.ServiceRegistry) *strategy.Contract {
		log := sr.Get("logger").(logger.LoggerInterface)
		contract, err := strategy.NewContract(cfg.Contracts.StrategyAddress(), from, blockchainDI.GetChainClient(sr), log)
		if err != nil {
			panic("failed to create strategy contract: " + err.Error())
		}
		return contract
	})

	di.RegisterToken(c, executionDI.Simulator, func(sr di.ServiceRegistry) app.Simulator {
		return executionDI.GetStrategy(sr)
	})

	di.RegisterToken(c, executionDI.Submitter, func(sr di.ServiceRegistry) app.Submitter {
		log := sr.Get("logger").(logger.LoggerInterface)
		if cfg.Execution.Mode == config.ExecutionDirect {
			return direct.NewSubmitter(blockchainDI.GetChainClient(sr), log)
		}

		relayCfg := flashbots.DefaultConfig(cfg.Execution.RelayURL)
		relayCfg.Simulate = cfg.Execution.SimulateBundle
		relay, err := flashbots.NewRelay(relayCfg, authKey, log)
		if err != nil {
			panic("failed to create relay client: " + err.Error())
		}
		return relay
	})

	di.RegisterToken(c, executionDI.Service, func(sr di.ServiceRegistry) *app.Service {
		log := sr.Get("logger").(logger.LoggerInterface)
		builder := app.NewBuilder(executionDI.GetStrategy(sr), cfg.Execution.FallbackGasLimit, cfg.Execution.WithdrawGasLimit)

		svc, err := app.NewService(
			blockchainDI.GetChainClient(sr),
			blockchainDI.GetGasOracle(sr),
			executionDI.GetSubmitter(sr),
			builder,
			key,
			app.ServiceConfig{
				ChainID:               new(big.Int).SetUint64(cfg.Network.ChainID),
				WithdrawToken:         cfg.Contracts.TokenInAddress(),
				InclusionPollInterval: cfg.Execution.InclusionPollInterval,
				InclusionMaxPolls:     cfg.Execution.InclusionMaxPolls,
			},
			log,
		)
		if err != nil {
			panic("failed to create execution service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup logs the signing identity and submission path.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := executionDI.GetService(mono.Services())
	submitter := executionDI.GetSubmitter(mono.Services())

	args := []any{
		"from", svc.From().Hex(),
		"submitter", submitter.Name(),
		"strategy", executionDI.GetStrategy(mono.Services()).Address().Hex(),
	}
	if relay, ok := submitter.(*flashbots.Relay); ok {
		args = append(args, "relay_identity", relay.AuthAddress().Hex())
	}
	mono.Logger().Info(ctx, "execution module started", args...)
	return nil
}

// ParseKey reads a hex private key with or without the 0x prefix.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
}

// relayAuthKey parses the configured relay identity or generates an
// ephemeral one. The relay only uses it for reputation.
func relayAuthKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(hexKey) == "" {
		return crypto.GenerateKey()
	}
	return ParseKey(hexKey)
}
