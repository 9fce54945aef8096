package app

import (
	"context"
	"fmt"

	"github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// BlockchainService exposes chain diagnostics to the rest of the process.
type BlockchainService struct {
	client    ChainClient
	gasOracle GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(client ChainClient, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		client:    client,
		gasOracle: gasOracle,
	}
}

// Client returns the underlying chain client.
func (s *BlockchainService) Client() ChainClient {
	return s.client
}

// GasOracle returns the fee oracle.
func (s *BlockchainService) GasOracle() GasOracle {
	return s.gasOracle
}

// LatestBlock fetches the head block.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	h, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	return domain.BlockFromHeader(h), nil
}

// Ready succeeds when at least one endpoint answers and reports the expected chain.
func (s *BlockchainService) Ready(ctx context.Context, expectedChainID uint64) error {
	id, err := s.client.NetworkID(ctx)
	if err != nil {
		return err
	}
	if expectedChainID != 0 && id.Uint64() != expectedChainID {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("chain id mismatch"),
			apperror.WithContext(fmt.Sprintf("expected %d, node reports %s", expectedChainID, id)))
	}
	return nil
}

// Endpoints reports per-endpoint health.
func (s *BlockchainService) Endpoints() []domain.EndpointStatus {
	return s.client.Endpoints()
}

// Healthy reports whether any endpoint is not tripped.
func (s *BlockchainService) Healthy() bool {
	for _, ep := range s.client.Endpoints() {
		if ep.State != domain.EndpointTripped {
			return true
		}
	}
	return false
}
