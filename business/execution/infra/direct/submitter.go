// Package direct broadcasts bundle transactions to the public mempool.
// The transactions are not atomic: a withdraw can land without its trade.
package direct

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	blockchainApp "github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/execution/app"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

// Submitter sends each transaction through the chain client in order.
type Submitter struct {
	chain  blockchainApp.ChainClient
	logger logger.LoggerInterface
}

var _ app.Submitter = (*Submitter)(nil)

func NewSubmitter(chain blockchainApp.ChainClient, log logger.LoggerInterface) *Submitter {
	return &Submitter{chain: chain, logger: log}
}

func (s *Submitter) Name() string {
	return "direct"
}

// Submit broadcasts txs. The first transaction's hash stands in for the
// bundle hash. Mempool transactions stay valid past targetBlock, so the
// result is not target bound.
func (s *Submitter) Submit(ctx context.Context, txs []*types.Transaction, targetBlock uint64, _ string) (app.SubmitResult, error) {
	if len(txs) == 0 {
		return app.SubmitResult{}, apperror.New(apperror.CodeRelaySubmissionFailed, apperror.WithContext("no transactions"))
	}

	for i, tx := range txs {
		if err := s.chain.SendTransaction(ctx, tx); err != nil {
			if i > 0 {
				s.logger.Error(ctx, "partial broadcast, earlier transactions are already in the mempool",
					"sent", i, "total", len(txs), "first_tx", txs[0].Hash().Hex())
			}
			return app.SubmitResult{}, apperror.New(apperror.CodeRelaySubmissionFailed,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("broadcast tx %d/%d", i+1, len(txs))))
		}
	}

	s.logger.Debug(ctx, "transactions broadcast", "count", len(txs), "after_block", targetBlock-1)
	return app.SubmitResult{BundleHash: txs[0].Hash().Hex()}, nil
}
