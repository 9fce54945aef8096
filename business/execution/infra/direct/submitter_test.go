package direct

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/business/blockchain/blockchaintest"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

func txs(t *testing.T, n int) []*types.Transaction {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := types.LatestSignerForChainID(big.NewInt(1))
	to := common.Address{0xaa}

	out := make([]*types.Transaction, n)
	for i := range out {
		out[i], err = types.SignNewTx(key, signer, &types.DynamicFeeTx{
			ChainID: big.NewInt(1), Nonce: uint64(i), Gas: 21000,
			GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(2), To: &to,
		})
		require.NoError(t, err)
	}
	return out
}

func TestSubmitter_BroadcastsInOrder(t *testing.T) {
	chain := blockchaintest.New(1)
	s := NewSubmitter(chain, logger.NewNop())

	in := txs(t, 2)
	res, err := s.Submit(context.Background(), in, 101, "ignored")
	require.NoError(t, err)

	assert.Equal(t, in[0].Hash().Hex(), res.BundleHash)
	assert.False(t, res.TargetBound)

	sent := chain.SentTransactions()
	require.Len(t, sent, 2)
	assert.Equal(t, in[0].Hash(), sent[0].Hash())
	assert.Equal(t, in[1].Hash(), sent[1].Hash())
}

func TestSubmitter_StopsOnFirstFailure(t *testing.T) {
	chain := blockchaintest.New(1)
	calls := 0
	chain.SendFn = func(*types.Transaction) error {
		calls++
		if calls == 2 {
			return errors.New("nonce too low")
		}
		return nil
	}
	s := NewSubmitter(chain, logger.NewNop())

	_, err := s.Submit(context.Background(), txs(t, 3), 10, "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeRelaySubmissionFailed, apperror.GetCode(err))
	assert.Len(t, chain.SentTransactions(), 1)
}

func TestSubmitter_Empty(t *testing.T) {
	s := NewSubmitter(blockchaintest.New(1), logger.NewNop())
	_, err := s.Submit(context.Background(), nil, 1, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeRelaySubmissionFailed))
}
