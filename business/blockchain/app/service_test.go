package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/blockchain/blockchaintest"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

func TestBlockchainService_Ready(t *testing.T) {
	chain := blockchaintest.New(421614)
	svc := app.NewBlockchainService(chain, nil)

	require.NoError(t, svc.Ready(context.Background(), 421614))
	require.NoError(t, svc.Ready(context.Background(), 0))

	err := svc.Ready(context.Background(), 42161)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}

func TestBlockchainService_LatestBlock(t *testing.T) {
	chain := blockchaintest.New(1)
	chain.Head = 1234
	svc := app.NewBlockchainService(chain, nil)

	b, err := svc.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), b.Number)
	assert.Equal(t, "100000000", b.BaseFee.String())
	assert.True(t, svc.Healthy())
}
