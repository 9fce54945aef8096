// Package blockchaintest provides an in-memory app.ChainClient for tests of
// contexts that talk to the chain.
package blockchaintest

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/arbitrage-executor/business/blockchain/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// Chain is a scriptable fake chain. The zero value is not usable; use New.
type Chain struct {
	mu sync.Mutex

	ChainID *big.Int
	Head    uint64
	BaseFee *big.Int
	TipCap  *big.Int
	Nonces  map[common.Address]uint64

	// CallFn answers eth_call. Nil returns an error.
	CallFn func(msg ethereum.CallMsg) ([]byte, error)
	// EstimateFn answers eth_estimateGas. Nil returns 100000.
	EstimateFn func(msg ethereum.CallMsg) (uint64, error)
	// SendFn is consulted before a transaction is recorded as sent.
	SendFn func(tx *types.Transaction) error
	// OnPoll runs on every receipt lookup, letting tests mine or advance blocks.
	OnPoll func(c *Chain, hash common.Hash)

	Sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	calls    int
}

// New returns a chain at head 100 with a 0.1 gwei base fee.
func New(chainID int64) *Chain {
	return &Chain{
		ChainID:  big.NewInt(chainID),
		Head:     100,
		BaseFee:  big.NewInt(100_000_000),
		TipCap:   big.NewInt(10_000_000),
		Nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// Mine stores a receipt for hash in the block after the current head.
func (c *Chain) Mine(hash common.Hash, status uint64, gasUsed uint64, effectiveGasPrice *big.Int) *types.Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Head++
	r := &types.Receipt{
		Status:            status,
		TxHash:            hash,
		GasUsed:           gasUsed,
		EffectiveGasPrice: new(big.Int).Set(effectiveGasPrice),
		BlockNumber:       new(big.Int).SetUint64(c.Head),
	}
	c.receipts[hash] = r
	return r
}

// Advance moves the head forward by n blocks without mining anything.
func (c *Chain) Advance(n uint64) {
	c.mu.Lock()
	c.Head += n
	c.mu.Unlock()
}

// CallCount returns how many eth_calls were made.
func (c *Chain) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// SentTransactions returns a copy of every broadcast transaction.
func (c *Chain) SentTransactions() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.Sent...)
}

func (c *Chain) NetworkID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.ChainID), nil
}

func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Head, nil
}

func (c *Chain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.Head
	if number != nil {
		n = number.Uint64()
	}
	return &types.Header{
		Number:   new(big.Int).SetUint64(n),
		BaseFee:  new(big.Int).Set(c.BaseFee),
		GasLimit: 30_000_000,
		Time:     uint64(time.Now().Unix()),
	}, nil
}

func (c *Chain) Call(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	fn := c.CallFn
	c.mu.Unlock()
	if fn == nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithContext("no call handler"))
	}
	out, err := fn(msg)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_call")
	}
	return out, nil
}

func (c *Chain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.EstimateFn == nil {
		return 100_000, nil
	}
	return c.EstimateFn(msg)
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Nonces[account], nil
}

func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.TipCap), nil
}

func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if c.SendFn != nil {
		if err := c.SendFn(tx); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.Sent = append(c.Sent, tx)
	c.mu.Unlock()
	return nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.OnPoll != nil {
		c.OnPoll(c, hash)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[hash], nil
}

// WaitReceipt polls without sleeping.
func (c *Chain) WaitReceipt(ctx context.Context, hash common.Hash, _ time.Duration, maxPolls int) (*types.Receipt, error) {
	for i := 0; i < maxPolls; i++ {
		if r, _ := c.TransactionReceipt(ctx, hash); r != nil {
			return r, nil
		}
	}
	return nil, apperror.New(apperror.CodeServiceTimeout, apperror.WithContext("receipt not found"))
}

func (c *Chain) Endpoints() []domain.EndpointStatus {
	return []domain.EndpointStatus{{URL: "fake://chain", State: domain.EndpointHealthy}}
}
