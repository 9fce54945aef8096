// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Block represents an Ethereum block header.
type Block struct {
	Number    uint64
	Hash      common.Hash
	Timestamp time.Time
	GasLimit  uint64
	GasUsed   uint64
	BaseFee   *big.Int
}

// BlockFromHeader converts a go-ethereum header.
func BlockFromHeader(h *types.Header) *Block {
	b := &Block{
		Number:    h.Number.Uint64(),
		Hash:      h.Hash(),
		Timestamp: time.Unix(int64(h.Time), 0),
		GasLimit:  h.GasLimit,
		GasUsed:   h.GasUsed,
	}
	if h.BaseFee != nil {
		b.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	return b
}

// EndpointState mirrors the circuit breaker guarding an RPC endpoint.
type EndpointState string

const (
	EndpointHealthy EndpointState = "healthy"
	EndpointProbing EndpointState = "probing"
	EndpointTripped EndpointState = "tripped"
)

// EndpointStatus describes one configured RPC endpoint.
type EndpointStatus struct {
	URL         string        `json:"url"`
	State       EndpointState `json:"state"`
	Requests    uint64        `json:"requests"`
	Failures    uint64        `json:"failures"`
	LastError   string        `json:"lastError,omitempty"`
	LastSuccess time.Time     `json:"lastSuccess,omitempty"`
}
