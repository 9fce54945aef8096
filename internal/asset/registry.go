package asset

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe set of known assets.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AssetID]*Asset
	bySymbol map[string][]*Asset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds an asset. Panics on duplicate IDs.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.ID()))
	}
	r.byID[a.ID()] = a
	r.bySymbol[a.Symbol()] = append(r.bySymbol[a.Symbol()], a)
}

// Ensure returns the registered token for (chainID, addr), registering a new
// one with the given symbol and decimals when unknown. Used for tokens that
// only come from configuration.
func (r *Registry) Ensure(chainID uint64, addr common.Address, symbol string, decimals uint8) *Asset {
	if a, ok := r.GetToken(chainID, addr); ok {
		return a
	}

	a := NewAsset(NewTokenAssetID(chainID, addr), symbol, decimals)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[a.ID()]; ok {
		return existing
	}
	r.byID[a.ID()] = a
	r.bySymbol[symbol] = append(r.bySymbol[symbol], a)
	return a
}

func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetBySymbolAndChain finds an asset by symbol on one chain.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.bySymbol[symbol] {
		if a.ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// GetNative returns the gas coin of a chain.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// GetToken returns a token by chain and address.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	if address == (common.Address{}) {
		return nil, false
	}
	return r.Get(NewTokenAssetID(chainID, address))
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
