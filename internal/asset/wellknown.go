package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs the executor is deployed on.
const (
	ChainIDEthereum        = 1
	ChainIDArbitrum        = 42161
	ChainIDSepolia         = 11155111
	ChainIDArbitrumSepolia = 421614
	ChainIDHardhat         = 31337
)

// IsTestnet reports whether chainID is a test or local network.
func IsTestnet(chainID uint64) bool {
	switch chainID {
	case ChainIDSepolia, ChainIDArbitrumSepolia, ChainIDHardhat:
		return true
	}
	return false
}

var (
	AddrWETHArbitrum = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	AddrUSDCArbitrum = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	AddrWETHSepolia  = common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14")
)

var (
	ETH         = NewAssetWithName(NewNativeAssetID(ChainIDEthereum), "ETH", "Ethereum", 18)
	ArbitrumETH = NewAssetWithName(NewNativeAssetID(ChainIDArbitrum), "ETH", "Arbitrum Ether", 18)
	SepoliaETH  = NewAssetWithName(NewNativeAssetID(ChainIDSepolia), "ETH", "Sepolia Ether", 18)

	WETHArbitrum = NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrWETHArbitrum), "WETH", "Wrapped Ether", 18)
	USDCArbitrum = NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrUSDCArbitrum), "USDC", "USD Coin", 6)
	WETHSepolia  = NewAssetWithName(NewTokenAssetID(ChainIDSepolia, AddrWETHSepolia), "WETH", "Wrapped Ether", 18)
)

// DefaultRegistry returns a registry pre-populated with the known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{ETH, ArbitrumETH, SepoliaETH, WETHArbitrum, USDCArbitrum, WETHSepolia} {
		r.Register(a)
	}
	return r
}

// NativeFor returns the gas coin for chainID, creating an 18-decimal ETH
// asset for chains not in the registry.
func NativeFor(r *Registry, chainID uint64) *Asset {
	if a, ok := r.GetNative(chainID); ok {
		return a
	}
	a := NewAsset(NewNativeAssetID(chainID), "ETH", 18)
	r.Register(a)
	return a
}

// WrappedNative returns the canonical wrapped gas coin for chainID. Chains
// without a known deployment report false.
func WrappedNative(chainID uint64) (common.Address, bool) {
	switch chainID {
	case ChainIDArbitrum:
		return AddrWETHArbitrum, true
	case ChainIDSepolia:
		return AddrWETHSepolia, true
	}
	return common.Address{}, false
}
